package model

import "time"

// RawRow is one finisher line exactly as read from a race export.
// HasGender and HasCategory report whether the export carried those columns.
type RawRow struct {
	Line        int
	Name        string
	Club        string
	Bib         string
	Position    string
	Time        string
	Gender      string
	HasGender   bool
	Category    string
	HasCategory bool
}

// Athlete is one normalized finisher in one race of one round.
type Athlete struct {
	Name             string        `json:"name"`
	Club             string        `json:"club"`
	Bib              string        `json:"bib"`
	Position         int           `json:"pos"`
	Time             time.Duration `json:"time"`
	Gender           Gender        `json:"gender"`
	Category         string        `json:"category"`
	RawCategory      string        `json:"raw_category,omitempty"`
	CategoryPosition int           `json:"cat_pos"`
	GenderPosition   int           `json:"gen_pos"`
}

// RaceResult is the normalized finisher list of one race in one round.
type RaceResult struct {
	Round    string    `json:"round"`
	Race     string    `json:"race"`
	Athletes []Athlete `json:"athletes"`
}

// InCategory returns the athletes resolved to code, in finishing order.
func (r RaceResult) InCategory(code string) []Athlete {
	var out []Athlete
	for _, a := range r.Athletes {
		if a.Category == code {
			out = append(out, a)
		}
	}
	return out
}

// OfGender returns the athletes of gender g, in finishing order.
func (r RaceResult) OfGender(g Gender) []Athlete {
	var out []Athlete
	for _, a := range r.Athletes {
		if a.Gender == g {
			out = append(out, a)
		}
	}
	return out
}
