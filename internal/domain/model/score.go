package model

import (
	"fmt"
	"sort"
)

// InvalidScore marks a total that cannot be computed. It exceeds any real
// score so invalid entries sort last, and renders as an empty cell.
const InvalidScore = 999999

// StandingsKind separates individual and team tables of the same code.
type StandingsKind string

// Standings kinds.
const (
	IndividualStandings StandingsKind = "individual"
	TeamStandings       StandingsKind = "team"
)

// ScoreRecord accumulates one athlete's or one team's round scores.
// Athletes are keyed by Name and Club, teams by Club and Label.
type ScoreRecord struct {
	Name        string         `json:"name,omitempty"`
	Club        string         `json:"club"`
	Label       string         `json:"label,omitempty"`
	Division    string         `json:"division,omitempty"`
	RoundScores map[string]int `json:"round_scores"`
	Total       int            `json:"total"`
}

// NewAthleteRecord starts an empty record for an athlete.
func NewAthleteRecord(name, club string) *ScoreRecord {
	return &ScoreRecord{Name: name, Club: club, RoundScores: make(map[string]int)}
}

// NewTeamRecord starts an empty record for a club team.
func NewTeamRecord(club, label string) *ScoreRecord {
	return &ScoreRecord{Club: club, Label: label, RoundScores: make(map[string]int)}
}

// Key identifies the record within its standings table.
func (r *ScoreRecord) Key() string {
	if r.Label != "" {
		return r.Club + "\x00" + r.Label
	}
	return r.Name + "\x00" + r.Club
}

// DisplayName is the athlete name, or "Club Label" for teams.
func (r *ScoreRecord) DisplayName() string {
	if r.Label != "" {
		return r.Club + " " + r.Label
	}
	return r.Name
}

// AddRoundScore records score for round, replacing any earlier value for
// the same round.
func (r *ScoreRecord) AddRoundScore(round string, score int) error {
	if score < 1 {
		return fmt.Errorf("%w: %d for round %s", ErrInvalidScore, score, round)
	}
	if r.RoundScores == nil {
		r.RoundScores = make(map[string]int)
	}
	r.RoundScores[round] = score
	return nil
}

// TotalFor sums the k lowest round scores. Records with fewer than k
// rounds, or with no rounds at all, are InvalidScore.
func (r *ScoreRecord) TotalFor(k int) int {
	if len(r.RoundScores) == 0 || len(r.RoundScores) < k {
		return InvalidScore
	}
	scores := make([]int, 0, len(r.RoundScores))
	for _, s := range r.RoundScores {
		scores = append(scores, s)
	}
	sort.Ints(scores)
	total := 0
	for _, s := range scores[:k] {
		total += s
	}
	return total
}

// Valid reports whether Total is a real score.
func (r *ScoreRecord) Valid() bool {
	return r.Total < InvalidScore
}

// RoundsToCount returns how many of a record's best rounds count toward its
// total once processed rounds have produced data: all of them up to one
// round, otherwise all but the worst.
func RoundsToCount(processed int) int {
	if processed <= 1 {
		return processed
	}
	return processed - 1
}

// Standings is the cumulative table of one category.
type Standings struct {
	Category        string        `json:"category"`
	Kind            StandingsKind `json:"kind"`
	Rounds          []string      `json:"rounds"`
	RoundsProcessed int           `json:"rounds_processed"`
	RoundsCounted   int           `json:"rounds_counted"`
	Records         []ScoreRecord `json:"records"`
}
