package model

// Team is one scored club team in one round of a team category.
type Team struct {
	Position int       `json:"pos"`
	Club     string    `json:"club"`
	Label    string    `json:"label"`
	Category string    `json:"category"`
	Score    int       `json:"score"`
	Members  []Athlete `json:"members"`
}

// Name joins club and label, e.g. "Abingdon AC A".
func (t Team) Name() string {
	return t.Club + " " + t.Label
}

// TeamResult is the ranked team table of one category in one round.
type TeamResult struct {
	Round    string `json:"round"`
	Category string `json:"category"`
	TeamSize int    `json:"team_size"`
	Teams    []Team `json:"teams"`
	// Discarded counts club chunks below the minimum team size.
	Discarded int `json:"discarded,omitempty"`
}

// TeamScore sums positions and charges penalty for each missing member.
// Teams smaller than MinTeamSize(size) score InvalidScore.
func TeamScore(positions []int, size, penalty int) int {
	n := len(positions)
	if n == 0 || n < MinTeamSize(size) {
		return InvalidScore
	}
	total := 0
	for _, p := range positions {
		total += p
	}
	if n < size {
		total += penalty * (size - n)
	}
	return total
}
