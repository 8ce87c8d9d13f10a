package model

// CategoryKind classifies how a category is scored.
type CategoryKind string

// Category kinds.
const (
	// KindIndividual categories rank athletes by category position.
	KindIndividual CategoryKind = "Individual"
	// KindTeam categories rank club teams; non-pooled team categories
	// also carry individual standings for their athletes.
	KindTeam CategoryKind = "Team"
	// KindOverall categories rank every athlete of one gender in a race
	// by gender position.
	KindOverall CategoryKind = "Overall"
)

// CategoryDefinition describes one scoring group.
type CategoryDefinition struct {
	Code     string       `yaml:"code" json:"code"`
	Name     string       `yaml:"name" json:"name"`
	Kind     CategoryKind `yaml:"kind" json:"kind"`
	Gender   Gender       `yaml:"gender" json:"gender"`
	Race     string       `yaml:"race" json:"race"`
	TeamSize int          `yaml:"team_size,omitempty" json:"team_size,omitempty"`
	AgeGroup string       `yaml:"age_group,omitempty" json:"age_group,omitempty"`
	// Pooled team categories draw every athlete of Gender in Race
	// regardless of the athlete's own category.
	Pooled bool `yaml:"pooled,omitempty" json:"pooled,omitempty"`
}

// IsTeam reports whether the category produces team standings.
func (c CategoryDefinition) IsTeam() bool {
	return c.Kind == KindTeam
}

// HasIndividualStandings reports whether athletes are ranked individually
// under this code.
func (c CategoryDefinition) HasIndividualStandings() bool {
	switch c.Kind {
	case KindIndividual, KindOverall:
		return true
	case KindTeam:
		return !c.Pooled
	default:
		return false
	}
}

// MinTeamSize is the smallest member count that still forms a scored team.
func MinTeamSize(size int) int {
	return (size + 1) / 2
}
