// Package category resolves raw race-export labels to canonical scoring
// categories and answers static questions about category definitions.
package category

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/okian/xcleague/internal/domain/model"
)

// Mapping binds one (gender, raw label) pair to a canonical category code.
type Mapping struct {
	Gender model.Gender `yaml:"gender" json:"gender"`
	Label  string       `yaml:"label" json:"label"`
	Code   string       `yaml:"code" json:"code"`
}

type mappingKey struct {
	gender model.Gender
	label  string
}

// Rules is an immutable lookup over category definitions, label mappings
// and per-race default genders. It is safe for concurrent use.
type Rules struct {
	categories  map[string]model.CategoryDefinition
	order       []string
	mappings    map[mappingKey]string
	raceGenders map[string]model.Gender
}

// NewRules validates and indexes the given tables.
func NewRules(defs []model.CategoryDefinition, mappings []Mapping, raceGenders map[string]model.Gender) (*Rules, error) {
	r := &Rules{
		categories:  make(map[string]model.CategoryDefinition, len(defs)),
		order:       make([]string, 0, len(defs)),
		mappings:    make(map[mappingKey]string, len(mappings)),
		raceGenders: make(map[string]model.Gender, len(raceGenders)),
	}

	for _, d := range defs {
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := r.categories[d.Code]; dup {
			return nil, &model.ConfigurationError{Code: d.Code, Reason: "defined more than once"}
		}
		r.categories[d.Code] = d
		r.order = append(r.order, d.Code)
	}

	for _, m := range mappings {
		if _, ok := r.categories[m.Code]; !ok {
			return nil, fmt.Errorf("mapping (%s, %q): %w: %s", m.Gender, m.Label, model.ErrUnknownCategory, m.Code)
		}
		key := mappingKey{gender: m.Gender, label: strings.TrimSpace(m.Label)}
		if prev, dup := r.mappings[key]; dup && prev != m.Code {
			return nil, &model.ConfigurationError{Code: m.Code, Reason: fmt.Sprintf("label %q for %s already maps to %s", m.Label, m.Gender, prev)}
		}
		r.mappings[key] = m.Code
	}

	for race, g := range raceGenders {
		r.raceGenders[race] = g
	}

	return r, nil
}

func validateDefinition(d model.CategoryDefinition) error {
	switch {
	case strings.TrimSpace(d.Code) == "":
		return &model.ConfigurationError{Code: d.Code, Reason: "empty code"}
	case d.Race == "":
		return &model.ConfigurationError{Code: d.Code, Reason: "no race"}
	case !d.Gender.Valid():
		return &model.ConfigurationError{Code: d.Code, Reason: "gender must be Male or Female"}
	}
	switch d.Kind {
	case model.KindTeam:
		if d.TeamSize < 1 {
			return &model.ConfigurationError{Code: d.Code, Reason: "team category without team size"}
		}
	case model.KindIndividual, model.KindOverall:
		if d.TeamSize != 0 {
			return &model.ConfigurationError{Code: d.Code, Reason: "team size on a non-team category"}
		}
		if d.Pooled {
			return &model.ConfigurationError{Code: d.Code, Reason: "pooled flag on a non-team category"}
		}
	default:
		return &model.ConfigurationError{Code: d.Code, Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
	}
	return nil
}

// ResolveCategory maps an exact (gender, raw label) pair to its category
// code. There is no fallback: an unknown pair is an *model.UnmappedCategoryError.
func (r *Rules) ResolveCategory(gender model.Gender, label string) (string, error) {
	label = strings.TrimSpace(label)
	code, ok := r.mappings[mappingKey{gender: gender, label: label}]
	if !ok {
		return "", &model.UnmappedCategoryError{Gender: gender, Label: label}
	}
	return code, nil
}

// ResolveGender reads the row's gender column when the export has one,
// otherwise infers it from "boys"/"girls" in the raw label, otherwise uses
// the race default.
func (r *Rules) ResolveGender(row model.RawRow, race string) (model.Gender, error) {
	if row.HasGender {
		if g, ok := model.ParseGender(row.Gender); ok {
			return g, nil
		}
	}
	if row.HasCategory {
		if g, ok := genderFromLabel(row.Category); ok {
			return g, nil
		}
	}
	if g, ok := r.raceGenders[race]; ok && g.Valid() {
		return g, nil
	}
	return model.GenderUnknown, &model.UndeterminedGenderError{Race: race, Bib: row.Bib, Label: row.Category}
}

func genderFromLabel(label string) (model.Gender, bool) {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "girls"):
		return model.Female, true
	case strings.Contains(l, "boys"):
		return model.Male, true
	default:
		return model.GenderUnknown, false
	}
}

// TeamSizeFor returns the team size of a team category.
func (r *Rules) TeamSizeFor(code string) (int, error) {
	d, ok := r.categories[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", model.ErrUnknownCategory, code)
	}
	if !d.IsTeam() {
		return 0, &model.NotATeamCategoryError{Code: code}
	}
	if d.TeamSize < 1 {
		return 0, &model.ConfigurationError{Code: code, Reason: "team category without team size"}
	}
	return d.TeamSize, nil
}

// RaceFor returns the race a category's athletes are drawn from.
func (r *Rules) RaceFor(code string) (string, error) {
	d, ok := r.categories[code]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownCategory, code)
	}
	return d.Race, nil
}

// Category returns the definition for code.
func (r *Rules) Category(code string) (model.CategoryDefinition, bool) {
	d, ok := r.categories[code]
	return d, ok
}

// Categories returns every definition in declaration order.
func (r *Rules) Categories() []model.CategoryDefinition {
	return lo.Map(r.order, func(code string, _ int) model.CategoryDefinition {
		return r.categories[code]
	})
}

// TeamCategoriesForRace returns the team categories drawn from race.
func (r *Rules) TeamCategoriesForRace(race string) []model.CategoryDefinition {
	return lo.Filter(r.Categories(), func(d model.CategoryDefinition, _ int) bool {
		return d.IsTeam() && d.Race == race
	})
}

// Races returns the distinct race names referenced by categories.
func (r *Rules) Races() []string {
	return lo.Uniq(lo.Map(r.Categories(), func(d model.CategoryDefinition, _ int) string {
		return d.Race
	}))
}

// RaceGender returns the default gender of race, if one is configured.
func (r *Rules) RaceGender(race string) (model.Gender, bool) {
	g, ok := r.raceGenders[race]
	return g, ok
}
