// Package league holds the versioned data describing one league season:
// categories, label mappings, guests, divisions and manual corrections.
package league

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/okian/xcleague/internal/domain/category"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/domain/normalize"
)

// Range is an inclusive span of numeric bibs.
type Range struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Divisions places the teams of one pooled team category into divisions.
// Teams are keyed by "Club Label"; unlisted teams fall into Default.
type Divisions struct {
	Default string            `yaml:"default" json:"default"`
	Teams   map[string]string `yaml:"teams" json:"teams"`
}

// League is the complete season definition.
type League struct {
	Name             string                     `yaml:"name" json:"name"`
	Rounds           []string                   `yaml:"rounds" json:"rounds"`
	Categories       []model.CategoryDefinition `yaml:"categories" json:"categories"`
	CategoryMappings []category.Mapping         `yaml:"category_mappings" json:"category_mappings"`
	RaceGenders      map[string]model.Gender    `yaml:"race_genders" json:"race_genders"`
	Guests           []string                   `yaml:"guests" json:"guests"`
	GuestRanges      []Range                    `yaml:"guest_ranges" json:"guest_ranges"`
	Divisions        map[string]Divisions       `yaml:"divisions" json:"divisions"`
	NameReplacements []normalize.Replacement    `yaml:"name_replacements" json:"name_replacements"`
	Corrections      []normalize.Patch          `yaml:"corrections" json:"corrections"`
}

// Load reads a league file. An empty path yields Default().
func Load(_ context.Context, path string) (*League, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadLeague, err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a YAML league definition. Unknown keys are
// rejected so typos do not silently drop data.
func Parse(r io.Reader) (*League, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var l League
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadLeague, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Encode writes l as YAML.
func (l *League) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return err
	}
	return enc.Close()
}

// Validate reports every inconsistency found, not just the first.
func (l *League) Validate() error {
	var errs error
	if len(l.Rounds) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: no rounds", ErrInvalidLeague))
	}
	seen := make(map[string]bool, len(l.Rounds))
	for _, r := range l.Rounds {
		if seen[r] {
			errs = multierr.Append(errs, fmt.Errorf("%w: round %s listed twice", ErrInvalidLeague, r))
		}
		seen[r] = true
	}
	if _, err := l.Rules(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: %w", ErrInvalidLeague, err))
	}
	for _, g := range l.GuestRanges {
		if g.From > g.To {
			errs = multierr.Append(errs, fmt.Errorf("%w: guest range %d-%d is reversed", ErrInvalidLeague, g.From, g.To))
		}
	}
	for _, p := range l.Corrections {
		if err := p.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %w", ErrInvalidLeague, err))
		}
	}
	for code := range l.Divisions {
		if !l.isPooledTeam(code) {
			errs = multierr.Append(errs, fmt.Errorf("%w: divisions for %s, which is not a pooled team category", ErrInvalidLeague, code))
		}
	}
	return errs
}

func (l *League) isPooledTeam(code string) bool {
	for _, c := range l.Categories {
		if c.Code == code {
			return c.IsTeam() && c.Pooled
		}
	}
	return false
}

// Rules builds the category lookup for this league.
func (l *League) Rules() (*category.Rules, error) {
	return category.NewRules(l.Categories, l.CategoryMappings, l.RaceGenders)
}

// GuestSet expands explicit guests and guest ranges into bib strings.
func (l *League) GuestSet() []string {
	out := make([]string, 0, len(l.Guests))
	for _, g := range l.Guests {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	for _, r := range l.GuestRanges {
		for b := r.From; b <= r.To; b++ {
			out = append(out, strconv.Itoa(b))
		}
	}
	return out
}

// Normalizer builds a race normalizer carrying this league's guests,
// name cleanups and corrections.
func (l *League) Normalizer(rules normalize.Resolver) *normalize.Normalizer {
	return normalize.New(rules,
		normalize.WithGuests(l.GuestSet()...),
		normalize.WithNameReplacements(l.NameReplacements),
		normalize.WithPatches(l.Corrections),
	)
}

// Division returns the division of a team in a pooled team category, or ""
// when the category has no divisions.
func (l *League) Division(categoryCode, team string) string {
	d, ok := l.Divisions[categoryCode]
	if !ok {
		return ""
	}
	if div, ok := d.Teams[team]; ok {
		return div
	}
	return d.Default
}

// SelectRounds filters requested to the league's rounds, preserving league
// order. An empty request selects every round.
func (l *League) SelectRounds(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), l.Rounds...), nil
	}
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[strings.TrimSpace(r)] = true
	}
	var out []string
	for _, r := range l.Rounds {
		if want[r] {
			out = append(out, r)
			delete(want, r)
		}
	}
	for r := range want {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRound, r)
	}
	return out, nil
}
