package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/xcleague/internal/domain/model"
)

// PatchOp names a correction operation.
type PatchOp string

// Correction operations.
const (
	// OpInsert places a finisher missing from the export at Position.
	OpInsert PatchOp = "insert"
	// OpRemove drops every finisher carrying Bib.
	OpRemove PatchOp = "remove"
)

// Patch is one manual correction for a round and race. Patches are applied
// after guests are removed, in the order given.
type Patch struct {
	Round    string  `yaml:"round" json:"round"`
	Race     string  `yaml:"race" json:"race"`
	Op       PatchOp `yaml:"op" json:"op"`
	Bib      string  `yaml:"bib" json:"bib"`
	Position int     `yaml:"position,omitempty" json:"position,omitempty"`
	Name     string  `yaml:"name,omitempty" json:"name,omitempty"`
	Club     string  `yaml:"club,omitempty" json:"club,omitempty"`
	Time     string  `yaml:"time,omitempty" json:"time,omitempty"`
	Gender   string  `yaml:"gender,omitempty" json:"gender,omitempty"`
	Category string  `yaml:"category,omitempty" json:"category,omitempty"`
}

// Validate checks the patch carries what its operation needs.
func (p Patch) Validate() error {
	if p.Round == "" || p.Race == "" {
		return fmt.Errorf("%w: round and race are required", ErrInvalidPatch)
	}
	if strings.TrimSpace(p.Bib) == "" {
		return fmt.Errorf("%w: %s/%s: bib is required", ErrInvalidPatch, p.Round, p.Race)
	}
	switch p.Op {
	case OpRemove:
		return nil
	case OpInsert:
		if p.Position < 1 {
			return fmt.Errorf("%w: %s/%s bib %s: position must be at least 1", ErrInvalidPatch, p.Round, p.Race, p.Bib)
		}
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Club) == "" {
			return fmt.Errorf("%w: %s/%s bib %s: name and club are required", ErrInvalidPatch, p.Round, p.Race, p.Bib)
		}
		if _, err := ParseRaceTime(p.Time); err != nil {
			return fmt.Errorf("%w: %s/%s bib %s: %w", ErrInvalidPatch, p.Round, p.Race, p.Bib, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidPatch, p.Op)
	}
}

// row converts an insert patch into the raw row it stands for.
func (p Patch) row() model.RawRow {
	return model.RawRow{
		Name:        p.Name,
		Club:        p.Club,
		Bib:         p.Bib,
		Position:    strconv.Itoa(p.Position),
		Time:        p.Time,
		Gender:      p.Gender,
		HasGender:   p.Gender != "",
		Category:    p.Category,
		HasCategory: p.Category != "",
	}
}
