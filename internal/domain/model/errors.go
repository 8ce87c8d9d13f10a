package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds for domain errors.
var (
	ErrUnmappedCategory   = errors.New("unmapped category")
	ErrUndeterminedGender = errors.New("undetermined gender")
	ErrNotATeamCategory   = errors.New("not a team category")
	ErrConfiguration      = errors.New("configuration error")
	ErrMalformedRow       = errors.New("malformed row")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrInvalidScore       = errors.New("invalid round score")
	// ErrNotFound marks a round, race or table with no persisted data yet.
	ErrNotFound = errors.New("not found")
)

// UnmappedCategoryError reports a finisher whose (gender, label) pair has no
// canonical category.
type UnmappedCategoryError struct {
	Round  string
	Race   string
	Bib    string
	Gender Gender
	Label  string
}

func (e *UnmappedCategoryError) Error() string {
	return fmt.Sprintf("round %s race %s bib %s: no category for (%s, %q)",
		e.Round, e.Race, e.Bib, e.Gender, e.Label)
}

func (e *UnmappedCategoryError) Unwrap() error { return ErrUnmappedCategory }

// UndeterminedGenderError reports a finisher whose gender could not be read,
// inferred, or defaulted.
type UndeterminedGenderError struct {
	Round string
	Race  string
	Bib   string
	Label string
}

func (e *UndeterminedGenderError) Error() string {
	return fmt.Sprintf("round %s race %s bib %s: cannot determine gender (label %q)",
		e.Round, e.Race, e.Bib, e.Label)
}

func (e *UndeterminedGenderError) Unwrap() error { return ErrUndeterminedGender }

// NotATeamCategoryError reports team logic invoked on a non-team category.
type NotATeamCategoryError struct {
	Code string
}

func (e *NotATeamCategoryError) Error() string {
	return fmt.Sprintf("category %s is not a team category", e.Code)
}

func (e *NotATeamCategoryError) Unwrap() error { return ErrNotATeamCategory }

// ConfigurationError reports an inconsistent category definition.
type ConfigurationError struct {
	Code   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("category %s: %s", e.Code, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// MalformedRowError reports a finisher row missing a required field.
type MalformedRowError struct {
	Round  string
	Race   string
	Line   int
	Bib    string
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("round %s race %s line %d bib %s: %s",
		e.Round, e.Race, e.Line, e.Bib, e.Reason)
}

func (e *MalformedRowError) Unwrap() error { return ErrMalformedRow }
