// Package model contains domain models passed between layers.
package model

import "strings"

// Gender of an athlete or of a category.
type Gender string

// Known genders.
const (
	GenderUnknown Gender = ""
	Male          Gender = "Male"
	Female        Gender = "Female"
)

// ParseGender recognises the spellings found in race exports.
// The second return value is false when s names no gender.
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "men", "man", "boy", "boys":
		return Male, true
	case "female", "f", "women", "woman", "girl", "girls", "w":
		return Female, true
	default:
		return GenderUnknown, false
	}
}

// Valid reports whether g is Male or Female.
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

func (g Gender) String() string {
	if g == GenderUnknown {
		return "Unknown"
	}
	return string(g)
}
