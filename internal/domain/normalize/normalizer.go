// Package normalize turns one race's raw finisher rows into a clean,
// guest-free, renumbered athlete list with categories and derived ranks.
package normalize

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/okian/xcleague/internal/domain/model"
)

// Resolver supplies gender and category resolution.
type Resolver interface {
	ResolveGender(row model.RawRow, race string) (model.Gender, error)
	ResolveCategory(gender model.Gender, label string) (string, error)
}

// Replacement is a literal substitution applied to athlete names before
// whitespace is collapsed.
type Replacement struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

type raceKey struct {
	round string
	race  string
}

// Normalizer is immutable once built and safe for concurrent use.
type Normalizer struct {
	resolver     Resolver
	guests       map[string]struct{}
	patches      map[raceKey][]Patch
	replacements []Replacement
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithGuests excludes the given bibs from every race.
func WithGuests(bibs ...string) Option {
	return func(n *Normalizer) {
		for _, b := range bibs {
			if b = strings.TrimSpace(b); b != "" {
				n.guests[b] = struct{}{}
			}
		}
	}
}

// WithPatches registers corrections; each applies only to its own round and race.
func WithPatches(patches []Patch) Option {
	return func(n *Normalizer) {
		for _, p := range patches {
			k := raceKey{round: p.Round, race: p.Race}
			n.patches[k] = append(n.patches[k], p)
		}
	}
}

// WithNameReplacements sets literal substitutions for athlete names.
func WithNameReplacements(replacements []Replacement) Option {
	return func(n *Normalizer) {
		n.replacements = append(n.replacements, replacements...)
	}
}

// New builds a Normalizer around resolver.
func New(resolver Resolver, opts ...Option) *Normalizer {
	n := &Normalizer{
		resolver: resolver,
		guests:   make(map[string]struct{}),
		patches:  make(map[raceKey][]Patch),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Report summarises rows and corrections Normalize did not keep as given.
type Report struct {
	Rejected       []*model.MalformedRowError
	GuestsRemoved  int
	PatchesApplied int
	// PatchesSkipped holds removals whose bib was not in the race.
	PatchesSkipped []Patch
}

type entry struct {
	seq     int
	row     model.RawRow
	pos     int
	hasPos  bool
	elapsed time.Duration
}

// Normalize cleans, filters, renumbers, corrects and classifies rows.
// Malformed rows are rejected into the report and skipped. Any row whose
// gender or category cannot be resolved fails the whole race, and the
// returned error lists every such row.
func (n *Normalizer) Normalize(ctx context.Context, round, race string, rows []model.RawRow) (model.RaceResult, Report, error) {
	var rep Report
	if err := ctx.Err(); err != nil {
		return model.RaceResult{}, rep, err
	}

	entries := make([]entry, 0, len(rows))
	for i, row := range rows {
		e, bad := n.parse(row, i)
		if bad != nil {
			bad.Round, bad.Race = round, race
			rep.Rejected = append(rep.Rejected, bad)
			continue
		}
		if _, guest := n.guests[e.row.Bib]; guest {
			rep.GuestsRemoved++
			continue
		}
		entries = append(entries, e)
	}
	renumber(entries)

	entries, err := n.applyPatches(round, race, entries, len(rows), &rep)
	if err != nil {
		return model.RaceResult{}, rep, err
	}

	athletes, err := n.classify(round, race, entries)
	if err != nil {
		return model.RaceResult{}, rep, err
	}
	Rank(athletes)

	return model.RaceResult{Round: round, Race: race, Athletes: athletes}, rep, nil
}

func (n *Normalizer) parse(row model.RawRow, seq int) (entry, *model.MalformedRowError) {
	row.Name = n.CleanName(row.Name)
	row.Club = collapse(row.Club)
	row.Bib = strings.TrimSpace(row.Bib)
	row.Category = strings.TrimSpace(row.Category)

	bad := func(reason string) *model.MalformedRowError {
		return &model.MalformedRowError{Line: row.Line, Bib: row.Bib, Reason: reason}
	}
	if row.Name == "" {
		return entry{}, bad("empty name")
	}
	if row.Club == "" {
		return entry{}, bad("empty club")
	}
	elapsed, err := ParseRaceTime(row.Time)
	if err != nil {
		return entry{}, bad(err.Error())
	}

	e := entry{seq: seq, row: row, elapsed: elapsed}
	if pos, err := strconv.Atoi(strings.TrimSpace(row.Position)); err == nil && pos > 0 {
		e.pos, e.hasPos = pos, true
	}
	return e, nil
}

// CleanName applies the configured replacements and collapses whitespace.
func (n *Normalizer) CleanName(name string) string {
	for _, r := range n.replacements {
		name = strings.ReplaceAll(name, r.From, r.To)
	}
	return collapse(name)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// renumber orders entries by (position, time) and rewrites positions as
// 1..N. Entries without a usable position go last.
func renumber(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.hasPos != b.hasPos {
			return a.hasPos
		}
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		if a.elapsed != b.elapsed {
			return a.elapsed < b.elapsed
		}
		return a.seq < b.seq
	})
	for i := range entries {
		entries[i].pos = i + 1
		entries[i].hasPos = true
	}
}

func (n *Normalizer) applyPatches(round, race string, entries []entry, seq int, rep *Report) ([]entry, error) {
	for _, p := range n.patches[raceKey{round: round, race: race}] {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		switch p.Op {
		case OpRemove:
			kept := entries[:0]
			for _, e := range entries {
				if e.row.Bib != p.Bib {
					kept = append(kept, e)
				}
			}
			if len(kept) == len(entries) {
				rep.PatchesSkipped = append(rep.PatchesSkipped, p)
				continue
			}
			entries = kept
		case OpInsert:
			e, bad := n.parse(p.row(), seq)
			if bad != nil {
				return nil, errors.Join(ErrInvalidPatch, bad)
			}
			seq++
			for i := range entries {
				if entries[i].pos >= p.Position {
					entries[i].pos++
				}
			}
			entries = append(entries, e)
		}
		renumber(entries)
		rep.PatchesApplied++
	}
	return entries, nil
}

func (n *Normalizer) classify(round, race string, entries []entry) ([]model.Athlete, error) {
	athletes := make([]model.Athlete, 0, len(entries))
	var errs error
	for _, e := range entries {
		gender, err := n.resolver.ResolveGender(e.row, race)
		if err != nil {
			var ug *model.UndeterminedGenderError
			if errors.As(err, &ug) {
				ug.Round, ug.Race, ug.Bib = round, race, e.row.Bib
			}
			errs = multierr.Append(errs, err)
			continue
		}

		label := race
		if c := strings.TrimSpace(e.row.Category); e.row.HasCategory && c != "" {
			label = c
		}
		code, err := n.resolver.ResolveCategory(gender, label)
		if err != nil {
			var um *model.UnmappedCategoryError
			if errors.As(err, &um) {
				um.Round, um.Race, um.Bib = round, race, e.row.Bib
			}
			errs = multierr.Append(errs, err)
			continue
		}

		athletes = append(athletes, model.Athlete{
			Name:        e.row.Name,
			Club:        e.row.Club,
			Bib:         e.row.Bib,
			Position:    e.pos,
			Time:        e.elapsed,
			Gender:      gender,
			Category:    code,
			RawCategory: e.row.Category,
		})
	}
	if errs != nil {
		return nil, errs
	}
	return athletes, nil
}

// Rank recomputes CategoryPosition and GenderPosition from Position order.
// Prior values are ignored.
func Rank(athletes []model.Athlete) {
	sort.SliceStable(athletes, func(i, j int) bool {
		return athletes[i].Position < athletes[j].Position
	})
	byCategory := make(map[string]int)
	byGender := make(map[model.Gender]int)
	for i := range athletes {
		byCategory[athletes[i].Category]++
		byGender[athletes[i].Gender]++
		athletes[i].CategoryPosition = byCategory[athletes[i].Category]
		athletes[i].GenderPosition = byGender[athletes[i].Gender]
	}
}
