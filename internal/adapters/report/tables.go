// Package report turns cumulative standings into display tables and
// renders them as Excel workbooks and PDF documents.
package report

import (
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/okian/xcleague/internal/domain/model"
)

// Highlight marks a table row for emphasis.
type Highlight string

// Row highlights.
const (
	HighlightNone       Highlight = ""
	HighlightPromotion  Highlight = "promotion"
	HighlightRelegation Highlight = "relegation"
)

// movers is how many teams go up or down between adjacent divisions.
const movers = 2

// Table is one rendered standings table.
type Table struct {
	Title      string
	Sheet      string
	Category   string
	Kind       model.StandingsKind
	Division   string
	Header     []string
	Rows       [][]string
	Highlights []Highlight
}

type standingsKey struct {
	code string
	kind model.StandingsKind
}

// BuildTables lays out standings in category declaration order, the
// individual table of a code before its team table. Team tables whose
// records carry divisions are split per division, positions restarting in
// each; the top two of every division but the first are marked for
// promotion and the bottom two of every division but the last for
// relegation. Invalid totals render as empty cells.
func BuildTables(categories []model.CategoryDefinition, standings []model.Standings) []Table {
	byKey := lo.SliceToMap(standings, func(s model.Standings) (standingsKey, model.Standings) {
		return standingsKey{code: s.Category, kind: s.Kind}, s
	})

	var tables []Table
	for _, def := range categories {
		if s, ok := byKey[standingsKey{def.Code, model.IndividualStandings}]; ok {
			tables = append(tables, individualTable(def, s))
		}
		if s, ok := byKey[standingsKey{def.Code, model.TeamStandings}]; ok {
			tables = append(tables, teamTables(def, s)...)
		}
	}
	return tables
}

func individualTable(def model.CategoryDefinition, s model.Standings) Table {
	title := def.Name
	if def.Kind != model.KindOverall {
		title += " Individuals"
	}
	t := Table{
		Title:    title,
		Sheet:    def.Code,
		Category: def.Code,
		Kind:     model.IndividualStandings,
		Header:   append(append([]string{"Pos", "Name", "Club"}, s.Rounds...), "Score"),
	}
	for i := range s.Records {
		r := &s.Records[i]
		row := append([]string{strconv.Itoa(i + 1), r.Name, r.Club}, scoreCells(r, s.Rounds)...)
		t.Rows = append(t.Rows, row)
		t.Highlights = append(t.Highlights, HighlightNone)
	}
	return t
}

func teamTables(def model.CategoryDefinition, s model.Standings) []Table {
	header := append(append([]string{"Pos", "Team"}, s.Rounds...), "Score")
	groups := lo.GroupBy(s.Records, func(r model.ScoreRecord) string { return r.Division })
	divisions := lo.Keys(groups)
	sort.Slice(divisions, func(i, j int) bool { return divisionLess(divisions[i], divisions[j]) })

	if len(divisions) <= 1 && (len(divisions) == 0 || divisions[0] == "") {
		t := Table{Title: def.Name + " Teams", Sheet: def.Code + " Teams", Category: def.Code, Kind: model.TeamStandings, Header: header}
		fillTeamRows(&t, s.Records, s.Rounds, false, false)
		return []Table{t}
	}

	tables := make([]Table, 0, len(divisions))
	for i, div := range divisions {
		t := Table{
			Title:    def.Name + " Teams Division " + div,
			Sheet:    def.Code + " Teams D" + div,
			Category: def.Code,
			Kind:     model.TeamStandings,
			Division: div,
			Header:   header,
		}
		fillTeamRows(&t, groups[div], s.Rounds, i > 0, i < len(divisions)-1)
		tables = append(tables, t)
	}
	return tables
}

func fillTeamRows(t *Table, records []model.ScoreRecord, rounds []string, promote, relegate bool) {
	n := len(records)
	for i := range records {
		r := &records[i]
		pos := i + 1
		row := append([]string{strconv.Itoa(pos), r.DisplayName()}, scoreCells(r, rounds)...)
		h := HighlightNone
		switch {
		case promote && pos <= movers:
			h = HighlightPromotion
		case relegate && n > movers && pos > n-movers:
			h = HighlightRelegation
		}
		t.Rows = append(t.Rows, row)
		t.Highlights = append(t.Highlights, h)
	}
}

func scoreCells(r *model.ScoreRecord, rounds []string) []string {
	cells := make([]string, 0, len(rounds)+1)
	for _, round := range rounds {
		if v, ok := r.RoundScores[round]; ok {
			cells = append(cells, strconv.Itoa(v))
		} else {
			cells = append(cells, "")
		}
	}
	if r.Valid() {
		return append(cells, strconv.Itoa(r.Total))
	}
	return append(cells, "")
}

// divisionLess orders numeric divisions numerically and the rest after
// them lexically.
func divisionLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}
