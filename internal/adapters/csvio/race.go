package csvio

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/xcleague/internal/domain/model"
)

// Raw export column names, matched case-insensitively.
const (
	ColName     = "Name"
	ColClub     = "Club"
	ColBib      = "Race No"
	ColPos      = "Pos"
	ColTime     = "Time"
	ColGender   = "Gender"
	ColCategory = "Category"

	ColRaceCategory = "Race Category"
)

// header indexes a table's columns by trimmed, lowercased name. The first
// occurrence of a repeated name wins.
type header struct {
	cols  map[string]int
	names []string
}

func newHeader(record []string) header {
	h := header{cols: make(map[string]int, len(record)), names: make([]string, len(record))}
	for i, name := range record {
		h.names[i] = strings.TrimSpace(name)
		key := strings.ToLower(h.names[i])
		if _, dup := h.cols[key]; !dup {
			h.cols[key] = i
		}
	}
	return h
}

func (h header) index(name string) (int, bool) {
	i, ok := h.cols[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

func (h header) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h.index(n); !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func newReader(data []byte) *csv.Reader {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = SniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// ReadRaceFile decodes a raw race export into rows. Name, Club, Race No,
// Pos and Time are required columns; Gender and Category are optional and
// reported through RawRow.HasGender and RawRow.HasCategory. A non-blank
// Race Category cell takes precedence over Category. Blank lines are
// skipped.
func ReadRaceFile(ctx context.Context, r io.Reader, round, race string) ([]model.RawRow, error) {
	data, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", round, race, err)
	}
	cr := newReader(data)

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s/%s: %w: %s", round, race, ErrMissingColumn, "empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w: %w", round, race, ErrDecode, err)
	}
	h := newHeader(first)
	if err := h.require(ColName, ColClub, ColBib, ColPos, ColTime); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", round, race, err)
	}

	name, _ := h.index(ColName)
	club, _ := h.index(ColClub)
	bib, _ := h.index(ColBib)
	pos, _ := h.index(ColPos)
	tm, _ := h.index(ColTime)
	gender, hasGender := h.index(ColGender)
	category, hasCategory := h.index(ColCategory)
	raceCategory, hasRaceCategory := h.index(ColRaceCategory)

	var rows []model.RawRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w: %w", round, race, ErrDecode, err)
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		row := model.RawRow{
			Line:        line,
			Name:        field(record, name),
			Club:        field(record, club),
			Bib:         field(record, bib),
			Position:    field(record, pos),
			Time:        field(record, tm),
			HasGender:   hasGender,
			HasCategory: hasCategory || hasRaceCategory,
		}
		if hasGender {
			row.Gender = field(record, gender)
		}
		if hasRaceCategory {
			row.Category = field(record, raceCategory)
		}
		if hasCategory && strings.TrimSpace(row.Category) == "" {
			row.Category = field(record, category)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
