package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/domain/normalize"
)

// Normalized and derived table column names.
const (
	ColCatPos   = "Cat Pos"
	ColGenPos   = "Gen Pos"
	ColTeam     = "Team"
	ColScore    = "Score"
	ColDivision = "Division"
	colRunner   = "Runner"
)

var raceResultHeader = []string{ColPos, ColBib, ColName, ColClub, ColGender, ColCategory, ColTime, ColCatPos, ColGenPos}

// WriteRaceResult encodes a normalized race as CSV.
func WriteRaceResult(w io.Writer, r model.RaceResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(raceResultHeader); err != nil {
		return err
	}
	for _, a := range r.Athletes {
		if err := cw.Write([]string{
			strconv.Itoa(a.Position),
			a.Bib,
			a.Name,
			a.Club,
			string(a.Gender),
			a.Category,
			normalize.FormatRaceTime(a.Time),
			strconv.Itoa(a.CategoryPosition),
			strconv.Itoa(a.GenderPosition),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRaceResult decodes a normalized race written by WriteRaceResult.
func ReadRaceResult(ctx context.Context, r io.Reader, round, race string) (model.RaceResult, error) {
	out := model.RaceResult{Round: round, Race: race}
	_, err := readTable(ctx, r, raceResultHeader, func(h header, rec []string) error {
		a := model.Athlete{
			Bib:      get(h, rec, ColBib),
			Name:     get(h, rec, ColName),
			Club:     get(h, rec, ColClub),
			Category: get(h, rec, ColCategory),
		}
		g, ok := model.ParseGender(get(h, rec, ColGender))
		if !ok {
			return fmt.Errorf("%w: gender %q", ErrBadRecord, get(h, rec, ColGender))
		}
		a.Gender = g
		var err error
		if a.Time, err = normalize.ParseRaceTime(get(h, rec, ColTime)); err != nil {
			return err
		}
		if a.Position, err = atoi(h, rec, ColPos); err != nil {
			return err
		}
		if a.CategoryPosition, err = atoi(h, rec, ColCatPos); err != nil {
			return err
		}
		if a.GenderPosition, err = atoi(h, rec, ColGenPos); err != nil {
			return err
		}
		out.Athletes = append(out.Athletes, a)
		return nil
	})
	if err != nil {
		return model.RaceResult{}, fmt.Errorf("%s/%s: %w", round, race, err)
	}
	return out, nil
}

// WriteTeamResult encodes a round's team table with one Runner column per
// team place, each cell holding "Name (gender position)".
func WriteTeamResult(w io.Writer, tr model.TeamResult) error {
	cw := csv.NewWriter(w)
	head := []string{ColPos, ColTeam, ColScore}
	for i := 1; i <= tr.TeamSize; i++ {
		head = append(head, colRunner+strconv.Itoa(i))
	}
	if err := cw.Write(head); err != nil {
		return err
	}
	for _, t := range tr.Teams {
		rec := make([]string, len(head))
		rec[0] = strconv.Itoa(t.Position)
		rec[1] = t.Name()
		rec[2] = strconv.Itoa(t.Score)
		for i, m := range t.Members {
			if 3+i < len(rec) {
				rec[3+i] = fmt.Sprintf("%s (%d)", m.Name, m.GenderPosition)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTeamResult decodes a team table written by WriteTeamResult. Members
// carry only their name, club and gender position.
func ReadTeamResult(ctx context.Context, r io.Reader, round, category string) (model.TeamResult, error) {
	out := model.TeamResult{Round: round, Category: category}
	h, err := readTable(ctx, r, []string{ColPos, ColTeam, ColScore}, func(h header, rec []string) error {
		runners := runnerColumns(h)
		club, label, err := splitTeamName(get(h, rec, ColTeam))
		if err != nil {
			return err
		}
		t := model.Team{Club: club, Label: label, Category: category}
		if t.Position, err = atoi(h, rec, ColPos); err != nil {
			return err
		}
		if t.Score, err = atoi(h, rec, ColScore); err != nil {
			return err
		}
		for _, i := range runners {
			cell := strings.TrimSpace(field(rec, i))
			if cell == "" {
				continue
			}
			m, err := parseRunner(cell)
			if err != nil {
				return err
			}
			m.Club = club
			m.Category = category
			t.Members = append(t.Members, m)
		}
		out.Teams = append(out.Teams, t)
		return nil
	})
	if err != nil {
		return model.TeamResult{}, fmt.Errorf("%s/teams/%s: %w", round, category, err)
	}
	out.TeamSize = len(runnerColumns(h))
	return out, nil
}

func runnerColumns(h header) []int {
	var cols []int
	for i := 1; ; i++ {
		idx, ok := h.index(colRunner + strconv.Itoa(i))
		if !ok {
			return cols
		}
		cols = append(cols, idx)
	}
}

func splitTeamName(s string) (club, label string, err error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, ' ')
	if i <= 0 {
		return "", "", fmt.Errorf("%w: team %q has no label", ErrBadRecord, s)
	}
	return s[:i], s[i+1:], nil
}

func parseRunner(cell string) (model.Athlete, error) {
	open := strings.LastIndex(cell, " (")
	if open < 0 || !strings.HasSuffix(cell, ")") {
		return model.Athlete{}, fmt.Errorf("%w: runner %q", ErrBadRecord, cell)
	}
	pos, err := strconv.Atoi(cell[open+2 : len(cell)-1])
	if err != nil {
		return model.Athlete{}, fmt.Errorf("%w: runner %q", ErrBadRecord, cell)
	}
	return model.Athlete{Name: cell[:open], GenderPosition: pos}, nil
}

// WriteStandings encodes a cumulative table: identity columns, one column
// per configured round and the total. Missing round scores and invalid
// totals are empty cells. Team tables carry a Division column when any
// team has one.
func WriteStandings(w io.Writer, s model.Standings) error {
	cw := csv.NewWriter(w)
	team := s.Kind == model.TeamStandings
	withDivision := team && hasDivision(s.Records)

	var head []string
	if team {
		head = append(head, ColTeam)
		if withDivision {
			head = append(head, ColDivision)
		}
	} else {
		head = append(head, ColName, ColClub)
	}
	head = append(head, s.Rounds...)
	head = append(head, ColScore)
	if err := cw.Write(head); err != nil {
		return err
	}

	for i := range s.Records {
		rec := &s.Records[i]
		var row []string
		if team {
			row = append(row, rec.DisplayName())
			if withDivision {
				row = append(row, rec.Division)
			}
		} else {
			row = append(row, rec.Name, rec.Club)
		}
		for _, round := range s.Rounds {
			if v, ok := rec.RoundScores[round]; ok {
				row = append(row, strconv.Itoa(v))
			} else {
				row = append(row, "")
			}
		}
		if rec.Valid() {
			row = append(row, strconv.Itoa(rec.Total))
		} else {
			row = append(row, "")
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func hasDivision(records []model.ScoreRecord) bool {
	for _, r := range records {
		if r.Division != "" {
			return true
		}
	}
	return false
}

// ReadStandings decodes a table written by WriteStandings. Rounds are the
// round columns in header order; RoundsProcessed counts those holding at
// least one score.
func ReadStandings(ctx context.Context, r io.Reader, category string, kind model.StandingsKind) (model.Standings, error) {
	out := model.Standings{Category: category, Kind: kind}
	identity := []string{ColName, ColClub}
	if kind == model.TeamStandings {
		identity = []string{ColTeam}
	}
	seen := make(map[string]bool)
	h, err := readTable(ctx, r, append(identity, ColScore), func(h header, rec []string) error {
		rounds, names := roundColumns(h)
		var sr *model.ScoreRecord
		if kind == model.TeamStandings {
			club, label, err := splitTeamName(get(h, rec, ColTeam))
			if err != nil {
				return err
			}
			sr = model.NewTeamRecord(club, label)
			sr.Division = get(h, rec, ColDivision)
		} else {
			sr = model.NewAthleteRecord(get(h, rec, ColName), get(h, rec, ColClub))
		}
		for j, idx := range rounds {
			cell := strings.TrimSpace(field(rec, idx))
			if cell == "" {
				continue
			}
			v, err := strconv.Atoi(cell)
			if err != nil {
				return fmt.Errorf("%w: round %s score %q", ErrBadRecord, names[j], cell)
			}
			if err := sr.AddRoundScore(names[j], v); err != nil {
				return err
			}
			seen[names[j]] = true
		}
		sr.Total = model.InvalidScore
		if cell := get(h, rec, ColScore); cell != "" {
			v, err := strconv.Atoi(cell)
			if err != nil {
				return fmt.Errorf("%w: score %q", ErrBadRecord, cell)
			}
			sr.Total = v
		}
		out.Records = append(out.Records, *sr)
		return nil
	})
	if err != nil {
		return model.Standings{}, fmt.Errorf("scores/%s: %w", category, err)
	}
	_, out.Rounds = roundColumns(h)
	out.RoundsProcessed = len(seen)
	out.RoundsCounted = model.RoundsToCount(out.RoundsProcessed)
	return out, nil
}

func roundColumns(h header) ([]int, []string) {
	reserved := map[string]bool{}
	for _, c := range []string{ColName, ColClub, ColTeam, ColDivision, ColScore} {
		reserved[strings.ToLower(c)] = true
	}
	var (
		idx   []int
		names []string
	)
	for i, name := range h.names {
		if name == "" || reserved[strings.ToLower(name)] {
			continue
		}
		idx = append(idx, i)
		names = append(names, name)
	}
	return idx, names
}

// readTable reads a UTF-8 CSV table, checks required columns and calls fn
// for every non-blank record. The returned header keeps the file's own
// column names.
func readTable(ctx context.Context, r io.Reader, required []string, fn func(h header, rec []string) error) (header, error) {
	data, err := Decode(r)
	if err != nil {
		return header{}, err
	}
	cr := newReader(data)
	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return header{}, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return header{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	h := newHeader(first)
	if err := h.require(required...); err != nil {
		return header{}, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return header{}, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return h, nil
		}
		if err != nil {
			return header{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if blank(rec) {
			continue
		}
		if err := fn(h, rec); err != nil {
			line, _ := cr.FieldPos(0)
			return header{}, fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func get(h header, rec []string, name string) string {
	i, ok := h.index(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(field(rec, i))
}

func atoi(h header, rec []string, name string) (int, error) {
	v, err := strconv.Atoi(get(h, rec, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrBadRecord, name, get(h, rec, name))
	}
	return v, nil
}
