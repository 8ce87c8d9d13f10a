// Package teams splits a race's finishers into club teams and scores them.
package teams

import (
	"sort"

	"github.com/samber/lo"

	"github.com/okian/xcleague/internal/domain/model"
)

// Builder builds ranked team tables. The zero value is ready to use.
type Builder struct{}

// New returns a Builder.
func New() *Builder {
	return &Builder{}
}

// Build forms the teams of def from one round's normalized race result.
//
// Pooled categories draw every athlete of the category's gender, others
// only athletes resolved to def.Code. Each club's athletes, ordered by
// gender position, are cut into consecutive chunks of the team size and
// labelled A, B, C. Chunks smaller than model.MinTeamSize are dropped.
// Missing members cost one more than the size of the selection pool.
func (b *Builder) Build(race model.RaceResult, def model.CategoryDefinition) (model.TeamResult, error) {
	if !def.IsTeam() {
		return model.TeamResult{}, &model.NotATeamCategoryError{Code: def.Code}
	}
	size := def.TeamSize
	if size < 1 {
		return model.TeamResult{}, &model.ConfigurationError{Code: def.Code, Reason: "team category without team size"}
	}

	var pool []model.Athlete
	if def.Pooled {
		pool = race.OfGender(def.Gender)
	} else {
		pool = race.InCategory(def.Code)
	}
	penalty := len(pool) + 1

	out := model.TeamResult{Round: race.Round, Category: def.Code, TeamSize: size}
	byClub := lo.GroupBy(pool, func(a model.Athlete) string { return a.Club })
	for club, members := range byClub {
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].GenderPosition < members[j].GenderPosition
		})
		for i, chunk := range lo.Chunk(members, size) {
			if len(chunk) < model.MinTeamSize(size) {
				out.Discarded++
				continue
			}
			positions := lo.Map(chunk, func(a model.Athlete, _ int) int { return a.GenderPosition })
			out.Teams = append(out.Teams, model.Team{
				Club:     club,
				Label:    Label(i),
				Category: def.Code,
				Score:    model.TeamScore(positions, size, penalty),
				Members:  chunk,
			})
		}
	}

	sort.Slice(out.Teams, func(i, j int) bool {
		a, b := out.Teams[i], out.Teams[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.Club != b.Club {
			return a.Club < b.Club
		}
		return labelLess(a.Label, b.Label)
	})
	for i := range out.Teams {
		out.Teams[i].Position = i + 1
	}
	return out, nil
}

// Label returns the team letter for the i-th chunk of a club, counting
// from zero: A..Z, then AA, AB and so on.
func Label(i int) string {
	var buf []byte
	for i >= 0 {
		buf = append([]byte{byte('A' + i%26)}, buf...)
		i = i/26 - 1
	}
	return string(buf)
}

func labelLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
