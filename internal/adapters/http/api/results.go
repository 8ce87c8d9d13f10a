package api

import (
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/domain/normalize"
)

// ResultsHandler serves per-round race and team results and run history.
type ResultsHandler struct {
	reader  Reader
	catalog Catalog
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(reader Reader, catalog Catalog) *ResultsHandler {
	return &ResultsHandler{reader: reader, catalog: catalog}
}

type athleteResponse struct {
	Pos      int    `json:"pos"`
	Bib      string `json:"bib"`
	Name     string `json:"name"`
	Club     string `json:"club"`
	Gender   string `json:"gender"`
	Category string `json:"category"`
	Time     string `json:"time"`
	CatPos   int    `json:"cat_pos"`
	GenPos   int    `json:"gen_pos"`
}

func newAthleteResponse(a model.Athlete, _ int) athleteResponse {
	return athleteResponse{
		Pos:      a.Position,
		Bib:      a.Bib,
		Name:     a.Name,
		Club:     a.Club,
		Gender:   string(a.Gender),
		Category: a.Category,
		Time:     normalize.FormatRaceTime(a.Time),
		CatPos:   a.CategoryPosition,
		GenPos:   a.GenderPosition,
	}
}

type raceResponse struct {
	Round    string            `json:"round"`
	Race     string            `json:"race"`
	Athletes []athleteResponse `json:"athletes"`
}

type teamResponse struct {
	Pos     int               `json:"pos"`
	Team    string            `json:"team"`
	Score   int               `json:"score"`
	Members []athleteResponse `json:"members"`
}

type teamsResponse struct {
	Round    string         `json:"round"`
	Category string         `json:"category"`
	TeamSize int            `json:"team_size"`
	Teams    []teamResponse `json:"teams"`
}

type roundResponse struct {
	Round string   `json:"round"`
	Races []string `json:"races"`
}

// HandleRounds handles GET /rounds requests.
func (h *ResultsHandler) HandleRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.reader.ListRounds(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]roundResponse, 0, len(rounds))
	for _, round := range rounds {
		races, err := h.reader.ListRaces(r.Context(), round)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		out = append(out, roundResponse{Round: round, Races: races})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRace handles GET /rounds/{round}/races/{race} requests.
func (h *ResultsHandler) HandleRace(w http.ResponseWriter, r *http.Request) {
	res, err := h.reader.LoadRaceResult(r.Context(), r.PathValue("round"), r.PathValue("race"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raceResponse{
		Round:    res.Round,
		Race:     res.Race,
		Athletes: lo.Map(res.Athletes, newAthleteResponse),
	})
}

// HandleTeams handles GET /rounds/{round}/teams/{code} requests.
func (h *ResultsHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if def, ok := h.catalog.Category(code); !ok || !def.IsTeam() {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: team category %s", ErrNotFound, code))
		return
	}
	tr, err := h.reader.LoadTeamResult(r.Context(), r.PathValue("round"), code)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teamsResponse{
		Round:    tr.Round,
		Category: tr.Category,
		TeamSize: tr.TeamSize,
		Teams: lo.Map(tr.Teams, func(t model.Team, _ int) teamResponse {
			return teamResponse{
				Pos:     t.Position,
				Team:    t.Name(),
				Score:   t.Score,
				Members: lo.Map(t.Members, newAthleteResponse),
			}
		}),
	})
}

// HandleRuns handles GET /runs requests.
func (h *ResultsHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.reader.Runs(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
