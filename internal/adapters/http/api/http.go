// Package api serves stored race results and standings over a read-only
// JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/xcleague/internal/adapters/repository"
	"github.com/okian/xcleague/internal/domain/model"
)

// Reader is the read side of the results repository.
type Reader interface {
	LoadRaceResult(ctx context.Context, round, race string) (model.RaceResult, error)
	LoadTeamResult(ctx context.Context, round, category string) (model.TeamResult, error)
	LoadStandings(ctx context.Context, category string, kind model.StandingsKind) (model.Standings, error)
	ListRounds(ctx context.Context) ([]string, error)
	ListRaces(ctx context.Context, round string) ([]string, error)
	Runs(ctx context.Context) ([]repository.Run, error)
}

// Catalog describes the league's categories.
type Catalog interface {
	Categories() []model.CategoryDefinition
	Category(code string) (model.CategoryDefinition, bool)
}

// Server wires HTTP routes for the results API.
type Server struct {
	healthHandler    *HealthHandler
	categoryHandler  *CategoryHandler
	standingsHandler *StandingsHandler
	resultsHandler   *ResultsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(reader Reader, catalog Catalog) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		categoryHandler:  NewCategoryHandler(catalog),
		standingsHandler: NewStandingsHandler(reader, catalog),
		resultsHandler:   NewResultsHandler(reader, catalog),
	}
}

// Register attaches all HTTP routes to mux. Every route answers GET only.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(getOnly(h), endpoint))
	}
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/metrics", "metrics", s.healthHandler.HandleMetrics)
	route("/categories", "categories", s.categoryHandler.HandleList)
	route("/standings/{code}", "standings", s.standingsHandler.HandleGet)
	route("/rounds", "rounds", s.resultsHandler.HandleRounds)
	route("/rounds/{round}/races/{race}", "race", s.resultsHandler.HandleRace)
	route("/rounds/{round}/teams/{code}", "teams", s.resultsHandler.HandleTeams)
	route("/runs", "runs", s.resultsHandler.HandleRuns)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError maps repository errors to status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidKey), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
