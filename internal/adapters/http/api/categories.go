package api

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/okian/xcleague/internal/domain/model"
)

// CategoryHandler lists the league's categories.
type CategoryHandler struct {
	catalog Catalog
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(catalog Catalog) *CategoryHandler {
	return &CategoryHandler{catalog: catalog}
}

type categoryResponse struct {
	model.CategoryDefinition
	Standings []model.StandingsKind `json:"standings"`
}

// HandleList handles GET /categories requests.
func (h *CategoryHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(h.catalog.Categories(), func(d model.CategoryDefinition, _ int) categoryResponse {
		return categoryResponse{CategoryDefinition: d, Standings: standingsKinds(d)}
	}))
}

// standingsKinds lists the tables a category produces, individual first.
func standingsKinds(d model.CategoryDefinition) []model.StandingsKind {
	kinds := make([]model.StandingsKind, 0, 2)
	if d.HasIndividualStandings() {
		kinds = append(kinds, model.IndividualStandings)
	}
	if d.IsTeam() {
		kinds = append(kinds, model.TeamStandings)
	}
	return kinds
}
