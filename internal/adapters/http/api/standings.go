package api

import (
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"github.com/okian/xcleague/internal/domain/model"
)

// StandingsHandler serves cumulative standings.
type StandingsHandler struct {
	reader  Reader
	catalog Catalog
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(reader Reader, catalog Catalog) *StandingsHandler {
	return &StandingsHandler{reader: reader, catalog: catalog}
}

type standingsEntry struct {
	Pos      int            `json:"pos"`
	Name     string         `json:"name"`
	Club     string         `json:"club"`
	Label    string         `json:"label,omitempty"`
	Division string         `json:"division,omitempty"`
	Rounds   map[string]int `json:"rounds"`
	// Total is null while no valid total exists.
	Total *int `json:"total"`
}

type standingsResponse struct {
	Category        string              `json:"category"`
	Name            string              `json:"name"`
	Kind            model.StandingsKind `json:"kind"`
	Rounds          []string            `json:"rounds"`
	RoundsProcessed int                 `json:"rounds_processed"`
	RoundsCounted   int                 `json:"rounds_counted"`
	Entries         []standingsEntry    `json:"entries"`
}

// HandleGet handles GET /standings/{code}?kind=individual|team requests.
// Without kind, the category's first table is served.
func (h *StandingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	def, ok := h.catalog.Category(code)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: category %s", ErrNotFound, code))
		return
	}

	kinds := standingsKinds(def)
	kind := kinds[0]
	if q := r.URL.Query().Get("kind"); q != "" {
		kind = model.StandingsKind(q)
		if !lo.Contains(kinds, kind) {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %s has no %s standings", ErrBadRequest, code, q))
			return
		}
	}

	s, err := h.reader.LoadStandings(r.Context(), code, kind)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStandingsResponse(def, s))
}

func newStandingsResponse(def model.CategoryDefinition, s model.Standings) standingsResponse {
	resp := standingsResponse{
		Category:        s.Category,
		Name:            def.Name,
		Kind:            s.Kind,
		Rounds:          s.Rounds,
		RoundsProcessed: s.RoundsProcessed,
		RoundsCounted:   s.RoundsCounted,
		Entries:         make([]standingsEntry, 0, len(s.Records)),
	}
	for i, rec := range s.Records {
		e := standingsEntry{
			Pos:      i + 1,
			Name:     rec.DisplayName(),
			Club:     rec.Club,
			Label:    rec.Label,
			Division: rec.Division,
			Rounds:   rec.RoundScores,
		}
		if rec.Valid() {
			e.Total = &rec.Total
		}
		resp.Entries = append(resp.Entries, e)
	}
	return resp
}
