package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/region"
	"github.com/sells-group/geotarget/internal/validate"
)

type typeaheadItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// handleTypeahead serves GET /api/locations/search?q=&country_code=&limit=.
// Results are scoped to the session whitelist only; country_code is
// accepted for client compatibility and does not filter.
func (s *Server) handleTypeahead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	wl, err := s.sessionWhitelist(r)
	if err != nil {
		s.log.Error("api: load session whitelist", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load selected states")
		return
	}
	if err := validate.Gate(wl); err != nil {
		s.deps.Metrics.ObserveSearch("typeahead", "blocked", time.Since(start))
		writeError(w, http.StatusUnprocessableEntity, validate.BlockingMessage)
		return
	}

	cands := s.deps.Search.Search(r.Context(), q.Get("q"), wl, limit)
	items := make([]typeaheadItem, len(cands))
	for i, c := range cands {
		items[i] = typeaheadItem{ID: candidateID(c), Name: c.Display}
	}
	s.deps.Metrics.ObserveSearch("typeahead", outcome(len(items)), time.Since(start))
	writeJSON(w, http.StatusOK, items)
}

// candidateID is the platform identifier when the row has one. Otherwise it
// is the postal code, or the city when there is none, so that posting the id
// back to the geo-target endpoint names exactly one location.
func candidateID(c model.LocationCandidate) string {
	if strings.TrimSpace(c.CriteriaID) != "" {
		return model.GeoTargetID(c.CriteriaID)
	}
	if c.PostalCode != "" {
		return c.PostalCode
	}
	return c.City
}

func outcome(n int) string {
	if n == 0 {
		return "empty"
	}
	return "hit"
}

type batchSearchRequest struct {
	SearchTerms    string   `json:"search_terms"`
	SelectedStates []string `json:"selected_states"`
}

type batchResult struct {
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
	County     string `json:"county"`
	CriteriaID string `json:"criteria_id,omitempty"`
}

type batchSearchResponse struct {
	Success        bool          `json:"success"`
	Results        []batchResult `json:"results"`
	Unmatched      []string      `json:"unmatched"`
	Count          int           `json:"count"`
	UnmatchedCount int           `json:"unmatched_count"`
}

// handleBatchSearch serves POST /api/location_search/search. The whitelist
// comes from the request, not the session.
func (s *Server) handleBatchSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req batchSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SearchTerms) == "" {
		writeError(w, http.StatusBadRequest, "Search terms cannot be empty")
		return
	}
	if len(req.SelectedStates) == 0 {
		writeError(w, http.StatusBadRequest, "No states selected for search")
		return
	}
	wl, err := region.Replace(req.SelectedStates)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !wl.AnySelected() {
		writeError(w, http.StatusBadRequest, "No states selected for search")
		return
	}

	res := s.deps.Search.BatchSearch(r.Context(), req.SearchTerms, wl)
	out := batchSearchResponse{
		Success:        true,
		Results:        make([]batchResult, len(res.Results)),
		Unmatched:      res.Unmatched,
		Count:          len(res.Results),
		UnmatchedCount: len(res.Unmatched),
	}
	for i, c := range res.Results {
		out.Results[i] = batchResult{City: c.City, State: c.Region, ZipCode: c.PostalCode, County: c.County, CriteriaID: c.CriteriaID}
	}
	s.deps.Metrics.ObserveSearch("batch", outcome(out.Count), time.Since(start))
	writeJSON(w, http.StatusOK, out)
}
