package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/region"
	"github.com/sells-group/geotarget/internal/validate"
)

// maxBatchAddresses bounds one validation request.
const maxBatchAddresses = 1000

type validateRequest struct {
	Addresses      []model.AddressRecord `json:"addresses"`
	SelectedStates []string              `json:"selected_states"`
}

type validateResponse struct {
	Results []model.ValidationResult `json:"results"`
	Summary map[string]int           `json:"summary"`
}

// handleValidate serves POST /api/addresses/validate. The whitelist is the
// request's selected_states when given, else the session's.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Addresses) == 0 {
		writeError(w, http.StatusBadRequest, "addresses cannot be empty")
		return
	}
	if len(req.Addresses) > maxBatchAddresses {
		writeError(w, http.StatusBadRequest, "too many addresses in one request")
		return
	}

	wl, status, msg := s.requestWhitelist(r, req.SelectedStates)
	if status != 0 {
		writeError(w, status, msg)
		return
	}
	if err := validate.Gate(wl); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validate.BlockingMessage)
		return
	}

	results := s.deps.Validator.ValidateBatch(r.Context(), req.Addresses, wl)
	s.deps.Metrics.ObserveValidations(results)

	summary := make(map[string]int, 4)
	for _, res := range results {
		summary[string(res.Classification)]++
	}
	writeJSON(w, http.StatusOK, validateResponse{Results: results, Summary: summary})
}

// requestWhitelist resolves an explicit selected_states list, falling back
// to the session when the request carries none. A non-zero status means the
// caller should answer with that status and message.
func (s *Server) requestWhitelist(r *http.Request, selected []string) (region.Whitelist, int, string) {
	if selected != nil {
		wl, err := region.Replace(selected)
		if err != nil {
			return region.Whitelist{}, http.StatusUnprocessableEntity, err.Error()
		}
		return wl, 0, ""
	}
	wl, err := s.sessionWhitelist(r)
	if err != nil {
		s.log.Error("api: load session whitelist", zap.Error(err))
		return region.Whitelist{}, http.StatusInternalServerError, "could not load selected states"
	}
	return wl, 0, ""
}
