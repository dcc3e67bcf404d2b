package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/region"
)

type statesResponse struct {
	SelectedStates []string `json:"selected_states"`
	AnySelected    bool     `json:"any_selected"`
}

type replaceStatesRequest struct {
	StateCodes []string `json:"state_codes"`
	States     []string `json:"states"`
}

type statesMutationResponse struct {
	Success        bool     `json:"success"`
	SelectedStates []string `json:"selected_states"`
}

func (s *Server) handleGetStates(w http.ResponseWriter, r *http.Request) {
	wl, err := s.sessionWhitelist(r)
	if err != nil {
		s.log.Error("api: load session whitelist", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load selected states")
		return
	}
	writeJSON(w, http.StatusOK, statesResponse{SelectedStates: wl.Codes(), AnySelected: wl.AnySelected()})
}

// handleReplaceStates accepts either "state_codes" or "states".
func (s *Server) handleReplaceStates(w http.ResponseWriter, r *http.Request) {
	var req replaceStatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	codes := req.StateCodes
	if codes == nil {
		codes = req.States
	}

	wl, err := s.deps.Sessions.Replace(r.Context(), sessionID(r.Context()), codes)
	if err != nil {
		var invalid *region.InvalidCodesError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusUnprocessableEntity, invalid.Error())
			return
		}
		s.log.Error("api: replace session whitelist", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save selected states")
		return
	}
	writeJSON(w, http.StatusOK, statesMutationResponse{Success: true, SelectedStates: wl.Codes()})
}

func (s *Server) handleClearStates(w http.ResponseWriter, r *http.Request) {
	wl, err := s.deps.Sessions.Clear(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.log.Error("api: clear session whitelist", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not clear selected states")
		return
	}
	writeJSON(w, http.StatusOK, statesMutationResponse{Success: true, SelectedStates: wl.Codes()})
}
