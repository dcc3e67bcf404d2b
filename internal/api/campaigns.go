package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/platform"
	"github.com/sells-group/geotarget/internal/reconcile"
)

// locationList accepts a comma-joined string or an array of strings.
type locationList []string

func (l *locationList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = locationList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("locations must be a string or an array of strings")
	}
	*l = many
	return nil
}

type geoTargetsRequest struct {
	CampaignID        string       `json:"campaign_id"`
	Locations         locationList `json:"locations"`
	LocationsToRemove []string     `json:"locations_to_remove"`
	CountryCode       string       `json:"country_code"`
	SelectedStates    []string     `json:"selected_states"`
}

// handleGeoTargets serves POST /api/campaigns/geo_targets.
func (s *Server) handleGeoTargets(w http.ResponseWriter, r *http.Request) {
	var req geoTargetsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		writeError(w, http.StatusBadRequest, "campaign_id is required")
		return
	}

	desired := model.ParseDesired(req.Locations)
	var toRemove []string
	for _, h := range req.LocationsToRemove {
		if h = strings.TrimSpace(h); h != "" {
			toRemove = append(toRemove, h)
		}
	}
	if len(desired) == 0 && len(toRemove) == 0 {
		writeError(w, http.StatusBadRequest, "locations or locations_to_remove is required")
		return
	}

	if s.deps.Reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "ad platform is not configured")
		return
	}

	wl, status, msg := s.requestWhitelist(r, req.SelectedStates)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	start := time.Now()
	res, err := s.deps.Reconciler.Apply(r.Context(), reconcile.Request{
		CampaignID:  strings.TrimSpace(req.CampaignID),
		Desired:     desired,
		CountryCode: req.CountryCode,
		Whitelist:   wl,
		ToRemove:    toRemove,
	})
	s.deps.Metrics.ObserveReconcile(res, err, time.Since(start))
	if err != nil {
		s.log.Error("api: geo-target update failed",
			zap.String("campaign_id", req.CampaignID),
			zap.Error(err),
		)
		var pe *platform.Error
		if errors.As(err, &pe) {
			writeError(w, http.StatusBadGateway, pe.Message)
			return
		}
		writeError(w, http.StatusBadGateway, "ad platform request failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
