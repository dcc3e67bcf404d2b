// Package reconcile brings a campaign's applied geo-targets in line with a
// desired set of locations.
package reconcile

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/addrindex"
	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/region"
)

// DefaultCountry is used when a request names no country.
const DefaultCountry = "US"

var zipRe = regexp.MustCompile(`^\d{5}$`)

// Platform is the ad platform's campaign targeting API. Implementations own
// transport, retries, and timeouts.
type Platform interface {
	// FetchExistingTargets lists the location criteria applied to a campaign.
	FetchExistingTargets(ctx context.Context, campaignID string) ([]model.ExistingTarget, error)
	// AddLocationTargets applies ids to a campaign and returns the resource
	// names actually created, which may be a subset.
	AddLocationTargets(ctx context.Context, campaignID string, ids []string) ([]string, error)
	// RemoveTargets removes criteria by resource name and returns the subset
	// actually removed.
	RemoveTargets(ctx context.Context, handles []string) ([]string, error)
}

// Request is one reconciliation call.
type Request struct {
	CampaignID  string
	Desired     []model.DesiredLocation
	CountryCode string
	Whitelist   region.Whitelist
	ToRemove    []string
}

// Reconciler resolves desired locations through the address index and
// applies the difference to the platform.
type Reconciler struct {
	index    addrindex.Index
	platform Platform
	log      *zap.Logger
}

// New creates a Reconciler.
func New(index addrindex.Index, platform Platform) *Reconciler {
	return &Reconciler{
		index:    index,
		platform: platform,
		log:      zap.L().With(zap.String("component", "reconcile")),
	}
}

// Apply removes req.ToRemove, resolves req.Desired, and adds whatever the
// campaign does not already carry. Platform errors are returned as-is.
//
// The call is not transactional. A concurrent Apply for the same campaign
// can interleave between the fetch and the add; callers that need
// exclusivity serialize per campaign.
func (r *Reconciler) Apply(ctx context.Context, req Request) (*model.ReconciliationResult, error) {
	res := &model.ReconciliationResult{
		AppliedGeoTargets: []string{},
		Unresolved:        []string{},
	}
	if len(req.Desired) == 0 && len(req.ToRemove) == 0 {
		return res, nil
	}

	log := r.log.With(zap.String("campaign_id", req.CampaignID))

	if len(req.ToRemove) > 0 {
		removed, err := r.platform.RemoveTargets(ctx, req.ToRemove)
		if err != nil {
			return nil, err
		}
		res.RemovedCount = len(removed)
		log.Info("reconcile: removed targets",
			zap.Int("requested", len(req.ToRemove)),
			zap.Int("removed", res.RemovedCount),
		)
	}

	country := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	if country == "" {
		country = DefaultCountry
	}

	var resolved []string
	for _, d := range req.Desired {
		ids := r.resolve(ctx, d, country, req.Whitelist)
		if len(ids) == 0 {
			log.Warn("reconcile: location not resolved", zap.String("location", d.Value()))
			res.Unresolved = append(res.Unresolved, d.Value())
			continue
		}
		resolved = append(resolved, ids...)
	}

	unique := uniqueTargets(resolved)
	if len(unique) == 0 {
		res.TotalCountEstimated = true
		return res, nil
	}
	res.AppliedGeoTargets = unique

	existing, err := r.platform.FetchExistingTargets(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(existing))
	for _, e := range existing {
		id := e.CriteriaID
		if strings.TrimSpace(id) == "" {
			id = e.ResourceName
		}
		present[targetKey(id)] = true
	}
	var toAdd []string
	for _, id := range unique {
		if !present[targetKey(id)] {
			toAdd = append(toAdd, id)
		}
	}

	if len(toAdd) > 0 {
		created, err := r.platform.AddLocationTargets(ctx, req.CampaignID, toAdd)
		if err != nil {
			return nil, err
		}
		res.AddedCount = len(created)
	}

	res.TotalCount = max(len(existing)+res.AddedCount-res.RemovedCount, 0)
	res.TotalCountEstimated = true

	log.Info("reconcile: applied geo targets",
		zap.Int("resolved", len(unique)),
		zap.Int("existing", len(existing)),
		zap.Int("requested_add", len(toAdd)),
		zap.Int("added", res.AddedCount),
		zap.Int("total", res.TotalCount),
	)
	return res, nil
}

// resolve maps one desired location to platform identifiers. A five-digit
// name is a postal code; anything else must match a city name exactly.
// Every matching row in a whitelisted region contributes its criteria id.
func (r *Reconciler) resolve(ctx context.Context, d model.DesiredLocation, country string, wl region.Whitelist) []string {
	if d.IsResolved() {
		return []string{d.Value()}
	}

	q := addrindex.Query{Regions: wl.Codes(), Country: country}
	name := strings.TrimSpace(d.Value())
	if zipRe.MatchString(name) {
		q.PostalCode = name
	} else {
		q.City = name
		q.CityExact = true
	}

	rows, err := r.index.Find(ctx, q)
	if err != nil {
		r.log.Warn("reconcile: index lookup failed", zap.String("location", name), zap.Error(err))
		return nil
	}
	var ids []string
	for _, row := range rows {
		if row.HasCriteriaID() {
			ids = append(ids, model.GeoTargetID(row.CriteriaID))
		}
	}
	return ids
}

// uniqueTargets drops identifiers that name the same criterion, keeping
// first-seen order.
func uniqueTargets(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		key := targetKey(id)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out
}

// targetKey compares identifiers by their numeric criteria id so different
// namespace formats of the same criterion collide.
func targetKey(id string) string {
	if n, ok := model.CriteriaNumber(id); ok {
		return strconv.FormatInt(n, 10)
	}
	return strings.TrimSpace(id)
}
