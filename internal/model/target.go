package model

import (
	"strconv"
	"strings"
)

// GeoTargetPrefix is the namespace prefix of resolved platform identifiers.
const GeoTargetPrefix = "geoTargetConstants/"

// DesiredLocation is either a human-readable name still to be resolved or an
// identifier already in the platform's namespace.
type DesiredLocation struct {
	value    string
	resolved bool
}

// Name returns a DesiredLocation that must be resolved through the index.
func Name(name string) DesiredLocation {
	return DesiredLocation{value: name}
}

// ResolvedID returns a DesiredLocation carrying a platform identifier.
func ResolvedID(id string) DesiredLocation {
	return DesiredLocation{value: id, resolved: true}
}

// Value returns the raw name or identifier.
func (d DesiredLocation) Value() string { return d.value }

// IsResolved reports whether the location is already a platform identifier.
func (d DesiredLocation) IsResolved() bool { return d.resolved }

func (d DesiredLocation) String() string { return d.value }

// ParseDesired normalizes raw location input: comma-joined entries are split,
// whitespace trimmed, blanks dropped, and each entry tagged by prefix.
func ParseDesired(raw []string) []DesiredLocation {
	var out []DesiredLocation
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.HasPrefix(part, GeoTargetPrefix) {
				out = append(out, ResolvedID(part))
			} else {
				out = append(out, Name(part))
			}
		}
	}
	return out
}

// GeoTargetID formats a criteria id in the platform namespace.
func GeoTargetID(criteriaID string) string {
	return GeoTargetPrefix + strings.TrimSpace(criteriaID)
}

// CriteriaNumber extracts the numeric criteria id from an identifier in any
// of the platform's formats: "geoTargetConstants/1014221", "1014221", or a
// criterion resource name ending in "~1014221".
func CriteriaNumber(id string) (int64, bool) {
	id = strings.TrimSpace(id)
	if i := strings.LastIndexAny(id, "/~"); i >= 0 {
		id = id[i+1:]
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ExistingTarget is a location criterion currently applied to a campaign.
type ExistingTarget struct {
	ResourceName string `json:"resource_name"`
	CriteriaID   string `json:"criteria_id"`
}

// ReconciliationResult reports what a reconciliation applied. TotalCount is
// derived locally as existing + added - removed and is not re-read from the
// platform; TotalCountEstimated flags that.
type ReconciliationResult struct {
	AppliedGeoTargets   []string `json:"applied_geo_targets"`
	AddedCount          int      `json:"added_count"`
	RemovedCount        int      `json:"removed_count"`
	TotalCount          int      `json:"total_count"`
	TotalCountEstimated bool     `json:"total_count_estimated"`
	Unresolved          []string `json:"unresolved,omitempty"`
}
