// Package addrindex is the read-only offline address index: postal code,
// city, county, region, country, and the ad platform criteria id.
package addrindex

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/geotarget/internal/model"
)

// Index answers scoped lookups over AddressMapping rows.
type Index interface {
	// Find returns rows matching every non-blank criterion of q, ordered by
	// region, city, then postal code.
	Find(ctx context.Context, q Query) ([]model.AddressMapping, error)
	// Count returns the number of indexed rows.
	Count(ctx context.Context) (int, error)
}

// Query is a conjunctive lookup. PostalCode matches exactly; City and
// County match as case-insensitive substrings (City exactly when CityExact).
// Regions nil means unscoped; a non-nil empty slice matches nothing.
type Query struct {
	PostalCode string
	City       string
	CityExact  bool
	County     string
	Regions    []string
	Country    string
	Limit      int
}

// HasCriteria reports whether the query names a postal code, city, or county.
// Queries without criteria return no rows rather than the whole index.
func (q Query) HasCriteria() bool {
	return strings.TrimSpace(q.PostalCode) != "" ||
		strings.TrimSpace(q.City) != "" ||
		strings.TrimSpace(q.County) != ""
}

// scopedOut reports whether the region scope excludes every row.
func (q Query) scopedOut() bool {
	return q.Regions != nil && len(q.Regions) == 0
}

// Fold returns the case-folded, trimmed form used for comparisons.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Normalize trims every field and uppercases region and country.
func Normalize(m model.AddressMapping) model.AddressMapping {
	return model.AddressMapping{
		PostalCode: strings.TrimSpace(m.PostalCode),
		City:       strings.TrimSpace(m.City),
		County:     strings.TrimSpace(m.County),
		Region:     strings.ToUpper(strings.TrimSpace(m.Region)),
		Country:    strings.ToUpper(strings.TrimSpace(m.Country)),
		CriteriaID: strings.TrimSpace(m.CriteriaID),
	}
}

// CheckRows normalizes rows and enforces the index invariants: region and
// country present, at least one of postal code/city/county, a unique
// (postal code, city, county, country) key, and unique criteria ids.
func CheckRows(rows []model.AddressMapping) ([]model.AddressMapping, error) {
	out := make([]model.AddressMapping, 0, len(rows))
	keys := make(map[string]int, len(rows))
	criteria := make(map[string]int)
	for i, r := range rows {
		m := Normalize(r)
		if m.Region == "" || m.Country == "" {
			return nil, eris.Errorf("addrindex: row %d: region and country are required", i+1)
		}
		if m.PostalCode == "" && m.City == "" && m.County == "" {
			return nil, eris.Errorf("addrindex: row %d: postal code, city, or county is required", i+1)
		}
		key := foldedKey(m)
		if prev, ok := keys[key]; ok {
			return nil, eris.Errorf("addrindex: row %d duplicates row %d (%s)", i+1, prev, key)
		}
		keys[key] = i + 1
		if m.HasCriteriaID() {
			if prev, ok := criteria[m.CriteriaID]; ok {
				return nil, eris.Errorf("addrindex: row %d reuses criteria id %s from row %d", i+1, m.CriteriaID, prev)
			}
			criteria[m.CriteriaID] = i + 1
		}
		out = append(out, m)
	}
	return out, nil
}

func foldedKey(m model.AddressMapping) string {
	return m.PostalCode + "|" + Fold(m.City) + "|" + Fold(m.County) + "|" + m.Country
}

// sortMappings orders rows by region, folded city, then postal code.
func sortMappings(rows []model.AddressMapping) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if fa, fb := Fold(a.City), Fold(b.City); fa != fb {
			return fa < fb
		}
		return a.PostalCode < b.PostalCode
	})
}
