package addrindex

import (
	"context"
	"strings"

	"github.com/sells-group/geotarget/internal/model"
)

type memoryRow struct {
	model.AddressMapping
	cityFold   string
	countyFold string
}

// MemoryIndex is a static in-process table, built once at start-up.
type MemoryIndex struct {
	rows []memoryRow
}

// NewMemoryIndex validates rows and builds the index.
func NewMemoryIndex(rows []model.AddressMapping) (*MemoryIndex, error) {
	checked, err := CheckRows(rows)
	if err != nil {
		return nil, err
	}
	sortMappings(checked)

	idx := &MemoryIndex{rows: make([]memoryRow, len(checked))}
	for i, m := range checked {
		idx.rows[i] = memoryRow{
			AddressMapping: m,
			cityFold:       Fold(m.City),
			countyFold:     Fold(m.County),
		}
	}
	return idx, nil
}

// Find implements Index.
func (x *MemoryIndex) Find(ctx context.Context, q Query) ([]model.AddressMapping, error) {
	if !q.HasCriteria() || q.scopedOut() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var regions map[string]bool
	if q.Regions != nil {
		regions = make(map[string]bool, len(q.Regions))
		for _, r := range q.Regions {
			regions[r] = true
		}
	}
	zip := strings.TrimSpace(q.PostalCode)
	city := Fold(q.City)
	county := Fold(q.County)
	country := strings.ToUpper(strings.TrimSpace(q.Country))

	var out []model.AddressMapping
	for _, r := range x.rows {
		if regions != nil && !regions[r.Region] {
			continue
		}
		if country != "" && r.Country != country {
			continue
		}
		if zip != "" && r.PostalCode != zip {
			continue
		}
		if city != "" {
			if q.CityExact && r.cityFold != city {
				continue
			}
			if !q.CityExact && !strings.Contains(r.cityFold, city) {
				continue
			}
		}
		if county != "" && !strings.Contains(r.countyFold, county) {
			continue
		}
		out = append(out, r.AddressMapping)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Count implements Index.
func (x *MemoryIndex) Count(context.Context) (int, error) {
	return len(x.rows), nil
}
