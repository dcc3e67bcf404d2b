package source

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotarget/internal/model"
)

type field int

const (
	fieldPostal field = iota
	fieldCity
	fieldCounty
	fieldRegion
	fieldCountry
	fieldCriteria
)

// headerAliases maps normalized header names to index fields.
var headerAliases = map[string]field{
	"zip":           fieldPostal,
	"zip_code":      fieldPostal,
	"zipcode":       fieldPostal,
	"postal_code":   fieldPostal,
	"city":          fieldCity,
	"county":        fieldCounty,
	"state":         fieldRegion,
	"state_code":    fieldRegion,
	"region":        fieldRegion,
	"country":       fieldCountry,
	"country_code":  fieldCountry,
	"criteria_id":   fieldCriteria,
	"criterion_id":  fieldCriteria,
	"geo_target_id": fieldCriteria,
}

// columns records the position of each known field in a tabular source.
type columns map[field]int

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// mapHeader resolves header cells to fields. Unknown columns are ignored;
// a region column and one of postal code, city, or county are required.
func mapHeader(header []string) (columns, error) {
	cols := make(columns)
	for i, h := range header {
		f, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := cols[f]; dup {
			return nil, eris.Errorf("source: column %q maps to a field already present", h)
		}
		cols[f] = i
	}

	if _, ok := cols[fieldRegion]; !ok {
		return nil, eris.New("source: missing state/region column")
	}
	_, hasPostal := cols[fieldPostal]
	_, hasCity := cols[fieldCity]
	_, hasCounty := cols[fieldCounty]
	if !hasPostal && !hasCity && !hasCounty {
		return nil, eris.New("source: need at least one of zip, city, or county columns")
	}
	return cols, nil
}

func (c columns) cell(row []string, f field) string {
	i, ok := c[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// mapping converts one data row; blank rows report false.
func (c columns) mapping(row []string, defaultCountry string) (model.AddressMapping, bool) {
	m := model.AddressMapping{
		PostalCode: c.cell(row, fieldPostal),
		City:       c.cell(row, fieldCity),
		County:     c.cell(row, fieldCounty),
		Region:     c.cell(row, fieldRegion),
		Country:    c.cell(row, fieldCountry),
		CriteriaID: c.cell(row, fieldCriteria),
	}
	if m == (model.AddressMapping{}) {
		return m, false
	}
	if m.Country == "" {
		m.Country = defaultCountry
	}
	return m, true
}

// fromRows maps a header row plus data rows.
func fromRows(rows [][]string, defaultCountry string) ([]model.AddressMapping, error) {
	if len(rows) == 0 {
		return nil, eris.New("source: no header row")
	}
	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]model.AddressMapping, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if m, ok := cols.mapping(row, defaultCountry); ok {
			out = append(out, m)
		}
	}
	return out, nil
}
