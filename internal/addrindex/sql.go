package addrindex

import (
	"fmt"
	"strings"
)

// dialect captures the placeholder and substring syntax of a SQL backend.
type dialect struct {
	placeholder func(n int) string
	contains    string // e.g. "instr(%s, %s) > 0"
	anyRegion   func(col string, b *whereBuilder, regions []string) string
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	contains:    "instr(%s, %s) > 0",
	anyRegion: func(col string, b *whereBuilder, regions []string) string {
		ph := make([]string, len(regions))
		for i, r := range regions {
			ph[i] = b.arg(r)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(ph, ", "))
	},
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	contains:    "strpos(%s, %s) > 0",
	anyRegion: func(col string, b *whereBuilder, regions []string) string {
		return fmt.Sprintf("%s = ANY(%s)", col, b.arg(regions))
	},
}

type whereBuilder struct {
	d     dialect
	conds []string
	args  []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

// buildFind renders the SELECT for q against table. The caller must have
// rejected queries without criteria or with an empty region scope.
func buildFind(d dialect, table string, q Query) (string, []any) {
	b := &whereBuilder{d: d}

	if zip := strings.TrimSpace(q.PostalCode); zip != "" {
		b.conds = append(b.conds, "postal_code = "+b.arg(zip))
	}
	if city := Fold(q.City); city != "" {
		if q.CityExact {
			b.conds = append(b.conds, "city_fold = "+b.arg(city))
		} else {
			b.conds = append(b.conds, fmt.Sprintf(d.contains, "city_fold", b.arg(city)))
		}
	}
	if county := Fold(q.County); county != "" {
		b.conds = append(b.conds, fmt.Sprintf(d.contains, "county_fold", b.arg(county)))
	}
	if q.Regions != nil {
		b.conds = append(b.conds, d.anyRegion("region", b, q.Regions))
	}
	if country := strings.ToUpper(strings.TrimSpace(q.Country)); country != "" {
		b.conds = append(b.conds, "country = "+b.arg(country))
	}

	var sb strings.Builder
	sb.WriteString("SELECT postal_code, city, county, region, country, criteria_id FROM ")
	sb.WriteString(table)
	if len(b.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.conds, " AND "))
	}
	sb.WriteString(" ORDER BY region, city_fold, postal_code")
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), b.args
}
