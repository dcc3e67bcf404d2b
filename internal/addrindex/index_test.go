package addrindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geotarget/internal/model"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "duluth", Fold("  DULUTH "))
	assert.Equal(t, Fold("école"), Fold("ÉCOLE"))
	assert.Equal(t, Fold("São Paulo"), Fold("SÃO PAULO"))
}

func TestQuery_HasCriteria(t *testing.T) {
	assert.False(t, Query{Regions: []string{"CA"}}.HasCriteria())
	assert.False(t, Query{City: "  "}.HasCriteria())
	assert.True(t, Query{PostalCode: "90210"}.HasCriteria())
	assert.True(t, Query{County: "Fulton"}.HasCriteria())
}

func TestCheckRows_Normalizes(t *testing.T) {
	rows, err := CheckRows([]model.AddressMapping{
		{PostalCode: " 90210 ", City: " Beverly Hills", Region: "ca", Country: "us", CriteriaID: " 9031313 "},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.AddressMapping{
		PostalCode: "90210", City: "Beverly Hills", Region: "CA", Country: "US", CriteriaID: "9031313",
	}, rows[0])
}

func TestCheckRows_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		rows    []model.AddressMapping
		wantErr string
	}{
		{
			name:    "missing region",
			rows:    []model.AddressMapping{{City: "Boston", Country: "US"}},
			wantErr: "region and country are required",
		},
		{
			name:    "no location fields",
			rows:    []model.AddressMapping{{Region: "MA", Country: "US"}},
			wantErr: "postal code, city, or county is required",
		},
		{
			name: "duplicate key differing only in case",
			rows: []model.AddressMapping{
				{PostalCode: "02108", City: "Boston", County: "Suffolk County", Region: "MA", Country: "US"},
				{PostalCode: "02108", City: "BOSTON", County: "suffolk county", Region: "MA", Country: "us"},
			},
			wantErr: "row 2 duplicates row 1",
		},
		{
			name: "duplicate criteria id",
			rows: []model.AddressMapping{
				{PostalCode: "02108", City: "Boston", Region: "MA", Country: "US", CriteriaID: "1"},
				{PostalCode: "02139", City: "Cambridge", Region: "MA", Country: "US", CriteriaID: "1"},
			},
			wantErr: "reuses criteria id 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckRows(tt.rows)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildFind_SQLite(t *testing.T) {
	sql, args := buildFind(sqliteDialect, "address_mappings", Query{
		City:    "Duluth",
		County:  "Gwinnett",
		Regions: []string{"GA", "MN"},
		Country: "us",
		Limit:   20,
	})
	assert.Equal(t,
		"SELECT postal_code, city, county, region, country, criteria_id FROM address_mappings"+
			" WHERE instr(city_fold, ?) > 0 AND instr(county_fold, ?) > 0 AND region IN (?, ?) AND country = ?"+
			" ORDER BY region, city_fold, postal_code LIMIT 20",
		sql)
	assert.Equal(t, []any{"duluth", "gwinnett", "GA", "MN", "US"}, args)
}

func TestBuildFind_Postgres(t *testing.T) {
	sql, args := buildFind(postgresDialect, postgresTable, Query{
		PostalCode: "30096",
		City:       "Duluth",
		CityExact:  true,
		Regions:    []string{"GA"},
	})
	assert.Equal(t,
		"SELECT postal_code, city, county, region, country, criteria_id FROM public.address_mappings"+
			" WHERE postal_code = $1 AND city_fold = $2 AND region = ANY($3)"+
			" ORDER BY region, city_fold, postal_code",
		sql)
	assert.Equal(t, []any{"30096", "duluth", []string{"GA"}}, args)
}
