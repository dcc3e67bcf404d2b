package addrindex

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotarget/internal/db"
	"github.com/sells-group/geotarget/internal/model"
)

const postgresTable = "public.address_mappings"

// PostgresIndex implements Index over a pgx pool.
type PostgresIndex struct {
	pool db.Pool
}

// NewPostgres creates a PostgresIndex.
func NewPostgres(pool db.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS public.address_mappings (
	id          BIGSERIAL PRIMARY KEY,
	postal_code TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	city_fold   TEXT NOT NULL DEFAULT '',
	county      TEXT NOT NULL DEFAULT '',
	county_fold TEXT NOT NULL DEFAULT '',
	region      TEXT NOT NULL,
	country     TEXT NOT NULL,
	criteria_id TEXT NOT NULL DEFAULT '',
	CONSTRAINT address_mappings_key UNIQUE (postal_code, city_fold, county_fold, country)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_address_mappings_criteria
	ON public.address_mappings (criteria_id) WHERE criteria_id <> '';
CREATE INDEX IF NOT EXISTS idx_address_mappings_region_city
	ON public.address_mappings (region, city_fold);
`

// Migrate creates the schema.
func (p *PostgresIndex) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate address index")
}

var loadColumns = []string{
	"postal_code", "city", "city_fold", "county", "county_fold", "region", "country", "criteria_id",
}

// Load bulk-upserts rows and returns the affected row count.
func (p *PostgresIndex) Load(ctx context.Context, rows []model.AddressMapping) (int, error) {
	checked, err := CheckRows(rows)
	if err != nil {
		return 0, err
	}
	values := make([][]any, len(checked))
	for i, m := range checked {
		values[i] = []any{
			m.PostalCode, m.City, Fold(m.City), m.County, Fold(m.County),
			m.Region, m.Country, m.CriteriaID,
		}
	}
	n, err := db.BulkUpsert(ctx, p.pool, db.Merge{
		Table:   postgresTable,
		Columns: loadColumns,
		Key:     []string{"postal_code", "city_fold", "county_fold", "country"},
	}, values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: load address index")
	}
	return int(n), nil
}

// Find implements Index.
func (p *PostgresIndex) Find(ctx context.Context, q Query) ([]model.AddressMapping, error) {
	if !q.HasCriteria() || q.scopedOut() {
		return nil, nil
	}
	query, args := buildFind(postgresDialect, postgresTable, q)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find addresses")
	}
	defer rows.Close()

	var out []model.AddressMapping
	for rows.Next() {
		var m model.AddressMapping
		if err := rows.Scan(&m.PostalCode, &m.City, &m.County, &m.Region, &m.Country, &m.CriteriaID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan address")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate addresses")
}

// Count implements Index.
func (p *PostgresIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM public.address_mappings`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count addresses")
	}
	return n, nil
}
