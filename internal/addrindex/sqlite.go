package addrindex

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geotarget/internal/model"
)

// SQLiteIndex implements Index using modernc.org/sqlite.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteIndex{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS address_mappings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	postal_code TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	city_fold   TEXT NOT NULL DEFAULT '',
	county      TEXT NOT NULL DEFAULT '',
	county_fold TEXT NOT NULL DEFAULT '',
	region      TEXT NOT NULL,
	country     TEXT NOT NULL,
	criteria_id TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_address_mappings_key
	ON address_mappings(postal_code, city_fold, county_fold, country);
CREATE UNIQUE INDEX IF NOT EXISTS idx_address_mappings_criteria
	ON address_mappings(criteria_id) WHERE criteria_id <> '';
CREATE INDEX IF NOT EXISTS idx_address_mappings_region_city
	ON address_mappings(region, city_fold);
CREATE INDEX IF NOT EXISTS idx_address_mappings_postal
	ON address_mappings(postal_code);
`

// Migrate creates the schema.
func (s *SQLiteIndex) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Load upserts rows in one transaction and returns how many were written.
func (s *SQLiteIndex) Load(ctx context.Context, rows []model.AddressMapping) (int, error) {
	checked, err := CheckRows(rows)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin load")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO address_mappings
			(postal_code, city, city_fold, county, county_fold, region, country, criteria_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(postal_code, city_fold, county_fold, country) DO UPDATE SET
			city = excluded.city,
			county = excluded.county,
			region = excluded.region,
			criteria_id = excluded.criteria_id`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare load")
	}
	defer stmt.Close() //nolint:errcheck

	for _, m := range checked {
		if _, err := stmt.ExecContext(ctx,
			m.PostalCode, m.City, Fold(m.City), m.County, Fold(m.County),
			m.Region, m.Country, m.CriteriaID,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s", m.Key())
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit load")
	}
	return len(checked), nil
}

// Find implements Index.
func (s *SQLiteIndex) Find(ctx context.Context, q Query) ([]model.AddressMapping, error) {
	if !q.HasCriteria() || q.scopedOut() {
		return nil, nil
	}
	query, args := buildFind(sqliteDialect, "address_mappings", q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find addresses")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.AddressMapping
	for rows.Next() {
		var m model.AddressMapping
		if err := rows.Scan(&m.PostalCode, &m.City, &m.County, &m.Region, &m.Country, &m.CriteriaID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan address")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate addresses")
}

// Count implements Index.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM address_mappings`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count addresses")
	}
	return n, nil
}
