package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Merge describes a staged bulk load. Rows are copied into a session-local
// staging table shaped like Table and merged into it on Key.
type Merge struct {
	// Table may be schema-qualified.
	Table   string
	Columns []string
	Key     []string
	// Keep lists non-key columns that existing rows retain on conflict.
	Keep []string
}

func (m Merge) check() error {
	switch {
	case m.Table == "":
		return eris.New("db: merge: table is required")
	case len(m.Columns) == 0:
		return eris.Errorf("db: merge %s: no columns", m.Table)
	case len(m.Key) == 0:
		return eris.Errorf("db: merge %s: no key columns", m.Table)
	}
	for _, k := range m.Key {
		if !slices.Contains(m.Columns, k) {
			return eris.Errorf("db: merge %s: key column %s is not loaded", m.Table, k)
		}
	}
	return nil
}

// staging names the temp table for m.
func (m Merge) staging() pgx.Identifier {
	name := m.Table
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return pgx.Identifier{"stage_" + name}
}

func (m Merge) createStaging() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		m.staging().Sanitize(), ident(m.Table))
}

// updates returns the columns overwritten when the key already exists.
func (m Merge) updates() []string {
	var out []string
	for _, c := range m.Columns {
		if !slices.Contains(m.Key, c) && !slices.Contains(m.Keep, c) {
			out = append(out, c)
		}
	}
	return out
}

func (m Merge) statement() string {
	cols := identList(m.Columns)
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) ",
		ident(m.Table), cols, cols, m.staging().Sanitize(), identList(m.Key))

	upd := m.updates()
	if len(upd) == 0 {
		b.WriteString("DO NOTHING")
		return b.String()
	}
	b.WriteString("DO UPDATE SET ")
	for i, c := range upd {
		if i > 0 {
			b.WriteString(", ")
		}
		q := ident(c)
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", q, q)
	}
	return b.String()
}

// BulkUpsert runs m in one transaction and returns the rows written.
func BulkUpsert(ctx context.Context, pool Pool, m Merge, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := m.check(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: begin", m.Table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, m.createStaging()); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: create staging table", m.Table)
	}
	if _, err := tx.CopyFrom(ctx, m.staging(), m.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: copy rows", m.Table)
	}
	tag, err := tx.Exec(ctx, m.statement())
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: apply", m.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: commit", m.Table)
	}
	return tag.RowsAffected(), nil
}

// ident quotes a possibly schema-qualified name.
func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func identList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return strings.Join(out, ", ")
}
