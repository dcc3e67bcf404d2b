package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressMerge() Merge {
	return Merge{
		Table:   "public.address_mappings",
		Columns: []string{"postal_code", "city", "region", "criteria_id"},
		Key:     []string{"postal_code", "city"},
	}
}

func TestMerge_Check(t *testing.T) {
	tests := []struct {
		name    string
		merge   Merge
		wantErr string
	}{
		{"ok", addressMerge(), ""},
		{"no table", Merge{Columns: []string{"a"}, Key: []string{"a"}}, "table is required"},
		{"no columns", Merge{Table: "t", Key: []string{"a"}}, "no columns"},
		{"no key", Merge{Table: "t", Columns: []string{"a"}}, "no key columns"},
		{"key not loaded", Merge{Table: "t", Columns: []string{"a"}, Key: []string{"b"}}, "key column b is not loaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.merge.check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMerge_Statement(t *testing.T) {
	m := addressMerge()
	assert.Equal(t,
		`INSERT INTO "public"."address_mappings" ("postal_code", "city", "region", "criteria_id") `+
			`SELECT "postal_code", "city", "region", "criteria_id" FROM "stage_address_mappings" `+
			`ON CONFLICT ("postal_code", "city") DO UPDATE SET "region" = EXCLUDED."region", "criteria_id" = EXCLUDED."criteria_id"`,
		m.statement())

	m.Keep = []string{"criteria_id"}
	assert.Contains(t, m.statement(), `DO UPDATE SET "region" = EXCLUDED."region"`)
	assert.NotContains(t, m.statement(), `"criteria_id" = EXCLUDED`)

	m.Keep = []string{"region", "criteria_id"}
	assert.Contains(t, m.statement(), "DO NOTHING")

	assert.Equal(t,
		`CREATE TEMP TABLE "stage_address_mappings" (LIKE "public"."address_mappings" INCLUDING DEFAULTS) ON COMMIT DROP`,
		m.createStaging())
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, addressMerge(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := addressMerge()
	rows := [][]any{{"90210", "Beverly Hills", "CA", ""}, {"02108", "Boston", "MA", "1018127"}}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"stage_address_mappings"}, m.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "public"."address_mappings" .+ ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, m, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := Merge{Table: "address_mappings", Columns: []string{"postal_code", "city"}, Key: []string{"postal_code"}}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"stage_address_mappings"}, m.Columns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, m, [][]any{{"90210", "Beverly Hills"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdent(t *testing.T) {
	assert.Equal(t, `"simple"`, ident("simple"))
	assert.Equal(t, `"public"."address_mappings"`, ident("public.address_mappings"))
	assert.Equal(t, `"postal_code", "city"`, identList([]string{"postal_code", "city"}))
}
