package addrindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geotarget/internal/model"
)

func newTestSQLiteIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	idx, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() }) //nolint:errcheck
	require.NoError(t, idx.Migrate(context.Background()))
	n, err := idx.Load(context.Background(), fixtureRows())
	require.NoError(t, err)
	require.Equal(t, len(fixtureRows()), n)
	return idx
}

func TestSQLiteIndex_MatchesMemoryIndex(t *testing.T) {
	sqliteIdx := newTestSQLiteIndex(t)
	memIdx, err := NewMemoryIndex(fixtureRows())
	require.NoError(t, err)
	ctx := context.Background()

	queries := []Query{
		{City: "dul"},
		{City: "Duluth", Regions: []string{"GA"}},
		{City: "Duluth", Regions: []string{"TX"}},
		{City: "Duluth", Regions: []string{}},
		{PostalCode: "90210"},
		{County: "FULTON"},
		{City: "BOSTON", CityExact: true},
		{County: "county", Regions: []string{"MA", "GA"}, Limit: 3},
		{County: "county", Country: "US"},
	}

	for _, q := range queries {
		want, err := memIdx.Find(ctx, q)
		require.NoError(t, err)
		got, err := sqliteIdx.Find(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, got, "query %+v", q)
	}
}

func TestSQLiteIndex_LoadUpserts(t *testing.T) {
	idx := newTestSQLiteIndex(t)
	ctx := context.Background()

	_, err := idx.Load(ctx, []model.AddressMapping{
		{PostalCode: "90210", City: "BEVERLY HILLS", County: "Los Angeles County", Region: "CA", Country: "US", CriteriaID: "9999999"},
	})
	require.NoError(t, err)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(fixtureRows()), n)

	rows, err := idx.Find(ctx, Query{PostalCode: "90210"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9999999", rows[0].CriteriaID)
	assert.Equal(t, "BEVERLY HILLS", rows[0].City)
}

func TestSQLiteIndex_LoadRejectsInvalid(t *testing.T) {
	idx := newTestSQLiteIndex(t)
	_, err := idx.Load(context.Background(), []model.AddressMapping{{City: "Nowhere"}})
	require.Error(t, err)
}
