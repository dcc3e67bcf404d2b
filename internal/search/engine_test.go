package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/addrindex"
	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/region"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testRows() []model.AddressMapping {
	return []model.AddressMapping{
		{PostalCode: "30096", City: "Duluth", County: "Gwinnett County", Region: "GA", Country: "US", CriteriaID: "1015254"},
		{PostalCode: "30097", City: "Duluth", County: "Gwinnett County", Region: "GA", Country: "US"},
		{PostalCode: "55802", City: "Duluth", County: "St. Louis County", Region: "MN", Country: "US", CriteriaID: "1020353"},
		{PostalCode: "30301", City: "Atlanta", County: "Fulton County", Region: "GA", Country: "US", CriteriaID: "1015116"},
		{PostalCode: "30303", City: "Atlanta", County: "Fulton County", Region: "GA", Country: "US"},
		{PostalCode: "30303", City: "Atlanta", County: "DeKalb County", Region: "GA", Country: "US"},
		{PostalCode: "30004", City: "Alpharetta", County: "Fulton County", Region: "GA", Country: "US"},
		{PostalCode: "30044", City: "Lawrenceville", County: "Gwinnett County", Region: "GA", Country: "US"},
		{PostalCode: "90210", City: "Beverly Hills", County: "Los Angeles County", Region: "CA", Country: "US"},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	idx, err := addrindex.NewMemoryIndex(testRows())
	require.NoError(t, err)
	return New(idx, opts...)
}

func keys(cands []model.LocationCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Region + ":" + c.City + ":" + c.PostalCode
	}
	return out
}

func TestSearch_WhitelistEnforcement(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ga := e.Search(ctx, "Duluth", region.MustReplace("GA"), 0)
	assert.Equal(t, []string{"GA:Duluth:30096", "GA:Duluth:30097"}, keys(ga))

	both := e.Search(ctx, "Duluth", region.MustReplace("GA", "MN"), 0)
	assert.Equal(t, []string{"GA:Duluth:30096", "GA:Duluth:30097", "MN:Duluth:55802"}, keys(both))

	tx := e.Search(ctx, "Duluth", region.MustReplace("TX"), 0)
	assert.Empty(t, tx)
	assert.NotNil(t, tx)
}

func TestSearch_Preconditions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	assert.Empty(t, e.Search(ctx, "Duluth", region.Clear(), 0))
	assert.Empty(t, e.Search(ctx, " D ", region.MustReplace("GA"), 0))
	assert.Empty(t, e.Search(ctx, "", region.MustReplace("GA"), 0))
}

func TestSearch_PostalStageWins(t *testing.T) {
	e := newTestEngine(t)
	got := e.Search(context.Background(), "30301", region.MustReplace("GA"), 0)
	assert.Equal(t, []string{"GA:Atlanta:30301"}, keys(got))
	assert.Equal(t, "Atlanta, GA 30301", got[0].Display)
	assert.Equal(t, "1015116", got[0].CriteriaID)
}

func TestSearch_MultiTermConjunction(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wl := region.MustReplace("GA", "MN")

	got := e.Search(ctx, "Duluth, 30097", wl, 0)
	assert.Equal(t, []string{"GA:Duluth:30097"}, keys(got))

	// No row has both, and neither criterion is dropped to widen the match.
	got = e.Search(ctx, "Duluth, 30301", wl, 0)
	assert.Empty(t, got)

	got = e.Search(ctx, "Duluth, Fulton County", wl, 0)
	assert.Empty(t, got, "city and county must both match")

	got = e.Search(ctx, "Duluth, Gwinnett County", wl, 0)
	assert.Equal(t, []string{"GA:Duluth:30096", "GA:Duluth:30097"}, keys(got))

	got = e.Search(ctx, "Duluth, uth", wl, 0)
	assert.Equal(t, []string{"GA:Duluth:30096", "GA:Duluth:30097", "MN:Duluth:55802"}, keys(got))

	got = e.Search(ctx, "Duluth, Atlanta", wl, 0)
	assert.Empty(t, got)
}

func TestSearch_StateCodeTextIsACityPrefix(t *testing.T) {
	idx, err := addrindex.NewMemoryIndex([]model.AddressMapping{
		{PostalCode: "46204", City: "Indianapolis", County: "Marion County", Region: "IN", Country: "US"},
		{PostalCode: "12207", City: "Albany", County: "Albany County", Region: "NY", Country: "US"},
		{PostalCode: "31701", City: "Albany", County: "Dougherty County", Region: "GA", Country: "US"},
	})
	require.NoError(t, err)
	e := New(idx)
	ctx := context.Background()

	assert.Equal(t, []string{"IN:Indianapolis:46204"}, keys(e.Search(ctx, "in", region.MustReplace("IN"), 0)))
	assert.Equal(t, []string{"NY:Albany:12207"}, keys(e.Search(ctx, "Al", region.MustReplace("NY"), 0)))
	assert.Equal(t, []string{"GA:Albany:31701", "NY:Albany:12207"}, keys(e.Search(ctx, "al", region.MustReplace("GA", "NY"), 0)))

	res := e.BatchSearch(ctx, "Albany, al", region.MustReplace("NY"))
	assert.Equal(t, []string{"NY:Albany:12207"}, keys(res.Results))
	assert.Empty(t, res.Unmatched)
}

func TestSearch_CountyHint(t *testing.T) {
	e := newTestEngine(t)
	got := e.Search(context.Background(), "Fulton County", region.MustReplace("GA"), 0)
	assert.Equal(t, []string{"GA:Alpharetta:30004", "GA:Atlanta:30301", "GA:Atlanta:30303"}, keys(got))
}

func TestSearch_CityFallsBackToCounty(t *testing.T) {
	e := newTestEngine(t)
	got := e.Search(context.Background(), "gwinnett", region.MustReplace("GA"), 0)
	assert.Equal(t, []string{"GA:Duluth:30096", "GA:Duluth:30097", "GA:Lawrenceville:30044"}, keys(got))
}

func TestSearch_DedupesByCityRegionPostal(t *testing.T) {
	e := newTestEngine(t)
	got := e.Search(context.Background(), "30303", region.MustReplace("GA"), 0)
	assert.Equal(t, []string{"GA:Atlanta:30303"}, keys(got))
}

func TestSearch_Limit(t *testing.T) {
	e := newTestEngine(t, WithDefaultLimit(2))
	ctx := context.Background()
	wl := region.MustReplace("GA")

	assert.Len(t, e.Search(ctx, "a", wl, 0), 0)
	assert.Len(t, e.Search(ctx, "Fulton County", wl, 0), 2)
	assert.Len(t, e.Search(ctx, "Fulton County", wl, 1), 1)
	assert.Empty(t, e.Search(ctx, "county", wl, 0), "bare county keyword has nothing to match")
}

type failingIndex struct{}

func (failingIndex) Find(context.Context, addrindex.Query) ([]model.AddressMapping, error) {
	return nil, errors.New("index offline")
}

func (failingIndex) Count(context.Context) (int, error) { return 0, errors.New("index offline") }

func TestSearch_IndexErrorYieldsEmpty(t *testing.T) {
	e := New(failingIndex{})
	got := e.Search(context.Background(), "Duluth", region.MustReplace("GA"), 0)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	batch := e.BatchSearch(context.Background(), "Duluth", region.MustReplace("GA"))
	assert.Empty(t, batch.Results)
	assert.Equal(t, []string{"Duluth"}, batch.Unmatched)
}

func TestBatchSearch(t *testing.T) {
	e := newTestEngine(t)
	res := e.BatchSearch(context.Background(), "30301, Duluth, Nowhere, Atlanta, x", region.MustReplace("GA"))

	assert.Equal(t, []string{
		"GA:Atlanta:30301",
		"GA:Duluth:30096",
		"GA:Duluth:30097",
		"GA:Atlanta:30303",
	}, keys(res.Results))
	assert.Equal(t, []string{"Nowhere", "x"}, res.Unmatched)
}

func TestBatchSearch_EmptyWhitelist(t *testing.T) {
	e := newTestEngine(t)
	res := e.BatchSearch(context.Background(), "Duluth", region.Clear())
	assert.Empty(t, res.Results)
	assert.Empty(t, res.Unmatched)
}
