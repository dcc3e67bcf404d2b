package validate

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

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	idx, err := addrindex.NewMemoryIndex([]model.AddressMapping{
		{PostalCode: "90210", City: "Beverly Hills", County: "Los Angeles County", Region: "CA", Country: "US"},
		{PostalCode: "10001", City: "New York", County: "New York County", Region: "NY", Country: "US"},
		{PostalCode: "30096", City: "Duluth", County: "Gwinnett County", Region: "GA", Country: "US"},
		{PostalCode: "55802", City: "Duluth", County: "St. Louis County", Region: "MN", Country: "US"},
		{County: "Kalawao County", Region: "HI", Country: "US"},
	})
	require.NoError(t, err)
	return New(idx)
}

func ptr(s string) *string { return &s }

func TestValidateOne(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name      string
		record    model.AddressRecord
		wl        region.Whitelist
		wantClass model.Classification
		wantState *string
		wantErr   bool
	}{
		{
			name:      "zip in coverage",
			record:    model.AddressRecord{PostalCode: "90210"},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassInCoverage,
			wantState: ptr("CA"),
		},
		{
			name:      "zip out of coverage",
			record:    model.AddressRecord{PostalCode: "90210"},
			wl:        region.MustReplace("NY"),
			wantClass: model.ClassOutOfCoverage,
			wantState: ptr("CA"),
		},
		{
			name:      "zip plus four",
			record:    model.AddressRecord{PostalCode: "90210-1234"},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassInCoverage,
			wantState: ptr("CA"),
		},
		{
			name:      "zip takes priority over city",
			record:    model.AddressRecord{PostalCode: "10001", City: "Beverly Hills"},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassOutOfCoverage,
			wantState: ptr("NY"),
		},
		{
			name:      "unknown zip falls back to city",
			record:    model.AddressRecord{PostalCode: "99999", City: "beverly hills"},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassInCoverage,
			wantState: ptr("CA"),
		},
		{
			name:      "city must match exactly",
			record:    model.AddressRecord{City: "Beverly"},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassUnableToDetermine,
		},
		{
			name:      "county substring",
			record:    model.AddressRecord{County: "Kalawao"},
			wl:        region.MustReplace("HI"),
			wantClass: model.ClassInCoverage,
			wantState: ptr("HI"),
		},
		{
			name:      "ambiguous city takes first row in index order",
			record:    model.AddressRecord{City: "Duluth"},
			wl:        region.MustReplace("MN"),
			wantClass: model.ClassOutOfCoverage,
			wantState: ptr("GA"),
		},
		{
			name:      "no match",
			record:    model.AddressRecord{PostalCode: "00000"},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassUnableToDetermine,
		},
		{
			name:      "incomplete",
			record:    model.AddressRecord{City: "  "},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassInvalidRecord,
			wantErr:   true,
		},
		{
			name:      "malformed zip",
			record:    model.AddressRecord{PostalCode: "9021"},
			wl:        region.MustReplace("CA"),
			wantClass: model.ClassInvalidRecord,
			wantErr:   true,
		},
		{
			name:      "empty whitelist still classifies",
			record:    model.AddressRecord{PostalCode: "90210"},
			wl:        region.Clear(),
			wantClass: model.ClassOutOfCoverage,
			wantState: ptr("CA"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateOne(context.Background(), tt.record, tt.wl)
			assert.Equal(t, tt.record, got.Record)
			assert.Equal(t, tt.wantClass, got.Classification)
			assert.Equal(t, tt.wantState, got.Region)
			assert.Equal(t, tt.wantClass == model.ClassInCoverage, got.InCoverage)
			if tt.wantErr {
				assert.NotEmpty(t, got.Error)
			} else {
				assert.Empty(t, got.Error)
			}
		})
	}
}

type errIndex struct{ err error }

func (x errIndex) Find(context.Context, addrindex.Query) ([]model.AddressMapping, error) {
	return nil, x.err
}

func (x errIndex) Count(context.Context) (int, error) { return 0, x.err }

func TestValidateOne_LookupError(t *testing.T) {
	v := New(errIndex{err: errors.New("connection refused")})

	got := v.ValidateOne(context.Background(), model.AddressRecord{PostalCode: "90210"}, region.MustReplace("CA"))
	assert.Equal(t, model.ClassUnableToDetermine, got.Classification)
	assert.Nil(t, got.Region)
	assert.False(t, got.InCoverage)
	assert.Contains(t, got.Error, "connection refused")
}

func TestValidateBatch_Continuity(t *testing.T) {
	v := newTestValidator(t)
	records := []model.AddressRecord{
		{PostalCode: "90210"},
		{},
		{City: "Nowhere"},
		{PostalCode: "10001"},
	}

	got := v.ValidateBatch(context.Background(), records, region.MustReplace("CA"))
	require.Len(t, got, len(records))

	want := []model.Classification{
		model.ClassInCoverage,
		model.ClassInvalidRecord,
		model.ClassUnableToDetermine,
		model.ClassOutOfCoverage,
	}
	for i := range records {
		assert.Equal(t, records[i], got[i].Record)
		assert.Equal(t, want[i], got[i].Classification, "record %d", i)
	}
}

func TestValidateBatch_Empty(t *testing.T) {
	v := newTestValidator(t)
	got := v.ValidateBatch(context.Background(), nil, region.MustReplace("CA"))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGate(t *testing.T) {
	assert.False(t, StatesSelected(region.Clear()))
	assert.ErrorIs(t, Gate(region.Clear()), ErrNoStatesSelected)
	assert.Contains(t, Gate(region.Clear()).Error(), BlockingMessage)

	assert.True(t, StatesSelected(region.MustReplace("ga")))
	assert.NoError(t, Gate(region.MustReplace("GA")))
}
