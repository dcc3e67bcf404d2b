// Package validate classifies address records against the state whitelist.
package validate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/addrindex"
	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/region"
)

// BlockingMessage is returned to callers that try to search or validate
// before any state has been selected.
const BlockingMessage = "Please select at least one state before searching or validating addresses."

// ErrNoStatesSelected is returned by Gate for an empty whitelist.
var ErrNoStatesSelected = eris.New(BlockingMessage)

// StatesSelected reports whether search and validation may proceed.
func StatesSelected(wl region.Whitelist) bool {
	return wl.AnySelected()
}

// Gate returns ErrNoStatesSelected when wl is empty. Callers check it before
// invoking search or validation.
func Gate(wl region.Whitelist) error {
	if !StatesSelected(wl) {
		return ErrNoStatesSelected
	}
	return nil
}

// Validator resolves a record's region through the address index and
// compares it with the whitelist.
type Validator struct {
	index addrindex.Index
	log   *zap.Logger
}

// New creates a Validator over index.
func New(index addrindex.Index) *Validator {
	return &Validator{
		index: index,
		log:   zap.L().With(zap.String("component", "validate")),
	}
}

// ValidateOne classifies record. It always returns a result; lookup
// failures become unable_to_determine with the error message kept.
func (v *Validator) ValidateOne(ctx context.Context, record model.AddressRecord, wl region.Whitelist) model.ValidationResult {
	res := model.ValidationResult{Record: record}

	if err := record.WellFormed(); err != nil {
		res.Classification = model.ClassInvalidRecord
		res.Error = err.Error()
		return res
	}
	if !record.Complete() {
		res.Classification = model.ClassInvalidRecord
		res.Error = "address has no zip code, city, or county"
		return res
	}

	code, err := v.lookupRegion(ctx, record)
	if err != nil {
		v.log.Warn("validate: region lookup failed",
			zap.String("zip_code", record.PostalCode),
			zap.String("city", record.City),
			zap.Error(err),
		)
		res.Classification = model.ClassUnableToDetermine
		res.Error = err.Error()
		return res
	}
	if code == "" {
		res.Classification = model.ClassUnableToDetermine
		return res
	}

	res.Region = &code
	res.InCoverage = wl.Contains(code)
	if res.InCoverage {
		res.Classification = model.ClassInCoverage
	} else {
		res.Classification = model.ClassOutOfCoverage
	}
	return res
}

// ValidateBatch classifies every record in input order. One record's
// failure never stops the rest.
func (v *Validator) ValidateBatch(ctx context.Context, records []model.AddressRecord, wl region.Whitelist) []model.ValidationResult {
	out := make([]model.ValidationResult, len(records))
	for i, r := range records {
		out[i] = v.ValidateOne(ctx, r, wl)
	}
	return out
}

// lookupRegion tries postal code, then exact city, then county. The first
// component with a hit decides; ambiguous names take the first row in index
// order.
func (v *Validator) lookupRegion(ctx context.Context, record model.AddressRecord) (string, error) {
	var queries []addrindex.Query
	if zip := strings.TrimSpace(record.PostalCode); zip != "" {
		// ZIP+4 resolves by its five-digit prefix.
		zip, _, _ = strings.Cut(zip, "-")
		queries = append(queries, addrindex.Query{PostalCode: zip, Limit: 1})
	}
	if city := strings.TrimSpace(record.City); city != "" {
		queries = append(queries, addrindex.Query{City: city, CityExact: true, Limit: 1})
	}
	if county := strings.TrimSpace(record.County); county != "" {
		queries = append(queries, addrindex.Query{County: county, Limit: 1})
	}

	for _, q := range queries {
		rows, err := v.index.Find(ctx, q)
		if err != nil {
			return "", eris.Wrap(err, "validate: lookup region")
		}
		if len(rows) > 0 && rows[0].Region != "" {
			return rows[0].Region, nil
		}
	}
	return "", nil
}
