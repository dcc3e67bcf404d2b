package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/addrindex"
	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/region"
)

const (
	// DefaultLimit caps typeahead results when the caller passes no limit.
	DefaultLimit = 20
	// DefaultBatchTermLimit caps rows per term in a batch search.
	DefaultBatchTermLimit = 100
	// MinQueryLength is the shortest trimmed query that is searched.
	MinQueryLength = 2

	// overfetch widens index limits so deduplication can still fill a page.
	overfetch = 4
)

// Engine runs location searches against an address index.
type Engine struct {
	index          addrindex.Index
	defaultLimit   int
	batchTermLimit int
	log            *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultLimit sets the typeahead limit used when the caller passes <= 0.
func WithDefaultLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultLimit = n
		}
	}
}

// WithBatchTermLimit sets the per-term row cap for BatchSearch.
func WithBatchTermLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchTermLimit = n
		}
	}
}

// New creates an Engine over index.
func New(index addrindex.Index, opts ...Option) *Engine {
	e := &Engine{
		index:          index,
		defaultLimit:   DefaultLimit,
		batchTermLimit: DefaultBatchTermLimit,
		log:            zap.L().With(zap.String("component", "search")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search is the typeahead lookup. Every comma term is conjoined into one
// lookup run in stages (postal code, then city, then county); the first
// stage that yields rows wins. An empty whitelist or a query shorter than
// MinQueryLength returns nothing. Search never fails: index errors are
// logged and treated as no match.
func (e *Engine) Search(ctx context.Context, query string, wl region.Whitelist, limit int) []model.LocationCandidate {
	if !wl.AnySelected() || len(strings.TrimSpace(query)) < MinQueryLength {
		return []model.LocationCandidate{}
	}
	if limit <= 0 {
		limit = e.defaultLimit
	}

	c := combine(ParseQuery(query))
	return e.staged(ctx, c, wl, limit)
}

// BatchResult is the outcome of a batch search.
type BatchResult struct {
	Results   []model.LocationCandidate `json:"results"`
	Unmatched []string                  `json:"unmatched"`
}

// BatchSearch looks up each comma-separated term independently and unions
// the matches in first-seen order. Terms without any match are reported in
// Unmatched.
func (e *Engine) BatchSearch(ctx context.Context, searchTerms string, wl region.Whitelist) BatchResult {
	res := BatchResult{Results: []model.LocationCandidate{}, Unmatched: []string{}}
	if !wl.AnySelected() {
		return res
	}

	seen := make(map[string]bool)
	for _, t := range ParseQuery(searchTerms) {
		var found []model.LocationCandidate
		if len(t.Raw) >= MinQueryLength {
			found = e.staged(ctx, combine([]Term{t}), wl, e.batchTermLimit)
		}
		if len(found) == 0 {
			res.Unmatched = append(res.Unmatched, t.Raw)
			continue
		}
		for _, cand := range found {
			key := cand.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			res.Results = append(res.Results, cand)
		}
	}
	return res
}

// staged runs the lookup stages for c. The stages widen only while c holds a
// single criterion: a postal code is matched together with any city or
// county given alongside it, and a city given with a county must match
// both. A bare city falls back to a county match on the same text.
func (e *Engine) staged(ctx context.Context, c combined, wl region.Whitelist, limit int) []model.LocationCandidate {
	var stages []addrindex.Query
	switch {
	case c.PostalCode != "":
		stages = append(stages, addrindex.Query{PostalCode: c.PostalCode, City: c.City, County: c.County})
	case c.City != "" && c.County != "":
		stages = append(stages, addrindex.Query{City: c.City, County: c.County})
	case c.City != "" && len(c.ExtraCities) > 0:
		stages = append(stages, addrindex.Query{City: c.City})
	case c.City != "":
		stages = append(stages, addrindex.Query{City: c.City}, addrindex.Query{County: c.City})
	case c.County != "":
		stages = append(stages, addrindex.Query{County: c.County})
	}

	scope := wl.Codes()
	for _, q := range stages {
		q.Regions = scope
		q.Limit = limit * overfetch
		rows, err := e.index.Find(ctx, q)
		if err != nil {
			e.log.Warn("search: index lookup failed", zap.Any("query", q), zap.Error(err))
			continue
		}
		if out := toCandidates(filterCities(rows, c.ExtraCities), limit); len(out) > 0 {
			return out
		}
	}
	return []model.LocationCandidate{}
}

func filterCities(rows []model.AddressMapping, cities []string) []model.AddressMapping {
	if len(cities) == 0 {
		return rows
	}
	folded := make([]string, len(cities))
	for i, c := range cities {
		folded[i] = addrindex.Fold(c)
	}
	out := rows[:0:0]
	for _, r := range rows {
		city := addrindex.Fold(r.City)
		keep := true
		for _, f := range folded {
			if !strings.Contains(city, f) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// toCandidates converts rows, dropping (city, region, postal) duplicates.
func toCandidates(rows []model.AddressMapping, limit int) []model.LocationCandidate {
	out := make([]model.LocationCandidate, 0, min(len(rows), limit))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		c := model.CandidateFromMapping(r)
		key := c.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out
}
