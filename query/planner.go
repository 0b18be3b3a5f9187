package query

import (
	"context"
	"fmt"

	"github.com/localdb/docstore/indexmgr"
	"github.com/localdb/docstore/reclog"
	"github.com/localdb/docstore/secindex"
)

// highSentinel stands in for "no upper bound" in a range-key comparison;
// U+FFFF sorts after any realistic canonical key component.
const highSentinel = "￿"

// Strategy names the index strategy the planner selected, in the order
// they're attempted.
const (
	StrategyComposite    = "composite"
	StrategySingleOrder  = "single-field-ordered"
	StrategyEqualityIx   = "equality-intersection"
	StrategyFullScan     = "full-scan"
)

// selectIDs runs the four-tier planning order and returns the chosen
// strategy's candidate id set. The first eligible strategy wins.
func selectIDs(ctx context.Context, mgr *indexmgr.Manager, rl *reclog.Log, d Descriptor, defaultLimit int, useWorker bool) ([]string, string, error) {
	if ids, ok, err := tryComposite(ctx, mgr, d, defaultLimit, useWorker); err != nil {
		return nil, StrategyComposite, err
	} else if ok {
		return ids, StrategyComposite, nil
	}

	if d.OrderBy != nil {
		if ids, ok, err := trySingleOrdered(ctx, mgr, d, defaultLimit, useWorker); err != nil {
			return nil, StrategySingleOrder, err
		} else if ok {
			return ids, StrategySingleOrder, nil
		}
	}

	if ids, ok, err := tryEqualityIntersection(ctx, mgr, d, useWorker); err != nil {
		return nil, StrategyEqualityIx, err
	} else if ok {
		limit := d.Limit
		if limit <= 0 {
			limit = defaultLimit
		}
		if limit > 0 && len(ids) > limit {
			ids = ids[:limit]
		}
		return ids, StrategyEqualityIx, nil
	}

	ids, err := fullScan(rl, d)
	return ids, StrategyFullScan, err
}

func clausesByField(where []Clause) map[string]Clause {
	m := make(map[string]Clause, len(where))
	for _, c := range where {
		m[c.Field] = c
	}
	return m
}

func keyTypeAt(meta secindex.Meta, i int) secindex.KeyType {
	if i < len(meta.KeyTypes) {
		return meta.KeyTypes[i]
	}
	return secindex.KeyTypeAuto
}

// tryComposite finds a composite index whose every field has a where-clause
// and issues a range scan built from each field's start/end component.
func tryComposite(ctx context.Context, mgr *indexmgr.Manager, d Descriptor, defaultLimit int, useWorker bool) ([]string, bool, error) {
	byField := clausesByField(d.Where)

	for _, meta := range mgr.Metas() {
		if len(meta.Fields) < 2 {
			continue
		}
		eligible := true
		for _, f := range meta.Fields {
			if _, ok := byField[f]; !ok {
				eligible = false
				break
			}
		}
		if !eligible {
			continue
		}

		if err := mgr.EnsureIndex(ctx, meta, useWorker); err != nil {
			return nil, false, fmt.Errorf("query: ensure composite index %q: %w", meta.Name(), err)
		}
		ix, ok := mgr.GetLoaded(meta.Name())
		if !ok {
			return nil, false, fmt.Errorf("query: composite index %q not loaded after ensure", meta.Name())
		}

		startParts := make([]string, len(meta.Fields))
		endParts := make([]string, len(meta.Fields))
		for i, f := range meta.Fields {
			c := byField[f]
			kt := keyTypeAt(meta, i)

			if c.Op == OpEq || c.Op == OpGe {
				s, err := secindex.Canonical(f, c.Value, kt)
				if err != nil {
					return nil, false, err
				}
				startParts[i] = s
			}

			switch {
			case c.Op == OpEq || c.Op == OpLe:
				e, err := secindex.Canonical(f, c.Value, kt)
				if err != nil {
					return nil, false, err
				}
				endParts[i] = e
			case c.EndValue != nil:
				e, err := secindex.Canonical(f, c.EndValue, kt)
				if err != nil {
					return nil, false, err
				}
				endParts[i] = e
			default:
				endParts[i] = highSentinel
			}
		}

		startKey := secindex.Composite(startParts...)
		endKey := secindex.Composite(endParts...)
		limit := d.Limit
		if limit <= 0 {
			limit = defaultLimit
		}
		return ix.GetRange(&startKey, &endKey, true, true, limit), true, nil
	}

	return nil, false, nil
}

func findSingleFieldMeta(mgr *indexmgr.Manager, field string) (secindex.Meta, bool) {
	for _, meta := range mgr.Metas() {
		if len(meta.Fields) == 1 && meta.Fields[0] == field {
			return meta, true
		}
	}
	return secindex.Meta{}, false
}

// trySingleOrdered uses the registered single-field index on OrderBy's field,
// if one exists, translating every where-clause on that field into range
// bounds (a later clause overrides the bound an earlier one set).
func trySingleOrdered(ctx context.Context, mgr *indexmgr.Manager, d Descriptor, defaultLimit int, useWorker bool) ([]string, bool, error) {
	field := d.OrderBy.Field
	meta, found := findSingleFieldMeta(mgr, field)
	if !found {
		return nil, false, nil
	}

	if err := mgr.EnsureIndex(ctx, meta, useWorker); err != nil {
		return nil, false, fmt.Errorf("query: ensure ordered index %q: %w", field, err)
	}
	ix, ok := mgr.GetLoaded(meta.Name())
	if !ok {
		return nil, false, fmt.Errorf("query: ordered index %q not loaded after ensure", field)
	}
	kt := keyTypeAt(meta, 0)

	var startKey, endKey *string
	for _, c := range d.Where {
		if c.Field != field {
			continue
		}
		switch c.Op {
		case OpEq:
			k, err := secindex.Canonical(field, c.Value, kt)
			if err != nil {
				return nil, false, err
			}
			startKey, endKey = &k, &k
		case OpGe, OpGt:
			k, err := secindex.Canonical(field, c.Value, kt)
			if err != nil {
				return nil, false, err
			}
			startKey = &k
		case OpLe, OpLt:
			k, err := secindex.Canonical(field, c.Value, kt)
			if err != nil {
				return nil, false, err
			}
			endKey = &k
		case OpRange:
			s, err := secindex.Canonical(field, c.Value, kt)
			if err != nil {
				return nil, false, err
			}
			startKey = &s
			if c.EndValue != nil {
				e, err := secindex.Canonical(field, c.EndValue, kt)
				if err != nil {
					return nil, false, err
				}
				endKey = &e
			}
		}
	}

	limit := d.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	ids := ix.GetRange(startKey, endKey, true, true, limit)
	if d.OrderBy.Descending {
		reverseStrings(ids)
	}
	return ids, true, nil
}

// tryEqualityIntersection ensures an on-demand auto-keyed index for every
// equality clause and intersects their postings, smallest first.
func tryEqualityIntersection(ctx context.Context, mgr *indexmgr.Manager, d Descriptor, useWorker bool) ([]string, bool, error) {
	var eqClauses []Clause
	for _, c := range d.Where {
		if c.Op == OpEq {
			eqClauses = append(eqClauses, c)
		}
	}
	if len(eqClauses) == 0 {
		return nil, false, nil
	}

	lists := make([][]string, 0, len(eqClauses))
	for _, c := range eqClauses {
		ix, err := mgr.EnsureOnDemandField(ctx, c.Field)
		if err != nil {
			return nil, false, fmt.Errorf("query: ensure on-demand index %q: %w", c.Field, err)
		}
		k, err := secindex.Canonical(c.Field, c.Value, secindex.KeyTypeAuto)
		if err != nil {
			return nil, false, err
		}
		lists = append(lists, ix.GetExact(k))
	}

	return secindex.IntersectPostings(lists), true, nil
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
