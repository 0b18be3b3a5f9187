package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/localdb/docstore/indexmgr"
	"github.com/localdb/docstore/reclog"
)

// Logger is the logging seam query depends on, satisfied structurally by the
// root package's *Logger without importing it.
type Logger interface {
	LogQuery(ctx context.Context, collection, strategy string, matched int, err error)
}

// Execute runs a query descriptor to completion: it plans a strategy,
// collects the candidate id set, and materializes each surviving id's
// current record into a Snapshot. Ids whose record has since vanished (a
// stale index entry) are dropped silently.
func Execute(ctx context.Context, mgr *indexmgr.Manager, rl *reclog.Log, collection string, d Descriptor, defaultLimit int, useWorker bool, logger Logger) ([]Snapshot, error) {
	ids, strategy, err := selectIDs(ctx, mgr, rl, d, defaultLimit, useWorker)
	if err != nil {
		if logger != nil {
			logger.LogQuery(ctx, collection, strategy, 0, err)
		}
		return nil, fmt.Errorf("query: %s: %w", strategy, err)
	}

	docs := Materialize(rl, ids)
	if logger != nil {
		logger.LogQuery(ctx, collection, strategy, len(docs), nil)
	}
	return docs, nil
}

// Materialize loads each id's current record and wraps it as a Snapshot,
// dropping ids whose record no longer exists.
func Materialize(rl *reclog.Log, ids []string) []Snapshot {
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		doc, err := rl.GetByID(id)
		if err != nil {
			continue
		}
		out = append(out, Snapshot{ID: id, Data: doc})
	}
	return out
}

// fullScan reads every live document, filters by every where-clause, sorts
// according to OrderBy if present, and truncates to Limit. It is the
// fallback strategy when no index can serve the query; unlike the indexed
// paths it is unbounded unless the descriptor sets a limit explicitly.
func fullScan(rl *reclog.Log, d Descriptor) ([]string, error) {
	live, err := rl.ReadAllLive()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(live))
	for id, doc := range live {
		if matchesAll(doc, d.Where) {
			ids = append(ids, id)
		}
	}

	if d.OrderBy != nil {
		field := d.OrderBy.Field
		sort.Slice(ids, func(i, j int) bool {
			cmp := compareValues(live[ids[i]][field], live[ids[j]][field])
			if d.OrderBy.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if d.Limit > 0 && len(ids) > d.Limit {
		ids = ids[:d.Limit]
	}
	return ids, nil
}

func matchesAll(doc map[string]any, clauses []Clause) bool {
	for _, c := range clauses {
		if !matchesClause(doc, c) {
			return false
		}
	}
	return true
}

// matchesClause evaluates one where-clause against a document's raw field
// values. A missing field behaves as null, and a null left-hand value makes
// every clause false, never true — this holds for == as well, since a
// missing field is never considered equal to anything including another
// missing field.
func matchesClause(doc map[string]any, c Clause) bool {
	v, present := doc[c.Field]
	if !present || v == nil {
		return false
	}

	switch c.Op {
	case OpEq:
		return valuesEqual(v, c.Value)
	case OpGe:
		return compareValues(v, c.Value) >= 0
	case OpGt:
		return compareValues(v, c.Value) > 0
	case OpLe:
		return compareValues(v, c.Value) <= 0
	case OpLt:
		return compareValues(v, c.Value) < 0
	case OpRange:
		if compareValues(v, c.Value) < 0 {
			return false
		}
		if c.EndValue != nil && compareValues(v, c.EndValue) > 0 {
			return false
		}
		return true
	default:
		return false
	}
}
