package query

import (
	"context"

	"github.com/localdb/docstore/indexmgr"
	"github.com/localdb/docstore/reclog"
)

// Plan describes the strategy the planner would select for a descriptor and
// how many candidate ids it produced, without materializing any records.
type Plan struct {
	Strategy  string
	Candidate int
}

// Explain runs the planner against d without loading document bodies,
// useful for diagnosing which strategy a query takes and the resulting
// candidate-set size before paying for materialization.
func Explain(ctx context.Context, mgr *indexmgr.Manager, rl *reclog.Log, d Descriptor, defaultLimit int, useWorker bool) (Plan, error) {
	ids, strategy, err := selectIDs(ctx, mgr, rl, d, defaultLimit, useWorker)
	if err != nil {
		return Plan{Strategy: strategy}, err
	}
	return Plan{Strategy: strategy, Candidate: len(ids)}, nil
}
