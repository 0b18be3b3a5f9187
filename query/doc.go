// Package query implements the query planner and executor: given a
// [Descriptor], it selects an index strategy (composite full match,
// single-field ordered, equality intersection, or full scan, in that
// order), collects the candidate id set from [indexmgr] and [secindex], and
// materializes surviving ids into [Snapshot] values from [reclog].
//
// [Explain] exposes the same planning decision without paying for
// materialization, for diagnosing which strategy a query takes.
package query
