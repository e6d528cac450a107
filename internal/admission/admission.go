// Package admission implements the pure predicate deciding whether a
// task's filter multiset fits the remaining configured capacity.
//
// Ported directly from the Rust original's
// RunningFilters::can_run_pipeline (core/limits.rs): add the
// requested multiset to the running counts, and compare the result
// against the configured limits componentwise.
package admission

import "sdstore/internal/filter"

// Admissible reports whether a task requesting the given filters may
// start now, given the currently running counts and the configured
// per-filter limits. It performs no mutation and has no knowledge of
// the queue; the coordinator's drain loop is responsible for calling
// it once per head-of-queue candidate.
func Admissible(running, limits filter.Counts, requested []filter.Filter) bool {
	projected := running.Add(filter.Multiset(requested))
	return projected.Dominates(limits)
}
