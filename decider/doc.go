// Package decider implements the memory decision pipeline: scoring
// candidate memories, classifying them against type-specific thresholds,
// deduplicating them against the stored corpus and within a batch, and
// executing the resulting lifecycle (store / buffer / reject / merge) with
// an audit trail and an admin-resolution path.
//
// Components:
//   - Scorer: weighted salience scoring + threshold classification
//   - Deduper: Jaccard text-overlap dedup, two passes
//   - Resolve: merge-over-score precedence, matched by candidate id
//   - Service: executes final decisions against a Store, handles the
//     buffered->resolved transition idempotently
//
// The Service is constructed once at process start and passed into request
// handlers; there are no package-level singletons.
package decider
