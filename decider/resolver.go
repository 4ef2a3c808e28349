package decider

import "github.com/edyhq/decider-go/core"

// Resolve reconciles the scorer's per-candidate decisions with the
// deduper's merge decisions into exactly one final decision per candidate,
// aligned by index with the candidates slice.
//
// A merge decision overrides whatever the scorer decided for the same
// candidate: a duplicate is never separately kept, buffered or rejected.
// Merges are matched to candidates by candidate id. The merge list is
// shorter than the candidate list and carries no positional meaning, so
// positional matching would pair later candidates with the wrong decision.
func Resolve(candidates []*core.CandidateMemory, scorerDecisions []core.MemoryDecision, merges []Merge) []core.MemoryDecision {
	byID := make(map[string]core.MemoryDecision, len(merges))
	for _, m := range merges {
		byID[m.CandidateID] = m.Decision
	}

	final := make([]core.MemoryDecision, len(candidates))
	for i, c := range candidates {
		if d, ok := byID[c.ID]; ok {
			final[i] = d
			continue
		}
		final[i] = scorerDecisions[i]
	}
	return final
}
