package decider

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/edyhq/decider-go/core"
)

// Merge tags a merge decision with the candidate it concerns. The deduper
// emits fewer decisions than there are candidates, so callers must match
// by candidate id, never by list position.
type Merge struct {
	CandidateID string
	Decision    core.MemoryDecision
}

// Deduper detects near-duplicate content between candidates and the stored
// corpus, and among candidates within the same batch. Similarity is the
// Jaccard coefficient over lower-cased whitespace tokens; it never mutates
// candidates or touches the store.
type Deduper struct {
	threshold float64

	// tokens caches word sets for stored memories, keyed by memory id.
	// Stored content is immutable, so entries never need invalidation.
	tokens *ristretto.Cache
}

// NewDeduper creates a Deduper from a validated config.
func NewDeduper(cfg *Config) (*Deduper, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * int64(cfg.DedupWindow),
		MaxCost:     16 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &Deduper{threshold: cfg.SimilarityThreshold, tokens: cache}, nil
}

// Deduplicate runs both passes in order: candidates against the stored
// window first, then the survivors against each other. It returns the
// merge decisions and the residual set: candidates for which no merge
// decision was emitted at all.
func (d *Deduper) Deduplicate(candidates []*core.CandidateMemory, stored []*core.StoredMemory) ([]Merge, []*core.CandidateMemory) {
	merges, remaining := d.againstStored(candidates, stored)

	if len(remaining) > 1 {
		batchMerges, survivors := d.withinBatch(remaining)
		merges = append(merges, batchMerges...)
		remaining = survivors
	}

	return merges, remaining
}

// againstStored compares each candidate to every memory in the stored
// window, tracking the single best match. At or above the threshold the
// candidate merges into the stored memory and leaves the residual set.
func (d *Deduper) againstStored(candidates []*core.CandidateMemory, stored []*core.StoredMemory) ([]Merge, []*core.CandidateMemory) {
	var merges []Merge
	var remaining []*core.CandidateMemory

	for _, c := range candidates {
		candidateTokens := tokenize(c.Content)

		var best *core.StoredMemory
		bestSimilarity := 0.0
		for _, s := range stored {
			similarity := jaccard(candidateTokens, d.storedTokens(s))
			if similarity > bestSimilarity {
				bestSimilarity = similarity
				best = s
			}
		}

		if best != nil && bestSimilarity >= d.threshold {
			merges = append(merges, Merge{
				CandidateID: c.ID,
				Decision: core.MemoryDecision{
					Action: core.ActionMerge,
					Reason: fmt.Sprintf("Similarity %.3f with stored memory %q",
						bestSimilarity, excerpt(best.FinalContent, 50)),
					MergedWith: best.ID,
					Timestamp:  time.Now().UTC(),
				},
			})
			log.Printf("[DEDUP] merging candidate into stored memory %s (similarity %.3f)", best.ID, bestSimilarity)
			continue
		}
		remaining = append(remaining, c)
	}

	return merges, remaining
}

// withinBatch pairwise-compares the residual candidates. For a duplicate
// pair the higher-scoring candidate survives (ties keep the earlier
// index) and the other merges into it. A merged-away candidate is
// excluded from every later comparison: each loser is compared once
// against prior survivors, never against other losers.
func (d *Deduper) withinBatch(candidates []*core.CandidateMemory) ([]Merge, []*core.CandidateMemory) {
	var merges []Merge
	merged := make(map[int]bool)

	tokens := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		tokens[i] = tokenize(c.Content)
	}

	for i := range candidates {
		if merged[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if merged[j] {
				continue
			}
			similarity := jaccard(tokens[i], tokens[j])
			if similarity < d.threshold {
				continue
			}

			winner, loser := i, j
			if candidates[j].SalienceScore > candidates[i].SalienceScore {
				winner, loser = j, i
			}

			merges = append(merges, Merge{
				CandidateID: candidates[loser].ID,
				Decision: core.MemoryDecision{
					Action: core.ActionMerge,
					Reason: fmt.Sprintf("Similarity %.3f with candidate %q",
						similarity, excerpt(candidates[winner].Content, 50)),
					MergedWith: candidates[winner].ID,
					Timestamp:  time.Now().UTC(),
				},
			})
			merged[loser] = true
			log.Printf("[DEDUP] merging candidate %d into candidate %d (similarity %.3f)", loser, winner, similarity)

			if loser == i {
				break
			}
		}
	}

	var survivors []*core.CandidateMemory
	for i, c := range candidates {
		if !merged[i] {
			survivors = append(survivors, c)
		}
	}
	return merges, survivors
}

// storedTokens returns the cached word set for a stored memory, computing
// and caching it on a miss.
func (d *Deduper) storedTokens(s *core.StoredMemory) map[string]struct{} {
	if s.ID != "" {
		if v, ok := d.tokens.Get(s.ID); ok {
			if set, ok := v.(map[string]struct{}); ok {
				return set
			}
		}
	}
	set := tokenize(s.FinalContent)
	if s.ID != "" {
		d.tokens.Set(s.ID, set, int64(len(set)))
	}
	return set
}

// Similarity computes the Jaccard coefficient between two texts over their
// lower-cased whitespace-tokenized word sets. It is symmetric, 1 for equal
// nonempty texts, and 0 when either text has no words.
func Similarity(a, b string) float64 {
	return jaccard(tokenize(a), tokenize(b))
}

func tokenize(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	intersection := 0
	for w := range small {
		if _, ok := large[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
