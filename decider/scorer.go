package decider

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/edyhq/decider-go/core"
)

// Scorer computes salience scores and classifies candidates against
// per-type thresholds. It has no side effects beyond writing each
// candidate's SalienceScore, of which it is the sole writer.
type Scorer struct {
	cfg *Config
}

// NewScorer creates a Scorer from a validated config.
func NewScorer(cfg *Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the salience score for each candidate and returns the
// candidates sorted by score descending. Ties keep original batch order
// (stable sort), so identical inputs produce identical output order.
func (s *Scorer) Score(candidates []*core.CandidateMemory) []*core.CandidateMemory {
	scored := make([]*core.CandidateMemory, len(candidates))
	for i, c := range candidates {
		c.SalienceScore = s.salience(c)
		scored[i] = c
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SalienceScore > scored[j].SalienceScore
	})
	return scored
}

// salience is the weighted linear blend of the three features, rounded to
// 3 decimal places for determinism and display stability, clamped to [0,1].
func (s *Scorer) salience(c *core.CandidateMemory) float64 {
	w := s.cfg.Weights
	score := w.Relevance*c.Relevance + w.Specificity*c.Specificity + w.Confidence*c.Confidence
	score = math.Round(score*1000) / 1000
	return math.Min(1, math.Max(0, score))
}

// Classify returns one initial decision per scored candidate, aligned by
// index with the input slice.
func (s *Scorer) Classify(scored []*core.CandidateMemory) []core.MemoryDecision {
	decisions := make([]core.MemoryDecision, len(scored))
	for i, c := range scored {
		decisions[i] = s.evaluate(c)
		log.Printf("[SCORER] %q scored %.3f, decision: %s",
			excerpt(c.Content, 50), c.SalienceScore, decisions[i].Action)
	}
	return decisions
}

// evaluate applies the threshold rule: score >= type threshold keeps,
// score >= buffer threshold defers to review, anything below rejects.
// The boundary is inclusive on the buffer side.
func (s *Scorer) evaluate(c *core.CandidateMemory) core.MemoryDecision {
	threshold := s.cfg.Threshold(c.MemoryType)
	score := c.SalienceScore

	switch {
	case score >= threshold:
		return core.MemoryDecision{
			Action:    core.ActionKeep,
			Reason:    fmt.Sprintf("Score %.3f meets %s threshold %v", score, c.MemoryType, threshold),
			Timestamp: time.Now().UTC(),
		}
	case score >= s.cfg.BufferThreshold:
		return core.MemoryDecision{
			Action: core.ActionBuffer,
			Reason: fmt.Sprintf("Score %.3f below %s threshold %v but above buffer threshold %v",
				score, c.MemoryType, threshold, s.cfg.BufferThreshold),
			Timestamp: time.Now().UTC(),
		}
	default:
		return core.MemoryDecision{
			Action:    core.ActionReject,
			Reason:    fmt.Sprintf("Score %.3f below buffer threshold %v", score, s.cfg.BufferThreshold),
			Timestamp: time.Now().UTC(),
		}
	}
}

// excerpt truncates text for reasons and log lines, on a rune boundary
// so multibyte content is never split.
func excerpt(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
