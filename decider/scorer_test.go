package decider_test

import (
	"strings"
	"testing"

	"github.com/edyhq/decider-go/core"
	"github.com/edyhq/decider-go/decider"
)

func candidate(memType core.MemoryType, content string, confidence, relevance, specificity float64) *core.CandidateMemory {
	return &core.CandidateMemory{
		MemoryType:  memType,
		Content:     content,
		Confidence:  confidence,
		Relevance:   relevance,
		Specificity: specificity,
	}
}

func TestScorerSalienceBlend(t *testing.T) {
	scorer := decider.NewScorer(decider.DefaultConfig())

	// weights: relevance 0.4, specificity 0.3, confidence 0.3
	tests := []struct {
		name                               string
		confidence, relevance, specificity float64
		want                               float64
	}{
		{"all ones", 1, 1, 1, 1.0},
		{"all zeros", 0, 0, 0, 0.0},
		{"mixed", 1.0, 0.5, 0.5, 0.65},
		{"rounded to 3 places", 0.333, 0.333, 0.333, 0.333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate(core.MemoryTypePreference, "content", tt.confidence, tt.relevance, tt.specificity)
			scorer.Score([]*core.CandidateMemory{c})
			if c.SalienceScore != tt.want {
				t.Errorf("salience = %v, want %v", c.SalienceScore, tt.want)
			}
			if c.SalienceScore < 0 || c.SalienceScore > 1 {
				t.Errorf("salience %v outside [0,1]", c.SalienceScore)
			}
		})
	}
}

func TestScorerSortsDescendingStable(t *testing.T) {
	scorer := decider.NewScorer(decider.DefaultConfig())

	low := candidate(core.MemoryTypePreference, "low", 0.2, 0.2, 0.2)
	high := candidate(core.MemoryTypePreference, "high", 0.9, 0.9, 0.9)
	midA := candidate(core.MemoryTypePreference, "mid first", 0.5, 0.5, 0.5)
	midB := candidate(core.MemoryTypePreference, "mid second", 0.5, 0.5, 0.5)

	scored := scorer.Score([]*core.CandidateMemory{low, midA, midB, high})

	wantOrder := []string{"high", "mid first", "mid second", "low"}
	for i, want := range wantOrder {
		if scored[i].Content != want {
			t.Fatalf("position %d = %q, want %q", i, scored[i].Content, want)
		}
	}
}

func TestScorerClassifyBoundaries(t *testing.T) {
	cfg := decider.DefaultConfig()
	cfg.Thresholds[core.MemoryTypePreference] = 0.7
	cfg.BufferThreshold = 0.5
	scorer := decider.NewScorer(cfg)

	tests := []struct {
		name  string
		score float64 // all three features set equal to produce this score
		want  core.Action
	}{
		{"above type threshold", 0.8, core.ActionKeep},
		{"exactly type threshold", 0.7, core.ActionKeep},
		{"between thresholds", 0.6, core.ActionBuffer},
		{"exactly buffer threshold", 0.5, core.ActionBuffer},
		{"below buffer threshold", 0.4, core.ActionReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate(core.MemoryTypePreference, "content", tt.score, tt.score, tt.score)
			scored := scorer.Score([]*core.CandidateMemory{c})
			decisions := scorer.Classify(scored)
			if decisions[0].Action != tt.want {
				t.Errorf("action = %s, want %s (score %v)", decisions[0].Action, tt.want, c.SalienceScore)
			}
		})
	}
}

func TestScorerReasonCitesNumbers(t *testing.T) {
	scorer := decider.NewScorer(decider.DefaultConfig())

	c := candidate(core.MemoryTypeGoal, "run a marathon", 0.9, 0.9, 0.9)
	scored := scorer.Score([]*core.CandidateMemory{c})
	decisions := scorer.Classify(scored)

	reason := decisions[0].Reason
	if !strings.Contains(reason, "0.900") {
		t.Errorf("reason %q does not cite the score", reason)
	}
	if !strings.Contains(reason, "0.6") {
		t.Errorf("reason %q does not cite the goal threshold", reason)
	}
}

func TestScorerUnknownTypeFallbackThreshold(t *testing.T) {
	cfg := decider.DefaultConfig()
	if got := cfg.Threshold(core.MemoryType("mystery")); got != 0.7 {
		t.Errorf("fallback threshold = %v, want 0.7", got)
	}
}
