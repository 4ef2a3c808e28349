package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/edyhq/decider-go/core"
)

func turn(speaker, text string) core.ConversationTurn {
	return core.ConversationTurn{Speaker: speaker, Text: text, Timestamp: time.Now().UTC()}
}

func TestExtractPreference(t *testing.T) {
	e := NewPatternExtractor()
	candidates, err := e.Extract(context.Background(), []core.ConversationTurn{
		turn("user", "I love hiking on weekends."),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	c := candidates[0]
	if c.MemoryType != core.MemoryTypePreference {
		t.Errorf("memory_type = %s, want preference", c.MemoryType)
	}
	if c.Content != "hiking on weekends" {
		t.Errorf("content = %q, want %q", c.Content, "hiking on weekends")
	}
	if c.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", c.Confidence)
	}
	if c.ID == "" {
		t.Error("candidate id not assigned")
	}
	if !strings.HasPrefix(c.ExtractionEvidence, "Pattern match:") {
		t.Errorf("evidence = %q", c.ExtractionEvidence)
	}
	if c.SalienceScore != 0 {
		t.Errorf("salience score = %v, must be left for the scorer", c.SalienceScore)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("extracted candidate fails validation: %v", err)
	}
}

func TestExtractGoalWithBoosts(t *testing.T) {
	e := NewPatternExtractor()
	candidates, err := e.Extract(context.Background(), []core.ConversationTurn{
		turn("user", "I want to learn Python this year."),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	c := candidates[0]
	if c.MemoryType != core.MemoryTypeGoal {
		t.Errorf("memory_type = %s, want goal", c.MemoryType)
	}
	if c.Content != "learn Python this year" {
		t.Errorf("content = %q", c.Content)
	}
	// "learn" boosts relevance, "python" boosts specificity.
	if c.Relevance != 0.8 {
		t.Errorf("relevance = %v, want 0.8", c.Relevance)
	}
	if c.Specificity != 0.8 {
		t.Errorf("specificity = %v, want 0.8", c.Specificity)
	}
}

func TestExtractSkipsAssistantTurns(t *testing.T) {
	e := NewPatternExtractor()
	candidates, err := e.Extract(context.Background(), []core.ConversationTurn{
		turn("assistant", "I love hiking on weekends."),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("assistant turn produced candidates: %+v", candidates)
	}
}

func TestExtractSkipsTrivialAndShortTurns(t *testing.T) {
	e := NewPatternExtractor()
	candidates, err := e.Extract(context.Background(), []core.ConversationTurn{
		turn("user", "thanks"),
		turn("user", "ok"),
		turn("user", "I like go"), // under the length floor
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("trivial turns produced candidates: %+v", candidates)
	}
}

func TestExtractSkipsGenericContent(t *testing.T) {
	e := NewPatternExtractor()
	candidates, err := e.Extract(context.Background(), []core.ConversationTurn{
		turn("user", "I like it."),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("generic pronoun content produced candidates: %+v", candidates)
	}
}

func TestExtractMultipleTurns(t *testing.T) {
	e := NewPatternExtractor()
	candidates, err := e.Extract(context.Background(), []core.ConversationTurn{
		turn("user", "I love hiking on weekends."),
		turn("assistant", "That sounds great!"),
		turn("user", "I want to learn Python this year."),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	types := map[core.MemoryType]bool{}
	for _, c := range candidates {
		types[c.MemoryType] = true
	}
	if !types[core.MemoryTypePreference] || !types[core.MemoryTypeGoal] {
		t.Errorf("candidate types = %v", types)
	}
}
