// Package extract produces candidate memories from conversation turns.
// The decision pipeline treats extraction as a black box behind the
// Extractor interface; PatternExtractor is the built-in rule-based
// implementation, and extract/claude provides an LLM-backed one.
package extract

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edyhq/decider-go/core"
)

// Extractor emits a list of candidate memories per request.
type Extractor interface {
	Extract(ctx context.Context, turns []core.ConversationTurn) ([]*core.CandidateMemory, error)
}

// PatternExtractor extracts candidates with per-type regular expression
// rules over user turns. Scores are heuristic features in [0,1]; the
// salience score itself is left for the Scorer to write.
type PatternExtractor struct {
	patterns map[core.MemoryType][]*regexp.Regexp
}

var patternSources = map[core.MemoryType][]string{
	core.MemoryTypePreference: {
		`(?i)\b(?:I|I'm|I am)\s+(?:prefer|like|enjoy|love|hate|dislike)\s+(?:to\s+)?(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:not\s+)?(?:a\s+)?(?:fan\s+of|fond\s+of)\s+(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:would\s+)?(?:rather|prefer)\s+(?:to\s+)?(.+?)(?:\.|!|\?|$)`,
	},
	core.MemoryTypeGoal: {
		`(?i)\b(?:I|I'm|I am)\s+(?:want|wish|hope|plan|aim|intend)\s+(?:to\s+)?(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:My|The)\s+(?:goal|objective|target|aim|plan)\s+(?:is|was)\s+(?:to\s+)?(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:working\s+)?(?:towards|on)\s+(.+?)(?:\.|!|\?|$)`,
	},
	core.MemoryTypeCommitment: {
		`(?i)\b(?:I|I'm|I am)\s+(?:will|shall|promise|commit|guarantee)\s+(?:to\s+)?(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:going\s+to|gonna)\s+(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:dedicated|committed)\s+(?:to\s+)?(.+?)(?:\.|!|\?|$)`,
	},
	core.MemoryTypeSkill: {
		`(?i)\b(?:I|I'm|I am)\s+(?:know|can|able\s+to|experienced\s+with|familiar\s+with)\s+(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:good|great|excellent|skilled|proficient)\s+(?:at|with|in)\s+(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:learning|studying|practicing)\s+(.+?)(?:\.|!|\?|$)`,
	},
	core.MemoryTypeFeedback: {
		`(?i)\b(?:I|I'm|I am)\s+(?:think|feel|believe|find|consider)\s+(?:that\s+)?(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:This|That|It)\s+(?:is|was|feels|seems)\s+(.+?)(?:\.|!|\?|$)`,
		`(?i)\b(?:I|I'm|I am)\s+(?:satisfied|happy|unhappy|disappointed|pleased)\s+(?:with|about)\s+(.+?)(?:\.|!|\?|$)`,
	},
}

// NewPatternExtractor compiles the built-in extraction rules.
func NewPatternExtractor() *PatternExtractor {
	patterns := make(map[core.MemoryType][]*regexp.Regexp, len(patternSources))
	for memType, sources := range patternSources {
		for _, src := range sources {
			patterns[memType] = append(patterns[memType], regexp.MustCompile(src))
		}
	}
	return &PatternExtractor{patterns: patterns}
}

// Extract scans user turns for memory-worthy statements.
func (e *PatternExtractor) Extract(ctx context.Context, turns []core.ConversationTurn) ([]*core.CandidateMemory, error) {
	var candidates []*core.CandidateMemory
	for _, turn := range turns {
		if !strings.EqualFold(turn.Speaker, "user") {
			continue
		}
		candidates = append(candidates, e.extractFromTurn(turn)...)
	}
	log.Printf("[EXTRACT] extracted %d candidates from %d turns", len(candidates), len(turns))
	return candidates, nil
}

func (e *PatternExtractor) extractFromTurn(turn core.ConversationTurn) []*core.CandidateMemory {
	text := strings.TrimSpace(turn.Text)
	if len(text) < 10 || isTrivial(text) {
		return nil
	}

	var candidates []*core.CandidateMemory
	for memType, patterns := range e.patterns {
		for _, pattern := range patterns {
			for _, match := range pattern.FindAllStringSubmatch(text, -1) {
				content := strings.TrimSpace(match[1])
				if len(content) < 5 || isGeneric(content) {
					continue
				}
				candidates = append(candidates, &core.CandidateMemory{
					ID:                 uuid.New().String(),
					MemoryType:         memType,
					Content:            content,
					Confidence:         confidence(text, content),
					Relevance:          relevance(content),
					Specificity:        specificity(content),
					SourceTurn:         turn,
					ExtractionEvidence: fmt.Sprintf("Pattern match: %s", pattern.String()),
					CreatedAt:          time.Now().UTC(),
				})
			}
		}
	}
	return candidates
}

func isTrivial(text string) bool {
	switch strings.ToLower(text) {
	case "yes", "no", "ok", "okay", "thanks", "thank you":
		return true
	}
	return false
}

func isGeneric(content string) bool {
	switch strings.ToLower(content) {
	case "it", "this", "that", "something", "things":
		return true
	}
	return false
}

// confidence rewards a pattern hit, complete sentences and substantive
// content.
func confidence(text, content string) float64 {
	score := 0.6 // the pattern matched to get here
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		score += 0.2
	}
	lower := strings.ToLower(content)
	if len(content) > 10 && !hasPrefixAny(lower, "the", "a", "an", "and", "or", "but") {
		score += 0.2
	}
	return clamp(score)
}

// relevance boosts actionable and personal statements.
func relevance(content string) float64 {
	score := 0.5
	lower := strings.ToLower(content)
	if containsAny(lower, "learn", "study", "work", "practice", "improve", "develop") {
		score += 0.3
	}
	if hasPrefixAny(lower, "i ", "my ", "me ") {
		score += 0.2
	}
	return clamp(score)
}

// specificity boosts concrete details and measurable statements.
func specificity(content string) float64 {
	score := 0.5
	lower := strings.ToLower(content)
	if containsAny(lower, "python", "machine learning", "data science", "2 hours", "every evening") {
		score += 0.3
	}
	if strings.ContainsAny(content, "0123456789") {
		score += 0.2
	}
	return clamp(score)
}

func hasPrefixAny(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
