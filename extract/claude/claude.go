// Package claude implements the Extractor interface with the Anthropic
// API. It asks the model to emit candidate memories as a JSON array; the
// pipeline downstream is identical to the pattern extractor's.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/edyhq/decider-go/core"
)

const systemPrompt = `You extract durable memories about the user from conversation.
For each memory-worthy statement in the user's message, output an object with:
  "memory_type": one of "preference", "goal", "commitment", "skill", "feedback"
  "content": the statement, rephrased as a short standalone fact
  "confidence", "relevance", "specificity": numbers in [0,1]
  "evidence": the exact source phrase
Reply with a JSON array only. Reply with [] if nothing is memory-worthy.`

// Options configure the Claude extractor.
type Options struct {
	Model     string
	MaxTokens int64
}

// Extractor asks Claude to propose candidate memories.
type Extractor struct {
	client *anthropic.Client
	opts   Options
}

// New creates an extractor from an existing Anthropic client.
func New(client *anthropic.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Extractor{client: client, opts: opts}
}

type proposed struct {
	MemoryType  string  `json:"memory_type"`
	Content     string  `json:"content"`
	Confidence  float64 `json:"confidence"`
	Relevance   float64 `json:"relevance"`
	Specificity float64 `json:"specificity"`
	Evidence    string  `json:"evidence"`
}

// Extract sends each user turn to the model and collects the proposals.
func (e *Extractor) Extract(ctx context.Context, turns []core.ConversationTurn) ([]*core.CandidateMemory, error) {
	var candidates []*core.CandidateMemory
	for _, turn := range turns {
		if !strings.EqualFold(turn.Speaker, "user") {
			continue
		}
		turnCandidates, err := e.extractFromTurn(ctx, turn)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, turnCandidates...)
	}
	log.Printf("[EXTRACT] claude extracted %d candidates from %d turns", len(candidates), len(turns))
	return candidates, nil
}

func (e *Extractor) extractFromTurn(ctx context.Context, turn core.ConversationTurn) ([]*core.CandidateMemory, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.opts.Model),
		MaxTokens: e.opts.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)),
		},
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	proposals, err := parseProposals(text)
	if err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	var candidates []*core.CandidateMemory
	for _, p := range proposals {
		c := &core.CandidateMemory{
			ID:                 uuid.New().String(),
			MemoryType:         core.MemoryType(p.MemoryType),
			Content:            p.Content,
			Confidence:         p.Confidence,
			Relevance:          p.Relevance,
			Specificity:        p.Specificity,
			SourceTurn:         turn,
			ExtractionEvidence: fmt.Sprintf("LLM extraction: %s", p.Evidence),
			CreatedAt:          time.Now().UTC(),
		}
		if err := c.Validate(); err != nil {
			log.Printf("[EXTRACT] skipping malformed proposal: %v", err)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// parseProposals tolerates markdown code fences around the JSON array.
func parseProposals(text string) ([]proposed, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, nil
	}
	var proposals []proposed
	if err := json.Unmarshal([]byte(text), &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}
