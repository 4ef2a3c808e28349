package core

import (
	"fmt"
	"time"
)

// MemoryType classifies what kind of statement a memory captures.
type MemoryType string

const (
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeGoal       MemoryType = "goal"
	MemoryTypeCommitment MemoryType = "commitment"
	MemoryTypeSkill      MemoryType = "skill"
	MemoryTypeFeedback   MemoryType = "feedback"
)

// Known reports whether t is one of the defined memory types.
func (t MemoryType) Known() bool {
	switch t {
	case MemoryTypePreference, MemoryTypeGoal, MemoryTypeCommitment, MemoryTypeSkill, MemoryTypeFeedback:
		return true
	}
	return false
}

// ConversationTurn is a single utterance in a conversation.
type ConversationTurn struct {
	Speaker   string         `json:"speaker" yaml:"speaker"`
	Text      string         `json:"text" yaml:"text"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// CandidateMemory is an unpersisted statement extracted from conversation,
// awaiting a scoring/dedup decision.
//
// The three feature scores and the derived salience score live in [0,1].
// A candidate is immutable once scored, except SalienceScore which the
// Scorer is the sole writer of.
type CandidateMemory struct {
	// ID is the stable per-candidate key. Extractors assign it; the
	// pipeline assigns one on entry if it is empty. Merge decisions and
	// the resolver match on it, never on list position.
	ID                 string           `json:"id,omitempty"`
	MemoryType         MemoryType       `json:"memory_type"`
	Content            string           `json:"content"`
	Confidence         float64          `json:"confidence"`
	Relevance          float64          `json:"relevance"`
	Specificity        float64          `json:"specificity"`
	SalienceScore      float64          `json:"salience_score"`
	SourceTurn         ConversationTurn `json:"source_turn"`
	ExtractionEvidence string           `json:"extraction_evidence"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Validate checks the candidate is well formed before it enters the
// pipeline. Feature scores outside [0,1] are a ValidationError, not
// something to clamp silently.
func (c *CandidateMemory) Validate() error {
	if c.Content == "" {
		return &ValidationError{Field: "content", Message: "content is empty"}
	}
	if !c.MemoryType.Known() {
		return &ValidationError{Field: "memory_type", Message: fmt.Sprintf("unknown memory type %q", c.MemoryType)}
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"confidence", c.Confidence},
		{"relevance", c.Relevance},
		{"specificity", c.Specificity},
	} {
		if f.value < 0 || f.value > 1 {
			return &ValidationError{Field: f.name, Message: fmt.Sprintf("%s %v outside [0,1]", f.name, f.value)}
		}
	}
	return nil
}

// Action is the outcome of a decision about a candidate.
type Action string

const (
	ActionKeep   Action = "keep"
	ActionBuffer Action = "buffer"
	ActionReject Action = "reject"
	ActionMerge  Action = "merge"
)

// MemoryDecision is the outcome attached to a candidate. It is a value
// object: created once and not mutated afterwards, except when a storage
// failure forces a downgrade from keep to buffer.
type MemoryDecision struct {
	Action Action `json:"action"`

	// Reason is a human readable justification citing the numeric
	// comparison that produced it.
	Reason string `json:"reason"`

	// MergedWith references the surviving memory's id. Set iff
	// Action == ActionMerge.
	MergedWith string `json:"merged_with,omitempty"`

	// AdminNotes is set only by human review.
	AdminNotes string `json:"admin_notes,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// StoredMemory is the durable record of an accepted memory. It owns a
// snapshot of the candidate and the decision that accepted it; it is never
// mutated after creation.
type StoredMemory struct {
	ID        string          `json:"id,omitempty"`
	Candidate CandidateMemory `json:"candidate"`
	Decision  MemoryDecision  `json:"decision"`

	// FinalContent may differ from the candidate content when an admin
	// supplied a correction at approval time.
	FinalContent string `json:"final_content"`

	// Embedding is a similarity substrate only; the dedup path is
	// lexical and does not read it.
	Embedding []float32 `json:"embedding,omitempty"`

	StoredAt time.Time `json:"stored_at"`
}

// BufferedMemory is the durable record of a memory deferred to human
// review. It is destroyed exactly once: promoted to a StoredMemory on
// approve, or deleted with a terminal audit entry on reject.
type BufferedMemory struct {
	ID           string          `json:"id,omitempty"`
	Candidate    CandidateMemory `json:"candidate"`
	BufferReason string          `json:"buffer_reason"`

	// BufferScore is the salience score at buffering time.
	BufferScore float64   `json:"buffer_score"`
	BufferedAt  time.Time `json:"buffered_at"`
}

// AuditLogEntry is an append-only record of a lifecycle transition. It is
// write-once and survives even if the memory it references is later
// deleted.
type AuditLogEntry struct {
	Timestamp     time.Time       `json:"timestamp"`
	Action        string          `json:"action"`
	MemoryID      string          `json:"memory_id"`
	MemoryType    MemoryType      `json:"memory_type"`
	Content       string          `json:"content"`
	SalienceScore float64         `json:"salience_score"`
	Decision      *MemoryDecision `json:"decision,omitempty"`
	Evidence      string          `json:"evidence,omitempty"`
}

// BatchResult aggregates one pipeline run. Decisions[i] is the final
// decision for Candidates[i]; merged candidates are counted as processed
// but appear in none of the three counters.
type BatchResult struct {
	Candidates    []*CandidateMemory `json:"candidates"`
	Decisions     []MemoryDecision   `json:"decisions"`
	StoredCount   int                `json:"stored_count"`
	BufferedCount int                `json:"buffered_count"`
	RejectedCount int                `json:"rejected_count"`
}

// StoreHealth reports store connectivity and per-collection counts.
type StoreHealth struct {
	Status      string         `json:"status"`
	Database    string         `json:"database"`
	Collections map[string]int `json:"collections"`
	Timestamp   time.Time      `json:"timestamp"`
}
