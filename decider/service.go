package decider

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edyhq/decider-go/core"
)

// Service wires the Scorer, Deduper and Store into the full memory
// decision pipeline and executes the resulting lifecycle. Construct one at
// process start and pass it into request handlers.
type Service struct {
	cfg      *Config
	scorer   *Scorer
	deduper  *Deduper
	store    Store
	embedder Embedder
	notify   func(core.AuditLogEntry)

	// locks serializes admin resolution per buffered id, so two
	// concurrent approve/reject calls on the same id yield exactly one
	// success and one not-found.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures the service.
type Option func(*Service)

// WithEmbedder sets the embedder used to attach embedding vectors to
// stored memories. Without one, memories are stored without embeddings.
func WithEmbedder(e Embedder) Option {
	return func(s *Service) {
		s.embedder = e
	}
}

// WithAuditNotifier registers a callback invoked for every audit entry
// written, after the store write. Used by the live admin event feed.
func WithAuditNotifier(fn func(core.AuditLogEntry)) Option {
	return func(s *Service) {
		s.notify = fn
	}
}

// NewService creates the pipeline service. cfg may be nil for defaults;
// a non-nil cfg is validated.
func NewService(store Store, cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	deduper, err := NewDeduper(cfg)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:     cfg,
		scorer:  NewScorer(cfg),
		deduper: deduper,
		store:   store,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Printf("[LIFECYCLE] decider service initialized")
	return s, nil
}

// ProcessBatch runs a batch of candidates through score -> dedup ->
// resolve and executes the final decisions. One candidate's failure never
// affects its siblings: a storage failure downgrades that candidate from
// keep to buffer, and a buffer failure counts it as rejected.
func (s *Service) ProcessBatch(ctx context.Context, candidates []*core.CandidateMemory) (*core.BatchResult, error) {
	result := &core.BatchResult{
		Candidates: []*core.CandidateMemory{},
		Decisions:  []core.MemoryDecision{},
	}
	if len(candidates) == 0 {
		return result, nil
	}

	// Malformed candidates are rejected before scoring.
	var valid, invalid []*core.CandidateMemory
	var invalidDecisions []core.MemoryDecision
	for _, c := range candidates {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		if err := c.Validate(); err != nil {
			log.Printf("[LIFECYCLE] rejecting malformed candidate: %v", err)
			invalid = append(invalid, c)
			invalidDecisions = append(invalidDecisions, core.MemoryDecision{
				Action:    core.ActionReject,
				Reason:    err.Error(),
				Timestamp: time.Now().UTC(),
			})
			result.RejectedCount++
			continue
		}
		valid = append(valid, c)
	}

	scored := s.scorer.Score(valid)
	scorerDecisions := s.scorer.Classify(scored)

	window, err := s.store.RecentStored(ctx, s.cfg.DedupWindow, 0)
	if err != nil {
		// Dedup degrades to batch-local only; the batch still runs.
		log.Printf("[LIFECYCLE] stored window unavailable, dedup degraded: %v", err)
		window = nil
	}
	merges, residual := s.deduper.Deduplicate(scored, window)
	log.Printf("[LIFECYCLE] dedup: %d merge decisions, %d residual candidates", len(merges), len(residual))

	final := Resolve(scored, scorerDecisions, merges)

	for i, c := range scored {
		decision := final[i]

		if decision.Action == core.ActionKeep {
			if err := s.persist(ctx, c, decision, c.Content); err != nil {
				log.Printf("[LIFECYCLE] failed to store memory: %v", err)
				decision.Action = core.ActionBuffer
				decision.Reason = fmt.Sprintf("Storage failed, buffering instead: %v", err)
			} else {
				result.StoredCount++
			}
		}

		switch decision.Action {
		case core.ActionBuffer:
			if err := s.bufferCandidate(ctx, c, decision); err != nil {
				// Buffering is the terminal fallback; below it the
				// candidate is only counted.
				log.Printf("[LIFECYCLE] failed to buffer memory: %v", err)
				result.RejectedCount++
			} else {
				result.BufferedCount++
			}
		case core.ActionReject:
			result.RejectedCount++
			log.Printf("[LIFECYCLE] rejected memory: %q", excerpt(c.Content, 50))
		case core.ActionMerge:
			log.Printf("[LIFECYCLE] merged memory: %q", excerpt(c.Content, 50))
		}

		final[i] = decision
	}

	result.Candidates = append(scored, invalid...)
	result.Decisions = append(final, invalidDecisions...)

	log.Printf("[LIFECYCLE] batch complete: %d stored, %d buffered, %d rejected",
		result.StoredCount, result.BufferedCount, result.RejectedCount)
	return result, nil
}

// persist stores an accepted memory and writes the audit entry.
func (s *Service) persist(ctx context.Context, c *core.CandidateMemory, decision core.MemoryDecision, finalContent string) error {
	mem := &core.StoredMemory{
		Candidate:    *c,
		Decision:     decision,
		FinalContent: finalContent,
		StoredAt:     time.Now().UTC(),
	}
	if s.embedder != nil {
		embedding, err := s.embedder.Embed(ctx, finalContent)
		if err != nil {
			// The embedding is a substrate for future similarity work,
			// not a prerequisite for storage.
			log.Printf("[LIFECYCLE] embedding failed, storing without: %v", err)
		} else {
			mem.Embedding = embedding
		}
	}

	id, err := s.store.InsertStored(ctx, mem)
	if err != nil {
		return &core.StorageError{Op: "insert stored", Err: err}
	}
	mem.ID = id
	log.Printf("[LIFECYCLE] stored memory %s", id)

	s.audit(ctx, "store", id, &decision, c)
	return nil
}

// bufferCandidate persists a pending-review record and writes the audit
// entry.
func (s *Service) bufferCandidate(ctx context.Context, c *core.CandidateMemory, decision core.MemoryDecision) error {
	buf := &core.BufferedMemory{
		Candidate:    *c,
		BufferReason: decision.Reason,
		BufferScore:  c.SalienceScore,
		BufferedAt:   time.Now().UTC(),
	}
	id, err := s.store.InsertBuffered(ctx, buf)
	if err != nil {
		return &core.StorageError{Op: "insert buffered", Err: err}
	}
	log.Printf("[LIFECYCLE] buffered memory %s: %q", id, excerpt(c.Content, 50))

	s.audit(ctx, "buffer", id, &decision, c)
	return nil
}

// ResolveBuffered applies an admin decision to a buffered memory.
// action is "approve" or "reject". notes and modifiedContent are optional;
// modifiedContent only applies to approvals.
func (s *Service) ResolveBuffered(ctx context.Context, id, action, notes, modifiedContent string) error {
	switch action {
	case "approve":
		return s.ApproveBuffered(ctx, id, notes, modifiedContent)
	case "reject":
		return s.RejectBuffered(ctx, id, notes)
	default:
		return fmt.Errorf("unknown resolution action %q", action)
	}
}

// ApproveBuffered promotes a buffered memory to storage. The buffered
// record is deleted only after the stored record is persisted, so a
// failed persist leaves it intact and available for retry. A second call
// on the same id returns core.ErrNotFound.
func (s *Service) ApproveBuffered(ctx context.Context, id, notes, modifiedContent string) error {
	unlock := s.lockID(id)
	defer unlock()

	buf, err := s.store.GetBuffered(ctx, id)
	if err != nil {
		return err
	}

	content := buf.Candidate.Content
	if modifiedContent != "" {
		content = modifiedContent
	}
	decision := core.MemoryDecision{
		Action:     core.ActionKeep,
		Reason:     "Approved by admin review",
		AdminNotes: notes,
		Timestamp:  time.Now().UTC(),
	}

	mem := &core.StoredMemory{
		Candidate:    buf.Candidate,
		Decision:     decision,
		FinalContent: content,
		StoredAt:     time.Now().UTC(),
	}
	if s.embedder != nil {
		if embedding, err := s.embedder.Embed(ctx, content); err != nil {
			log.Printf("[LIFECYCLE] embedding failed, storing without: %v", err)
		} else {
			mem.Embedding = embedding
		}
	}

	storedID, err := s.store.InsertStored(ctx, mem)
	if err != nil {
		return &core.StorageError{Op: "insert stored", Err: err}
	}
	log.Printf("[LIFECYCLE] approved buffered memory %s -> stored %s", id, storedID)

	if _, err := s.store.DeleteBuffered(ctx, id); err != nil {
		return &core.StorageError{Op: "delete buffered", Err: err}
	}

	s.audit(ctx, "approve", storedID, &decision, &buf.Candidate)
	return nil
}

// RejectBuffered discards a buffered memory with a terminal audit entry.
// The audit entry is written before the record is deleted, so the trail
// survives even if the delete fails. A second call on the same id returns
// core.ErrNotFound.
func (s *Service) RejectBuffered(ctx context.Context, id, notes string) error {
	unlock := s.lockID(id)
	defer unlock()

	buf, err := s.store.GetBuffered(ctx, id)
	if err != nil {
		return err
	}

	decision := core.MemoryDecision{
		Action:     core.ActionReject,
		Reason:     "Rejected by admin review",
		AdminNotes: notes,
		Timestamp:  time.Now().UTC(),
	}
	s.audit(ctx, "reject", id, &decision, &buf.Candidate)

	if _, err := s.store.DeleteBuffered(ctx, id); err != nil {
		return &core.StorageError{Op: "delete buffered", Err: err}
	}
	log.Printf("[LIFECYCLE] rejected buffered memory %s", id)
	return nil
}

// StoredMemories lists stored memories, most recent first.
func (s *Service) StoredMemories(ctx context.Context, limit, offset int) ([]*core.StoredMemory, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.RecentStored(ctx, limit, offset)
}

// BufferedMemories lists memories awaiting review, most recent first.
func (s *Service) BufferedMemories(ctx context.Context, limit, offset int) ([]*core.BufferedMemory, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.RecentBuffered(ctx, limit, offset)
}

// AuditLog lists recent audit entries, most recent first.
func (s *Service) AuditLog(ctx context.Context, limit, offset int) ([]*core.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.RecentAudit(ctx, limit, offset)
}

// Health reports the service and store status.
func (s *Service) Health(ctx context.Context) *core.StoreHealth {
	health, err := s.store.Health(ctx)
	if err != nil {
		return &core.StoreHealth{
			Status:    "unhealthy",
			Database:  fmt.Sprintf("error: %v", err),
			Timestamp: time.Now().UTC(),
		}
	}
	health.Timestamp = time.Now().UTC()
	return health
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// audit appends one audit entry. An audit write failure is logged and
// swallowed: the trail is advisory and must not roll back the primary
// state change.
func (s *Service) audit(ctx context.Context, action, memoryID string, decision *core.MemoryDecision, c *core.CandidateMemory) {
	entry := core.AuditLogEntry{
		Timestamp:     time.Now().UTC(),
		Action:        action,
		MemoryID:      memoryID,
		MemoryType:    c.MemoryType,
		Content:       c.Content,
		SalienceScore: c.SalienceScore,
		Decision:      decision,
		Evidence:      c.ExtractionEvidence,
	}
	if err := s.store.AppendAudit(ctx, &entry); err != nil {
		log.Printf("[LIFECYCLE] audit write failed (ignored): %v", err)
	}
	if s.notify != nil {
		s.notify(entry)
	}
}

// lockID acquires the per-id resolution lock, creating it on first use.
// Entries are kept for the process lifetime; resolved ids are few and the
// mutexes are small.
func (s *Service) lockID(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
