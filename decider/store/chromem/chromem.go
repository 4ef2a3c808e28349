// Package chromem backs the decider Store with chromem-go, an embedded
// pure-Go vector database. Records are serialized to JSON documents; the
// embedding slot carries each stored memory's vector so the collection
// stays queryable by similarity if a semantic dedup is ever substituted.
//
// chromem-go has no ordered scan, so recency indexes are kept in memory
// alongside the collections. With a persistent DB the documents survive a
// restart but the recency index covers the current process only.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/edyhq/decider-go/core"
	"github.com/edyhq/decider-go/decider"
)

// Config configures the chromem store.
type Config struct {
	// Path enables on-disk persistence when non-empty. Empty keeps
	// everything in memory.
	Path string

	// Embedder supplies vectors for documents inserted without one
	// (buffered memories, audit entries). Required.
	Embedder decider.Embedder
}

// Store implements decider.Store on top of chromem-go collections.
type Store struct {
	db       *chromem.DB
	stored   *chromem.Collection
	buffered *chromem.Collection
	audit    *chromem.Collection

	mu            sync.RWMutex
	storedOrder   []string
	bufferedOrder []string
	auditOrder    []string
	bufferedIDs   map[string]bool
}

// New creates a chromem-backed store with three collections.
func New(cfg Config) (*Store, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("chromem store requires an embedder")
	}

	var db *chromem.DB
	if cfg.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return cfg.Embedder.Embed(ctx, text)
	}

	s := &Store{db: db, bufferedIDs: make(map[string]bool)}
	for _, col := range []struct {
		name string
		dst  **chromem.Collection
	}{
		{"stored_memories", &s.stored},
		{"buffered_memories", &s.buffered},
		{"audit_logs", &s.audit},
	} {
		c, err := db.GetOrCreateCollection(col.name, nil, embed)
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", col.name, err)
		}
		*col.dst = c
	}
	return s, nil
}

// InsertStored persists an accepted memory and returns its generated id.
func (s *Store) InsertStored(ctx context.Context, mem *core.StoredMemory) (string, error) {
	id := uuid.New().String()
	cp := *mem
	cp.ID = id

	content, err := json.Marshal(&cp)
	if err != nil {
		return "", fmt.Errorf("marshal stored memory: %w", err)
	}
	doc := chromem.Document{
		ID:        id,
		Content:   string(content),
		Embedding: cp.Embedding,
		Metadata: map[string]string{
			"memory_type": string(cp.Candidate.MemoryType),
			"stored_at":   cp.StoredAt.Format("2006-01-02T15:04:05.000Z07:00"),
		},
	}
	if err := s.stored.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("add stored document: %w", err)
	}

	s.mu.Lock()
	s.storedOrder = append(s.storedOrder, id)
	s.mu.Unlock()
	return id, nil
}

// RecentStored returns stored memories ordered most recent first.
func (s *Store) RecentStored(ctx context.Context, limit, offset int) ([]*core.StoredMemory, error) {
	s.mu.RLock()
	ids := recentIDs(s.storedOrder, limit, offset)
	s.mu.RUnlock()

	var out []*core.StoredMemory
	for _, id := range ids {
		doc, err := s.stored.GetByID(ctx, id)
		if err != nil {
			continue
		}
		var mem core.StoredMemory
		if err := json.Unmarshal([]byte(doc.Content), &mem); err != nil {
			continue
		}
		out = append(out, &mem)
	}
	return out, nil
}

// InsertBuffered persists a pending-review memory and returns its id.
func (s *Store) InsertBuffered(ctx context.Context, mem *core.BufferedMemory) (string, error) {
	id := uuid.New().String()
	cp := *mem
	cp.ID = id

	content, err := json.Marshal(&cp)
	if err != nil {
		return "", fmt.Errorf("marshal buffered memory: %w", err)
	}
	doc := chromem.Document{
		ID:      id,
		Content: string(content),
		Metadata: map[string]string{
			"memory_type": string(cp.Candidate.MemoryType),
		},
	}
	if err := s.buffered.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("add buffered document: %w", err)
	}

	s.mu.Lock()
	s.bufferedOrder = append(s.bufferedOrder, id)
	s.bufferedIDs[id] = true
	s.mu.Unlock()
	return id, nil
}

// GetBuffered returns the buffered memory with the given id, or
// core.ErrNotFound.
func (s *Store) GetBuffered(ctx context.Context, id string) (*core.BufferedMemory, error) {
	s.mu.RLock()
	known := s.bufferedIDs[id]
	s.mu.RUnlock()
	if !known {
		return nil, core.ErrNotFound
	}

	doc, err := s.buffered.GetByID(ctx, id)
	if err != nil {
		return nil, core.ErrNotFound
	}
	var mem core.BufferedMemory
	if err := json.Unmarshal([]byte(doc.Content), &mem); err != nil {
		return nil, fmt.Errorf("unmarshal buffered memory: %w", err)
	}
	return &mem, nil
}

// DeleteBuffered removes a buffered memory, reporting whether a record
// was actually deleted.
func (s *Store) DeleteBuffered(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	known := s.bufferedIDs[id]
	s.mu.RUnlock()
	if !known {
		return false, nil
	}

	if err := s.buffered.Delete(ctx, nil, nil, id); err != nil {
		// The index still lists the id, so the record stays visible and
		// the delete can be retried.
		return false, fmt.Errorf("delete buffered document: %w", err)
	}

	s.mu.Lock()
	deleted := s.bufferedIDs[id]
	if deleted {
		delete(s.bufferedIDs, id)
		for i, existing := range s.bufferedOrder {
			if existing == id {
				s.bufferedOrder = append(s.bufferedOrder[:i], s.bufferedOrder[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	return deleted, nil
}

// RecentBuffered returns buffered memories ordered most recent first.
func (s *Store) RecentBuffered(ctx context.Context, limit, offset int) ([]*core.BufferedMemory, error) {
	s.mu.RLock()
	ids := recentIDs(s.bufferedOrder, limit, offset)
	s.mu.RUnlock()

	var out []*core.BufferedMemory
	for _, id := range ids {
		doc, err := s.buffered.GetByID(ctx, id)
		if err != nil {
			continue
		}
		var mem core.BufferedMemory
		if err := json.Unmarshal([]byte(doc.Content), &mem); err != nil {
			continue
		}
		out = append(out, &mem)
	}
	return out, nil
}

// AppendAudit writes one audit entry as a document.
func (s *Store) AppendAudit(ctx context.Context, entry *core.AuditLogEntry) error {
	id := uuid.New().String()
	content, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	doc := chromem.Document{
		ID:      id,
		Content: string(content),
		Metadata: map[string]string{
			"action":    entry.Action,
			"memory_id": entry.MemoryID,
		},
	}
	if err := s.audit.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add audit document: %w", err)
	}

	s.mu.Lock()
	s.auditOrder = append(s.auditOrder, id)
	s.mu.Unlock()
	return nil
}

// RecentAudit returns audit entries ordered most recent first.
func (s *Store) RecentAudit(ctx context.Context, limit, offset int) ([]*core.AuditLogEntry, error) {
	s.mu.RLock()
	ids := recentIDs(s.auditOrder, limit, offset)
	s.mu.RUnlock()

	var out []*core.AuditLogEntry
	for _, id := range ids {
		doc, err := s.audit.GetByID(ctx, id)
		if err != nil {
			continue
		}
		var entry core.AuditLogEntry
		if err := json.Unmarshal([]byte(doc.Content), &entry); err != nil {
			continue
		}
		out = append(out, &entry)
	}
	return out, nil
}

// Health reports per-collection counts.
func (s *Store) Health(ctx context.Context) (*core.StoreHealth, error) {
	return &core.StoreHealth{
		Status:   "healthy",
		Database: "connected",
		Collections: map[string]int{
			"stored_memories":   s.stored.Count(),
			"buffered_memories": s.buffered.Count(),
			"audit_logs":        s.audit.Count(),
		},
	}, nil
}

// Close releases resources. chromem keeps persistent state on disk as it
// writes; nothing to flush.
func (s *Store) Close() error {
	return nil
}

func recentIDs(order []string, limit, offset int) []string {
	if limit <= 0 || offset < 0 {
		return nil
	}
	var out []string
	for i := len(order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, order[i])
	}
	return out
}
