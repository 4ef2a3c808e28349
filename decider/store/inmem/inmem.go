// Package inmem provides a volatile Store backed by process-local maps.
// It is safe for concurrent use and suited to tests and ephemeral demo
// servers. Records are copied on the way in and out so callers cannot
// mutate internal state.
package inmem

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/edyhq/decider-go/core"
)

// Store holds the three collections: stored memories, buffered memories
// and the append-only audit log.
type Store struct {
	mu sync.RWMutex

	stored      map[string]*core.StoredMemory
	storedOrder []string // insertion order, oldest first

	buffered      map[string]*core.BufferedMemory
	bufferedOrder []string

	audit []*core.AuditLogEntry
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		stored:   make(map[string]*core.StoredMemory),
		buffered: make(map[string]*core.BufferedMemory),
	}
}

// InsertStored persists an accepted memory and returns its generated id.
func (s *Store) InsertStored(ctx context.Context, mem *core.StoredMemory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	cp := cloneStored(mem)
	cp.ID = id
	s.stored[id] = cp
	s.storedOrder = append(s.storedOrder, id)
	return id, nil
}

// RecentStored returns stored memories ordered most recent first.
func (s *Store) RecentStored(ctx context.Context, limit, offset int) ([]*core.StoredMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.StoredMemory
	for _, id := range recentIDs(s.storedOrder, limit, offset) {
		out = append(out, cloneStored(s.stored[id]))
	}
	return out, nil
}

// InsertBuffered persists a pending-review memory and returns its id.
func (s *Store) InsertBuffered(ctx context.Context, mem *core.BufferedMemory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	cp := cloneBuffered(mem)
	cp.ID = id
	s.buffered[id] = cp
	s.bufferedOrder = append(s.bufferedOrder, id)
	return id, nil
}

// GetBuffered returns the buffered memory with the given id, or
// core.ErrNotFound.
func (s *Store) GetBuffered(ctx context.Context, id string) (*core.BufferedMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mem, ok := s.buffered[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneBuffered(mem), nil
}

// DeleteBuffered removes a buffered memory, reporting whether a record
// was actually deleted.
func (s *Store) DeleteBuffered(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buffered[id]; !ok {
		return false, nil
	}
	delete(s.buffered, id)
	for i, existing := range s.bufferedOrder {
		if existing == id {
			s.bufferedOrder = append(s.bufferedOrder[:i], s.bufferedOrder[i+1:]...)
			break
		}
	}
	return true, nil
}

// RecentBuffered returns buffered memories ordered most recent first.
func (s *Store) RecentBuffered(ctx context.Context, limit, offset int) ([]*core.BufferedMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.BufferedMemory
	for _, id := range recentIDs(s.bufferedOrder, limit, offset) {
		out = append(out, cloneBuffered(s.buffered[id]))
	}
	return out, nil
}

// AppendAudit appends one audit entry. Entries are never updated or
// deleted.
func (s *Store) AppendAudit(ctx context.Context, entry *core.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	if entry.Decision != nil {
		d := *entry.Decision
		cp.Decision = &d
	}
	s.audit = append(s.audit, &cp)
	return nil
}

// RecentAudit returns audit entries ordered most recent first.
func (s *Store) RecentAudit(ctx context.Context, limit, offset int) ([]*core.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || offset < 0 {
		return nil, nil
	}
	var out []*core.AuditLogEntry
	for i := len(s.audit) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		cp := *s.audit[i]
		if cp.Decision != nil {
			d := *cp.Decision
			cp.Decision = &d
		}
		out = append(out, &cp)
	}
	return out, nil
}

// Health reports per-collection counts. The in-memory store is always
// connected.
func (s *Store) Health(ctx context.Context) (*core.StoreHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &core.StoreHealth{
		Status:   "healthy",
		Database: "connected",
		Collections: map[string]int{
			"stored_memories":   len(s.stored),
			"buffered_memories": len(s.buffered),
			"audit_logs":        len(s.audit),
		},
	}, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// recentIDs walks an insertion-ordered id slice newest first, applying
// offset and limit.
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

func cloneStored(mem *core.StoredMemory) *core.StoredMemory {
	cp := *mem
	if mem.Embedding != nil {
		cp.Embedding = make([]float32, len(mem.Embedding))
		copy(cp.Embedding, mem.Embedding)
	}
	return &cp
}

func cloneBuffered(mem *core.BufferedMemory) *core.BufferedMemory {
	cp := *mem
	return &cp
}
