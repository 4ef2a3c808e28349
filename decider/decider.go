package decider

import (
	"context"

	"github.com/edyhq/decider-go/core"
)

// Store is the durable backend for stored memories, buffered memories and
// the audit log. Implementations: inmem (tests, demo servers), chromem
// (embedded vector database, optional on-disk persistence).
//
// The pipeline is the only writer. The Deduper reads RecentStored as a
// snapshot window; it never mutates anything.
type Store interface {
	// InsertStored persists an accepted memory and returns its generated id.
	InsertStored(ctx context.Context, mem *core.StoredMemory) (string, error)

	// RecentStored returns stored memories ordered most recent first.
	RecentStored(ctx context.Context, limit, offset int) ([]*core.StoredMemory, error)

	// InsertBuffered persists a pending-review memory and returns its id.
	InsertBuffered(ctx context.Context, mem *core.BufferedMemory) (string, error)

	// GetBuffered returns the buffered memory with the given id, or
	// core.ErrNotFound if it does not exist (or was already resolved).
	GetBuffered(ctx context.Context, id string) (*core.BufferedMemory, error)

	// DeleteBuffered removes a buffered memory. It reports whether a
	// record was actually deleted, so a lost delete race is detectable.
	DeleteBuffered(ctx context.Context, id string) (bool, error)

	// RecentBuffered returns buffered memories ordered most recent first.
	RecentBuffered(ctx context.Context, limit, offset int) ([]*core.BufferedMemory, error)

	// AppendAudit writes one audit log entry. Entries are write-once and
	// never updated or deleted.
	AppendAudit(ctx context.Context, entry *core.AuditLogEntry) error

	// RecentAudit returns audit entries ordered most recent first.
	RecentAudit(ctx context.Context, limit, offset int) ([]*core.AuditLogEntry, error)

	// Health reports connectivity and per-collection counts.
	Health(ctx context.Context) (*core.StoreHealth, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings. The embedding is stored on
// accepted memories as a similarity substrate for future use; the dedup
// path itself is lexical and never reads it.
//
// Implementations: mock (deterministic hash-seeded placeholder), openai
// (production), onnx (local model, build tag `onnx`).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
