package chromem

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/edyhq/decider-go/core"
	"github.com/edyhq/decider-go/decider/embedder/mock"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Embedder: mock.New()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRequiresEmbedder(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing embedder")
	}
}

func TestStoredRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	mem := &core.StoredMemory{
		Candidate: core.CandidateMemory{
			MemoryType: core.MemoryTypePreference,
			Content:    "hiking on weekends",
		},
		Decision:     core.MemoryDecision{Action: core.ActionKeep},
		FinalContent: "hiking on weekends",
		Embedding:    []float32{0.1, 0.2, 0.3},
		StoredAt:     time.Now().UTC(),
	}
	id, err := s.InsertStored(ctx, mem)
	if err != nil {
		t.Fatalf("InsertStored: %v", err)
	}

	out, err := s.RecentStored(ctx, 10, 0)
	if err != nil {
		t.Fatalf("RecentStored: %v", err)
	}
	if len(out) != 1 || out[0].ID != id {
		t.Fatalf("got %+v, want one record with id %s", out, id)
	}
	if out[0].FinalContent != "hiking on weekends" {
		t.Errorf("final_content = %q", out[0].FinalContent)
	}
	if len(out[0].Embedding) != 3 {
		t.Errorf("embedding did not survive the round trip: %v", out[0].Embedding)
	}
}

func TestRecentStoredOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.InsertStored(ctx, &core.StoredMemory{
			Candidate:    core.CandidateMemory{MemoryType: core.MemoryTypeGoal, Content: fmt.Sprintf("goal %d", i)},
			FinalContent: fmt.Sprintf("goal %d", i),
			StoredAt:     time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("InsertStored: %v", err)
		}
		ids = append(ids, id)
	}

	out, err := s.RecentStored(ctx, 2, 0)
	if err != nil {
		t.Fatalf("RecentStored: %v", err)
	}
	if len(out) != 2 || out[0].ID != ids[2] || out[1].ID != ids[1] {
		t.Fatalf("got %+v, want newest first", out)
	}
}

func TestBufferedDeleteLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.InsertBuffered(ctx, &core.BufferedMemory{
		Candidate:    core.CandidateMemory{MemoryType: core.MemoryTypeCommitment, Content: "finish the report"},
		BufferReason: "pending review",
		BufferScore:  0.6,
		BufferedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("InsertBuffered: %v", err)
	}

	got, err := s.GetBuffered(ctx, id)
	if err != nil {
		t.Fatalf("GetBuffered: %v", err)
	}
	if got.Candidate.Content != "finish the report" {
		t.Errorf("content = %q", got.Candidate.Content)
	}

	deleted, err := s.DeleteBuffered(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("DeleteBuffered = %v, %v; want true, nil", deleted, err)
	}

	// The document and the recency index agree after the delete.
	if _, err := s.GetBuffered(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetBuffered after delete = %v, want ErrNotFound", err)
	}
	remaining, err := s.RecentBuffered(ctx, 10, 0)
	if err != nil {
		t.Fatalf("RecentBuffered: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("deleted record still listed: %+v", remaining)
	}

	deleted, err = s.DeleteBuffered(ctx, id)
	if err != nil || deleted {
		t.Fatalf("second DeleteBuffered = %v, %v; want false, nil", deleted, err)
	}
}

func TestAuditNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, action := range []string{"store", "buffer", "approve"} {
		err := s.AppendAudit(ctx, &core.AuditLogEntry{
			Timestamp:  time.Now().UTC(),
			Action:     action,
			MemoryID:   "m1",
			MemoryType: core.MemoryTypePreference,
			Content:    "hiking on weekends",
		})
		if err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	out, err := s.RecentAudit(ctx, 2, 0)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(out) != 2 || out[0].Action != "approve" || out[1].Action != "buffer" {
		t.Fatalf("got %+v, want approve then buffer", out)
	}
}

func TestHealthCounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, err := s.InsertStored(ctx, &core.StoredMemory{
		Candidate:    core.CandidateMemory{MemoryType: core.MemoryTypePreference, Content: "a"},
		FinalContent: "a",
		StoredAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	health, err := s.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %s", health.Status)
	}
	if health.Collections["stored_memories"] != 1 {
		t.Errorf("collection counts = %+v", health.Collections)
	}
}
