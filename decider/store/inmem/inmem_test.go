package inmem

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/edyhq/decider-go/core"
)

func storedMemory(content string) *core.StoredMemory {
	return &core.StoredMemory{
		Candidate: core.CandidateMemory{
			MemoryType: core.MemoryTypePreference,
			Content:    content,
		},
		Decision:     core.MemoryDecision{Action: core.ActionKeep},
		FinalContent: content,
		StoredAt:     time.Now().UTC(),
	}
}

func bufferedMemory(content string) *core.BufferedMemory {
	return &core.BufferedMemory{
		Candidate: core.CandidateMemory{
			MemoryType: core.MemoryTypeGoal,
			Content:    content,
		},
		BufferReason: "pending review",
		BufferScore:  0.55,
		BufferedAt:   time.Now().UTC(),
	}
}

func TestInsertStoredAssignsID(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.InsertStored(ctx, storedMemory("hiking on weekends"))
	if err != nil {
		t.Fatalf("InsertStored: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	out, err := s.RecentStored(ctx, 10, 0)
	if err != nil {
		t.Fatalf("RecentStored: %v", err)
	}
	if len(out) != 1 || out[0].ID != id {
		t.Fatalf("got %+v, want one record with id %s", out, id)
	}
}

func TestRecentStoredOrderAndPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := s.InsertStored(ctx, storedMemory(fmt.Sprintf("memory %d", i)))
		if err != nil {
			t.Fatalf("InsertStored: %v", err)
		}
		ids = append(ids, id)
	}

	out, err := s.RecentStored(ctx, 2, 1)
	if err != nil {
		t.Fatalf("RecentStored: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	// Newest first, skipping the most recent one.
	if out[0].ID != ids[3] || out[1].ID != ids[2] {
		t.Errorf("got ids %s, %s; want %s, %s", out[0].ID, out[1].ID, ids[3], ids[2])
	}
}

func TestRecentStoredCopiesOut(t *testing.T) {
	ctx := context.Background()
	s := New()

	mem := storedMemory("hiking on weekends")
	mem.Embedding = []float32{1, 2, 3}
	if _, err := s.InsertStored(ctx, mem); err != nil {
		t.Fatalf("InsertStored: %v", err)
	}

	first, _ := s.RecentStored(ctx, 1, 0)
	first[0].FinalContent = "mutated"
	first[0].Embedding[0] = 99

	second, _ := s.RecentStored(ctx, 1, 0)
	if second[0].FinalContent != "hiking on weekends" {
		t.Error("caller mutation leaked into the store")
	}
	if second[0].Embedding[0] != 1 {
		t.Error("embedding mutation leaked into the store")
	}
}

func TestBufferedLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.InsertBuffered(ctx, bufferedMemory("learn rust this year"))
	if err != nil {
		t.Fatalf("InsertBuffered: %v", err)
	}

	got, err := s.GetBuffered(ctx, id)
	if err != nil {
		t.Fatalf("GetBuffered: %v", err)
	}
	if got.Candidate.Content != "learn rust this year" {
		t.Errorf("content = %q", got.Candidate.Content)
	}

	deleted, err := s.DeleteBuffered(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("DeleteBuffered = %v, %v; want true, nil", deleted, err)
	}

	if _, err := s.GetBuffered(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetBuffered after delete = %v, want ErrNotFound", err)
	}

	// Deleting twice reports false without an error.
	deleted, err = s.DeleteBuffered(ctx, id)
	if err != nil || deleted {
		t.Fatalf("second DeleteBuffered = %v, %v; want false, nil", deleted, err)
	}

	out, _ := s.RecentBuffered(ctx, 10, 0)
	if len(out) != 0 {
		t.Fatalf("deleted record still listed: %+v", out)
	}
}

func TestAuditAppendOnlyNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, action := range []string{"store", "buffer", "approve"} {
		err := s.AppendAudit(ctx, &core.AuditLogEntry{
			Timestamp: time.Now().UTC(),
			Action:    action,
			MemoryID:  "m1",
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
	s := New()

	if _, err := s.InsertStored(ctx, storedMemory("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertBuffered(ctx, bufferedMemory("b")); err != nil {
		t.Fatal(err)
	}

	health, err := s.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %s", health.Status)
	}
	if health.Collections["stored_memories"] != 1 || health.Collections["buffered_memories"] != 1 {
		t.Errorf("collection counts = %+v", health.Collections)
	}
}
