package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

func TestStore_ItemLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "taskboard.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if _, ok, err := store.GetItem(ctx, "missing"); err != nil || ok {
		t.Fatalf("GetItem(missing) = %v, %v", ok, err)
	}
	if err := store.SetItem(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	if err := store.SetItem(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	value, ok, err := store.GetItem(ctx, "k")
	if err != nil || !ok || value != "v2" {
		t.Fatalf("GetItem() = %q, %v, %v", value, ok, err)
	}
	updated, err := store.UpdatedAt(ctx, "k")
	if err != nil {
		t.Fatalf("UpdatedAt() error = %v", err)
	}
	if !updated.Equal(now) {
		t.Fatalf("UpdatedAt() = %v, want %v", updated, now)
	}
	if err := store.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if err := store.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("RemoveItem(missing) error = %v", err)
	}
	if _, err := store.UpdatedAt(ctx, "k"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DraftSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	drafts := store.Drafts()

	if _, ok, err := drafts.Load(ctx); err != nil || ok {
		t.Fatalf("Load() on empty slot = %v, %v", ok, err)
	}
	title := "Fix bug"
	status := domain.StatusDone
	if err := drafts.Save(ctx, domain.Draft{Title: &title, Status: &status, BoardID: domain.IntPtr(1)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, ok, err := store.GetItem(ctx, DraftKey)
	if err != nil || !ok {
		t.Fatalf("GetItem(draft) = %v, %v", ok, err)
	}
	if raw != `{"title":"Fix bug","status":"done","boardId":1}` {
		t.Fatalf("unexpected stored draft %s", raw)
	}
	got, ok, err := drafts.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if *got.Title != title || *got.Status != status || *got.BoardID != 1 || got.Priority != nil {
		t.Fatalf("unexpected draft %#v", got)
	}
	if err := drafts.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := drafts.Load(ctx); ok {
		t.Fatalf("draft survived Clear()")
	}
}

func TestStore_MalformedDraft(t *testing.T) {
	ctx := context.Background()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if err := store.SetItem(ctx, DraftKey, "not json"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	if _, ok, err := store.Drafts().Load(ctx); ok || !errors.Is(err, domain.ErrMalformedDraft) {
		t.Fatalf("expected ErrMalformedDraft, got %v, %v", ok, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}
