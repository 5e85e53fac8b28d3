package recording

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	store, err := NewBoltStore(filepath.Join(t.TempDir(), "status.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func intPtr(v int) *int { return &v }

func TestBoltStoreUpdateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpdateStatus(ctx, "rec-1", StatusProcessing, &StatusUpdate{Progress: intPtr(10)})
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}

	state, err := store.GetStatus(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if state.Status != StatusProcessing {
		t.Errorf("status = %v, want %v", state.Status, StatusProcessing)
	}
	if state.ProgressPercent != 10 {
		t.Errorf("progress = %d, want 10", state.ProgressPercent)
	}

	// Completing merges transcript/summary over the existing state.
	err = store.UpdateStatus(ctx, "rec-1", StatusCompleted, &StatusUpdate{
		Progress:   intPtr(100),
		Transcript: "hello world",
		Summary:    "greeting",
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}

	state, err = store.GetStatus(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if state.Status != StatusCompleted || state.ProgressPercent != 100 {
		t.Errorf("state = %+v, want completed/100", state)
	}
	if state.Transcript != "hello world" || state.Summary != "greeting" {
		t.Errorf("transcript/summary not persisted: %+v", state)
	}
}

func TestBoltStoreFailureState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpdateStatus(ctx, "rec-2", StatusFailed, &StatusUpdate{
		Progress:     intPtr(0),
		ErrorMessage: "encoder exploded",
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}

	state, err := store.GetStatus(ctx, "rec-2")
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if state.Status != StatusFailed {
		t.Errorf("status = %v, want failed", state.Status)
	}
	if state.ErrorMessage != "encoder exploded" {
		t.Errorf("errorMessage = %q, want %q", state.ErrorMessage, "encoder exploded")
	}
	if !state.Status.IsTerminal() {
		t.Error("failed status must be terminal")
	}
}

func TestBoltStoreProgressClamped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpdateStatus(ctx, "rec-3", StatusProcessing, &StatusUpdate{Progress: intPtr(150)}); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	state, err := store.GetStatus(ctx, "rec-3")
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if state.ProgressPercent != 100 {
		t.Errorf("progress = %d, want clamped to 100", state.ProgressPercent)
	}

	if err := store.UpdateStatus(ctx, "rec-3", StatusProcessing, &StatusUpdate{Progress: intPtr(-5)}); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	state, err = store.GetStatus(ctx, "rec-3")
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if state.ProgressPercent != 0 {
		t.Errorf("progress = %d, want clamped to 0", state.ProgressPercent)
	}
}

func TestBoltStoreUnknownRecording(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetStatus(context.Background(), "missing")
	var notFound *ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("GetStatus() error = %v, want *ErrNotFound", err)
	}
}

func TestLocalBlobStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalBlobStore(dir)
	ctx := context.Background()

	payload := []byte("audio bytes")
	if err := store.Upload(ctx, "recordings", "rec-9/call.mp3", payload); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	got, err := store.Download(ctx, "recordings", "rec-9/call.mp3")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Download() = %q, want %q", got, payload)
	}

	_, err = store.Download(ctx, "recordings", "nope.mp3")
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Download() error = %v, want *StorageError", err)
	}

	_, err = store.Download(ctx, "recordings", "../outside.mp3")
	if !errors.As(err, &storageErr) {
		t.Fatalf("Download() path escape error = %v, want *StorageError", err)
	}
}
