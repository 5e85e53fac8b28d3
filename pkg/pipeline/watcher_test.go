package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/recording"
)

// fakeStatusStore serves scripted states and records updates in memory.
type fakeStatusStore struct {
	mu     sync.Mutex
	states map[string]*recording.ProcessingState

	// script, when set, returns the state for the nth GetStatus call,
	// repeating the last entry once exhausted.
	script []recording.ProcessingState
	calls  int

	updates []recordedUpdate
}

type recordedUpdate struct {
	recordingID string
	status      recording.Status
	update      recording.StatusUpdate
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{states: make(map[string]*recording.ProcessingState)}
}

func (s *fakeStatusStore) UpdateStatus(ctx context.Context, recordingID string, status recording.Status, update *recording.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[recordingID]
	if !ok {
		state = &recording.ProcessingState{ID: recordingID}
		s.states[recordingID] = state
	}
	state.Status = status
	if update != nil {
		if update.Progress != nil {
			state.ProgressPercent = *update.Progress
		}
		if update.Transcript != "" {
			state.Transcript = update.Transcript
		}
		if update.Summary != "" {
			state.Summary = update.Summary
		}
		if update.ErrorMessage != "" {
			state.ErrorMessage = update.ErrorMessage
		}
	}

	recorded := recordedUpdate{recordingID: recordingID, status: status}
	if update != nil {
		recorded.update = *update
	}
	s.updates = append(s.updates, recorded)
	return nil
}

func (s *fakeStatusStore) GetStatus(ctx context.Context, recordingID string) (*recording.ProcessingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.script) > 0 {
		idx := s.calls
		if idx >= len(s.script) {
			idx = len(s.script) - 1
		}
		s.calls++
		state := s.script[idx]
		return &state, nil
	}

	state, ok := s.states[recordingID]
	if !ok {
		return nil, &recording.ErrNotFound{RecordingID: recordingID}
	}
	copied := *state
	return &copied, nil
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		name             string
		estimatedSeconds int
		want             time.Duration
	}{
		{"zero estimate floors", 0, 100 * time.Millisecond},
		{"negative estimate floors", -5, 100 * time.Millisecond},
		{"tiny estimate floors", 1, 100 * time.Millisecond},
		{"mid estimate divides by twenty", 40, 2 * time.Second},
		{"large estimate capped at five seconds", 600, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PollInterval(tt.estimatedSeconds); got != tt.want {
				t.Errorf("PollInterval(%d) = %v, want %v", tt.estimatedSeconds, got, tt.want)
			}
		})
	}
}

func TestPollUntilTerminalCompleted(t *testing.T) {
	store := newFakeStatusStore()
	store.script = []recording.ProcessingState{
		{ID: "rec-1", Status: recording.StatusProcessing, ProgressPercent: 30},
		{ID: "rec-1", Status: recording.StatusProcessing, ProgressPercent: 70},
		{ID: "rec-1", Status: recording.StatusCompleted, Transcript: "done talking", Summary: "a short call"},
	}

	watcher := NewCompletionWatcher(store)
	var progress []int
	result, err := watcher.PollUntilTerminal(context.Background(), "rec-1", 1, time.Second, func(p int) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("PollUntilTerminal() error: %v", err)
	}
	if result.Transcript != "done talking" {
		t.Errorf("transcript = %q, want %q", result.Transcript, "done talking")
	}
	if result.Summary != "a short call" {
		t.Errorf("summary = %q, want %q", result.Summary, "a short call")
	}
	if len(progress) != 2 {
		t.Errorf("progress callbacks = %d, want 2", len(progress))
	}
	for _, p := range progress {
		if p < 0 || p > 100 {
			t.Errorf("progress %d out of range [0, 100]", p)
		}
	}
}

func TestPollUntilTerminalFailed(t *testing.T) {
	store := newFakeStatusStore()
	store.script = []recording.ProcessingState{
		{ID: "rec-2", Status: recording.StatusProcessing},
		{ID: "rec-2", Status: recording.StatusFailed, ErrorMessage: "backend exploded"},
	}

	watcher := NewCompletionWatcher(store)
	_, err := watcher.PollUntilTerminal(context.Background(), "rec-2", 1, time.Second, nil)
	if err == nil {
		t.Fatal("PollUntilTerminal() expected error for failed recording")
	}
	var timeoutErr *ProcessingTimeoutError
	if errors.As(err, &timeoutErr) {
		t.Fatalf("got timeout error, want stored failure: %v", err)
	}
}

func TestPollUntilTerminalTimesOut(t *testing.T) {
	store := newFakeStatusStore()
	store.script = []recording.ProcessingState{
		{ID: "rec-3", Status: recording.StatusProcessing, ProgressPercent: 42},
	}

	watcher := NewCompletionWatcher(store)
	started := time.Now()
	_, err := watcher.PollUntilTerminal(context.Background(), "rec-3", 1, 500*time.Millisecond, nil)
	elapsed := time.Since(started)

	var timeoutErr *ProcessingTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("PollUntilTerminal() error = %v, want *ProcessingTimeoutError", err)
	}
	if timeoutErr.RecordingID != "rec-3" {
		t.Errorf("timeout recording id = %q, want rec-3", timeoutErr.RecordingID)
	}
	if elapsed < 400*time.Millisecond {
		t.Errorf("returned after %v, expected to poll until near the 500ms ceiling", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("returned after %v, expected to stop shortly after the ceiling", elapsed)
	}
}

func TestPollUntilTerminalParentCancellation(t *testing.T) {
	store := newFakeStatusStore()
	store.script = []recording.ProcessingState{
		{ID: "rec-4", Status: recording.StatusProcessing},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	watcher := NewCompletionWatcher(store)
	_, err := watcher.PollUntilTerminal(ctx, "rec-4", 1, time.Minute, nil)
	if err == nil {
		t.Fatal("PollUntilTerminal() expected error after cancellation")
	}
	var timeoutErr *ProcessingTimeoutError
	if errors.As(err, &timeoutErr) {
		t.Fatalf("got timeout error, want plain cancellation: %v", err)
	}
}

func TestEstimateProgressBounds(t *testing.T) {
	if got := estimateProgress(0, 100); got != 10 {
		t.Errorf("estimateProgress(0, 100) = %d, want 10", got)
	}
	if got := estimateProgress(200*time.Second, 100); got != 95 {
		t.Errorf("estimateProgress(200s, 100) = %d, want 95 (capped)", got)
	}
	if got := estimateProgress(time.Second, 0); got != 50 {
		t.Errorf("estimateProgress(1s, 0) = %d, want 50", got)
	}
}
