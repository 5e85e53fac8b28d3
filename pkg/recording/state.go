// Package recording defines the processing state of a recording and the
// boundary interfaces toward persistence and storage collaborators.
package recording

import (
	"context"
	"fmt"
)

// Status is a recording's processing status. Completed and Failed are
// terminal: no further processing occurs after either.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status ends processing for a recording.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProcessingState is the durable state of a recording. It is owned by the
// status store; the pipeline mutates it only through explicit update calls
// and never holds it as private state.
type ProcessingState struct {
	ID              string `json:"id"`
	Status          Status `json:"status"`
	ProgressPercent int    `json:"progress_percent"`
	Transcript      string `json:"transcript,omitempty"`
	Summary         string `json:"summary,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// StatusUpdate carries the optional fields of a status transition.
type StatusUpdate struct {
	Progress     *int
	Transcript   string
	Summary      string
	ErrorMessage string
}

// StatusStore persists recording state. Implementations must be safe under
// concurrent calls for different recording IDs; no ordering is required
// across distinct IDs.
type StatusStore interface {
	UpdateStatus(ctx context.Context, recordingID string, status Status, update *StatusUpdate) error
	GetStatus(ctx context.Context, recordingID string) (*ProcessingState, error)
}

// BlobStore fetches uploaded recording payloads.
type BlobStore interface {
	Download(ctx context.Context, bucket, path string) ([]byte, error)
}

// SubmitResult is the external backend's synchronous answer to a job
// submission. Completion is observed only through the status store.
type SubmitResult struct {
	Accepted bool
	Reason   string
}

// ExternalBackend delegates heavy-duty processing to an external service.
type ExternalBackend interface {
	Submit(ctx context.Context, recordingID, fileRef, priorityHint string) (*SubmitResult, error)
}

// StorageError wraps blob storage failures so callers can distinguish them
// from pipeline errors.
type StorageError struct {
	Bucket string
	Path   string
	Cause  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s/%s: %v", e.Bucket, e.Path, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ErrNotFound is returned by status stores when a recording is unknown.
type ErrNotFound struct {
	RecordingID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("recording not found: %s", e.RecordingID)
}
