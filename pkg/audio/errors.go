package audio

import (
	"fmt"
	"time"
)

// UnsupportedFormatError indicates that no decodable audio stream was found
// in the uploaded bytes. This is fatal and surfaced to the user.
type UnsupportedFormatError struct {
	Filename string
	Cause    error
}

func (e *UnsupportedFormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unsupported audio format: %s: %v", e.Filename, e.Cause)
	}
	return fmt.Sprintf("unsupported audio format: %s", e.Filename)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return e.Cause
}

// InvalidChunkConfigError indicates a chunk/overlap combination that would
// produce a zero or negative step size. This is a programmer or
// configuration error and fails fast.
type InvalidChunkConfigError struct {
	ChunkDuration   time.Duration
	OverlapDuration time.Duration
}

func (e *InvalidChunkConfigError) Error() string {
	return fmt.Sprintf("invalid chunk config: overlap %s must be smaller than chunk duration %s",
		e.OverlapDuration, e.ChunkDuration)
}

// EncodeFailureError wraps an encoder failure that was recovered locally by
// falling back to the original bytes. It is recorded, not propagated.
type EncodeFailureError struct {
	Cause error
}

func (e *EncodeFailureError) Error() string {
	return fmt.Sprintf("audio encoding failed: %v", e.Cause)
}

func (e *EncodeFailureError) Unwrap() error {
	return e.Cause
}
