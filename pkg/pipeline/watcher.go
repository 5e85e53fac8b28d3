package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/recording"
)

const (
	// DefaultPollTimeout is the wall-clock ceiling for delegated jobs,
	// independent of their estimated duration.
	DefaultPollTimeout = 5 * time.Minute

	// maxPollInterval caps how rarely a delegated job is observed.
	maxPollInterval = 5 * time.Second

	// minPollInterval keeps tiny estimates from busy-polling the store.
	minPollInterval = 100 * time.Millisecond

	// pollsPerEstimate aims for about this many observations across the
	// estimated processing duration.
	pollsPerEstimate = 20
)

// ProcessingTimeoutError indicates a delegated job did not reach a terminal
// state within the polling ceiling.
type ProcessingTimeoutError struct {
	RecordingID string
	Timeout     time.Duration
}

func (e *ProcessingTimeoutError) Error() string {
	return fmt.Sprintf("recording %s did not complete within %s", e.RecordingID, e.Timeout)
}

// TerminalResult carries the outputs of a completed recording.
type TerminalResult struct {
	Transcript string
	Summary    string
}

// ProgressFunc receives progress estimates as processing advances.
// Percentages are in [0, 100].
type ProgressFunc func(percent int)

// CompletionWatcher polls the status store until a recording reaches a
// terminal state or the ceiling expires.
type CompletionWatcher struct {
	store recording.StatusStore
}

// NewCompletionWatcher creates a watcher over the given status store.
func NewCompletionWatcher(store recording.StatusStore) *CompletionWatcher {
	return &CompletionWatcher{store: store}
}

// PollInterval converts an estimated duration into a poll interval aiming
// for about twenty observations, capped at five seconds.
func PollInterval(estimatedSeconds int) time.Duration {
	if estimatedSeconds <= 0 {
		return minPollInterval
	}
	interval := time.Duration(estimatedSeconds) * time.Second / pollsPerEstimate
	if interval > maxPollInterval {
		return maxPollInterval
	}
	if interval < minPollInterval {
		return minPollInterval
	}
	return interval
}

// PollUntilTerminal polls until the recording completes or fails, reporting
// elapsed-time progress estimates through onProgress when provided. It fails
// with *ProcessingTimeoutError when no terminal state is observed within
// timeout.
func (w *CompletionWatcher) PollUntilTerminal(ctx context.Context, recordingID string, estimatedSeconds int, timeout time.Duration, onProgress ProgressFunc) (*TerminalResult, error) {
	log := logger.WithComponent("completion-watcher").WithField("recording_id", recordingID)

	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	interval := PollInterval(estimatedSeconds)

	log.Info().
		Dur("poll_interval", interval).
		Dur("timeout", timeout).
		Int("estimated_seconds", estimatedSeconds).
		Msg("Watching for completion")

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	var result *TerminalResult

	operation := func() error {
		state, err := w.store.GetStatus(pollCtx, recordingID)
		if err != nil {
			// Keep polling through store errors: an unknown recording may
			// not have its first state written yet, and transient store
			// failures resolve on the next observation.
			return err
		}

		switch state.Status {
		case recording.StatusCompleted:
			result = &TerminalResult{
				Transcript: state.Transcript,
				Summary:    state.Summary,
			}
			return nil
		case recording.StatusFailed:
			msg := state.ErrorMessage
			if msg == "" {
				msg = "processing failed"
			}
			return backoff.Permanent(fmt.Errorf("recording %s failed: %s", recordingID, msg))
		default:
			if onProgress != nil {
				onProgress(estimateProgress(time.Since(started), estimatedSeconds))
			}
			return fmt.Errorf("recording %s still %s", recordingID, state.Status)
		}
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(interval), pollCtx)
	err := backoff.Retry(operation, bo)
	if err != nil {
		if pollCtx.Err() != nil && ctx.Err() == nil {
			timeoutErr := &ProcessingTimeoutError{RecordingID: recordingID, Timeout: timeout}
			log.Error().Err(timeoutErr).Msg("Polling ceiling exceeded")
			return nil, timeoutErr
		}
		log.Error().Err(err).Msg("Polling ended with failure")
		return nil, err
	}

	log.Info().Dur("elapsed", time.Since(started)).Msg("Recording reached terminal state")
	return result, nil
}

// estimateProgress converts elapsed time into a progress percentage between
// the dispatch floor and just short of completion.
func estimateProgress(elapsed time.Duration, estimatedSeconds int) int {
	if estimatedSeconds <= 0 {
		return 50
	}
	fraction := elapsed.Seconds() / float64(estimatedSeconds)
	if fraction > 1 {
		fraction = 1
	}
	return 10 + int(fraction*85)
}
