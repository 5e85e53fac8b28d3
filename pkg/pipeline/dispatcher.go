package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/audio"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/recording"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/strategy"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/transcription"
)

// Progress floor set when a recording enters processing.
const dispatchProgressFloor = 10

// PartialChunkFailure records a chunk whose transcription failed while the
// rest of the transcript was still produced.
type PartialChunkFailure struct {
	Index int
	Cause error
}

func (e *PartialChunkFailure) Error() string {
	return fmt.Sprintf("chunk %d transcription failed: %v", e.Index, e.Cause)
}

func (e *PartialChunkFailure) Unwrap() error {
	return e.Cause
}

// Job describes one recording to process.
type Job struct {
	RecordingID string
	Bucket      string
	Path        string
	Filename    string

	Strategy strategy.ProcessingStrategy

	// Batch chunking window for the parallel-chunks path.
	ChunkMinutes int

	// Streaming parameters; used only by DispatchStreaming.
	ChunkSeconds   int
	OverlapSeconds int

	Language string

	// OnProgress, when set, receives progress estimates as chunks
	// complete and while delegated jobs are polled.
	OnProgress ProgressFunc
}

// Outcome is the result of a dispatched recording.
type Outcome struct {
	RecordingID    string
	Transcript     string
	Summary        string
	ChunkCount     int
	ChunkFailures  []*PartialChunkFailure
	Strategy       strategy.Name
	ProcessingTime time.Duration
}

// Dispatcher routes recordings through one of three execution paths
// according to their strategy, reporting every state transition through the
// status store.
type Dispatcher struct {
	inspector   audio.Inspector
	compressor  audio.Compressor
	chunker     audio.Chunker
	transcriber transcription.Transcriber
	summarizer  transcription.Summarizer
	store       recording.StatusStore
	blobs       recording.BlobStore
	backend     recording.ExternalBackend
	watcher     *CompletionWatcher

	maxConcurrency int
	pollTimeout    time.Duration
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxConcurrency bounds parallel chunk transcription.
func WithMaxConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxConcurrency = n
		}
	}
}

// WithPollTimeout sets the completion-polling ceiling for delegated jobs.
func WithPollTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.pollTimeout = timeout
		}
	}
}

// WithSummarizer adds an optional transcript summarization capability.
func WithSummarizer(s transcription.Summarizer) DispatcherOption {
	return func(d *Dispatcher) {
		d.summarizer = s
	}
}

// NewDispatcher wires the pipeline components together.
func NewDispatcher(
	inspector audio.Inspector,
	compressor audio.Compressor,
	chunker audio.Chunker,
	transcriber transcription.Transcriber,
	store recording.StatusStore,
	blobs recording.BlobStore,
	backend recording.ExternalBackend,
	options ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		inspector:      inspector,
		compressor:     compressor,
		chunker:        chunker,
		transcriber:    transcriber,
		store:          store,
		blobs:          blobs,
		backend:        backend,
		watcher:        NewCompletionWatcher(store),
		maxConcurrency: DefaultConcurrency,
		pollTimeout:    DefaultPollTimeout,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Dispatch processes one recording end to end according to its strategy.
func (d *Dispatcher) Dispatch(ctx context.Context, job *Job) (*Outcome, error) {
	log := logger.WithComponent("dispatcher").WithField("recording_id", job.RecordingID)
	started := time.Now()

	log.Info().
		Str("strategy", string(job.Strategy.Name)).
		Int("estimated_seconds", job.Strategy.EstimatedSeconds).
		Msg("Dispatching recording")

	if err := d.markProcessing(ctx, job.RecordingID); err != nil {
		return nil, err
	}

	var outcome *Outcome
	var err error
	switch {
	case job.Strategy.UseExternalBackend:
		outcome, err = d.delegateExternal(ctx, job)
	case job.Strategy.UseParallelChunks:
		outcome, err = d.processParallelChunks(ctx, job)
	default:
		outcome, err = d.processDirect(ctx, job)
	}
	if err != nil {
		d.markFailed(ctx, job.RecordingID, err)
		log.Error().Err(err).Msg("Recording processing failed")
		return nil, err
	}

	outcome.RecordingID = job.RecordingID
	outcome.Strategy = job.Strategy.Name
	outcome.ProcessingTime = time.Since(started)

	if err := d.markCompleted(ctx, job.RecordingID, outcome); err != nil {
		return nil, err
	}

	log.Info().
		Int("chunks", outcome.ChunkCount).
		Int("chunk_failures", len(outcome.ChunkFailures)).
		Dur("processing_time", outcome.ProcessingTime).
		Msg("Recording processed")

	return outcome, nil
}

// DispatchStreaming processes a recording with overlapping chunks,
// reconciling the per-chunk transcripts into one continuous text.
func (d *Dispatcher) DispatchStreaming(ctx context.Context, job *Job) (*Outcome, error) {
	log := logger.WithComponent("dispatcher").WithField("recording_id", job.RecordingID)
	started := time.Now()

	log.Info().
		Int("chunk_seconds", job.ChunkSeconds).
		Int("overlap_seconds", job.OverlapSeconds).
		Msg("Dispatching streaming recording")

	if err := d.markProcessing(ctx, job.RecordingID); err != nil {
		return nil, err
	}

	outcome, err := d.processStreaming(ctx, job)
	if err != nil {
		d.markFailed(ctx, job.RecordingID, err)
		log.Error().Err(err).Msg("Streaming processing failed")
		return nil, err
	}

	outcome.RecordingID = job.RecordingID
	outcome.Strategy = job.Strategy.Name
	outcome.ProcessingTime = time.Since(started)

	if err := d.markCompleted(ctx, job.RecordingID, outcome); err != nil {
		return nil, err
	}

	log.Info().
		Int("chunks", outcome.ChunkCount).
		Dur("processing_time", outcome.ProcessingTime).
		Msg("Streaming recording processed")

	return outcome, nil
}

// delegateExternal forwards the job to the heavy-duty backend and observes
// completion through the status store.
func (d *Dispatcher) delegateExternal(ctx context.Context, job *Job) (*Outcome, error) {
	fileRef := job.Bucket + "/" + job.Path
	priorityHint := string(job.Strategy.CompressionLevel)

	submit, err := d.backend.Submit(ctx, job.RecordingID, fileRef, priorityHint)
	if err != nil {
		return nil, fmt.Errorf("backend submission failed: %w", err)
	}
	if !submit.Accepted {
		return nil, fmt.Errorf("backend rejected recording: %s", submit.Reason)
	}

	terminal, err := d.watcher.PollUntilTerminal(ctx, job.RecordingID, job.Strategy.EstimatedSeconds, d.pollTimeout, job.OnProgress)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Transcript: terminal.Transcript,
		Summary:    terminal.Summary,
	}, nil
}

// processDirect runs the single-shot path for small recordings.
func (d *Dispatcher) processDirect(ctx context.Context, job *Job) (*Outcome, error) {
	data, err := d.download(ctx, job)
	if err != nil {
		return nil, err
	}

	compressed, err := d.compressor.Compress(ctx, data, job.Filename, nil)
	if err != nil {
		return nil, err
	}

	result, err := d.transcriber.Transcribe(ctx, &transcription.Request{
		Audio:    compressed.Output,
		Filename: job.Filename,
		MimeType: "audio/mpeg",
		Language: job.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	outcome := &Outcome{
		Transcript: result.Text,
		ChunkCount: 1,
	}
	if err := d.summarize(ctx, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// processParallelChunks runs the bounded-parallel path for medium
// recordings: batch chunks, concurrent transcription, in-order join.
func (d *Dispatcher) processParallelChunks(ctx context.Context, job *Job) (*Outcome, error) {
	data, err := d.download(ctx, job)
	if err != nil {
		return nil, err
	}

	compressed, err := d.compressor.Compress(ctx, data, job.Filename, nil)
	if err != nil {
		return nil, err
	}

	chunkMinutes := job.ChunkMinutes
	if chunkMinutes <= 0 {
		chunkMinutes = 10
	}
	chunks, err := d.chunker.SplitBatch(ctx, compressed.Output, job.Filename, chunkMinutes)
	if err != nil {
		return nil, err
	}

	results, failures, err := d.transcribeChunks(ctx, job, chunks)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Transcript:    Reconcile(results, 0),
		ChunkCount:    len(chunks),
		ChunkFailures: failures,
	}
	if err := d.summarize(ctx, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// processStreaming runs overlapping chunks and overlap-aware reconciliation.
func (d *Dispatcher) processStreaming(ctx context.Context, job *Job) (*Outcome, error) {
	data, err := d.download(ctx, job)
	if err != nil {
		return nil, err
	}

	compressed, err := d.compressor.Compress(ctx, data, job.Filename, nil)
	if err != nil {
		return nil, err
	}

	chunks, err := d.chunker.SplitStreaming(ctx, compressed.Output, job.Filename, job.ChunkSeconds, job.OverlapSeconds)
	if err != nil {
		return nil, err
	}

	results, failures, err := d.transcribeChunks(ctx, job, chunks)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Transcript:    Reconcile(results, job.OverlapSeconds),
		ChunkCount:    len(chunks),
		ChunkFailures: failures,
	}
	if err := d.summarize(ctx, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// transcribeChunks sends chunks to the transcription capability with bounded
// concurrency. A failed chunk is recorded as a PartialChunkFailure and the
// rest of the transcript still assembles; only total failure aborts.
// Payloads are released as soon as each chunk is transcribed.
func (d *Dispatcher) transcribeChunks(ctx context.Context, job *Job, chunks []audio.Chunk) ([]ChunkResult, []*PartialChunkFailure, error) {
	log := logger.WithComponent("chunk-processor").WithField("recording_id", job.RecordingID)

	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("no chunks produced for recording %s", job.RecordingID)
	}

	results := make([]ChunkResult, len(chunks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	completed := 0
	semaphore := make(chan struct{}, d.maxConcurrency)

	for i := range chunks {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			chunk := &chunks[index]
			result := ChunkResult{
				Index:    chunk.Index,
				Start:    chunk.Start,
				Duration: chunk.Duration,
			}

			resp, err := d.transcriber.Transcribe(ctx, &transcription.Request{
				Audio:    chunk.Payload,
				Filename: fmt.Sprintf("%s_chunk_%03d.mp3", job.RecordingID, chunk.Index),
				MimeType: "audio/mpeg",
				Language: job.Language,
			})
			// Payload consumed; release it to bound memory on large files.
			chunk.Payload = nil

			if err != nil {
				log.Warn().Err(err).Int("chunk_index", chunk.Index).Msg("Chunk transcription failed")
				result.Err = &PartialChunkFailure{Index: chunk.Index, Cause: err}
			} else {
				result.Text = resp.Text
				result.Confidence = resp.Confidence
			}

			mu.Lock()
			results[index] = result
			completed++
			done := completed
			mu.Unlock()

			if job.OnProgress != nil {
				job.OnProgress(chunkProgress(done, len(chunks)))
			}
		}(i)
	}
	wg.Wait()

	var failures []*PartialChunkFailure
	for _, r := range results {
		if r.Err != nil {
			if pf, ok := r.Err.(*PartialChunkFailure); ok {
				failures = append(failures, pf)
			}
		}
	}

	if len(failures) == len(chunks) {
		return nil, nil, fmt.Errorf("all %d chunks failed transcription: %w", len(chunks), failures[0])
	}

	log.Info().Int("chunks", len(chunks)).Int("failures", len(failures)).Msg("Chunk transcription finished")
	return results, failures, nil
}

func (d *Dispatcher) summarize(ctx context.Context, outcome *Outcome) error {
	if d.summarizer == nil || outcome.Transcript == "" {
		return nil
	}
	summary, err := d.summarizer.Summarize(ctx, outcome.Transcript)
	if err != nil {
		// Summarization is best-effort; the transcript already exists.
		logger.WithComponent("dispatcher").Warn().Err(err).Msg("Summarization failed")
		return nil
	}
	outcome.Summary = summary
	return nil
}

func (d *Dispatcher) download(ctx context.Context, job *Job) ([]byte, error) {
	data, err := d.blobs.Download(ctx, job.Bucket, job.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to download recording: %w", err)
	}
	return data, nil
}

func (d *Dispatcher) markProcessing(ctx context.Context, recordingID string) error {
	progress := dispatchProgressFloor
	return d.store.UpdateStatus(ctx, recordingID, recording.StatusProcessing, &recording.StatusUpdate{
		Progress: &progress,
	})
}

func (d *Dispatcher) markCompleted(ctx context.Context, recordingID string, outcome *Outcome) error {
	progress := 100
	return d.store.UpdateStatus(ctx, recordingID, recording.StatusCompleted, &recording.StatusUpdate{
		Progress:   &progress,
		Transcript: outcome.Transcript,
		Summary:    outcome.Summary,
	})
}

func (d *Dispatcher) markFailed(ctx context.Context, recordingID string, cause error) {
	progress := 0
	if err := d.store.UpdateStatus(ctx, recordingID, recording.StatusFailed, &recording.StatusUpdate{
		Progress:     &progress,
		ErrorMessage: cause.Error(),
	}); err != nil {
		logger.WithComponent("dispatcher").Error().Err(err).Str("recording_id", recordingID).Msg("Failed to record failure state")
	}
}

// chunkProgress maps completed chunks onto the progress range between the
// dispatch floor and completion.
func chunkProgress(completed, total int) int {
	if total <= 0 {
		return dispatchProgressFloor
	}
	return dispatchProgressFloor + completed*85/total
}
