package pipeline

import (
	"context"
	"sync"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/audio"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
)

// DefaultConcurrency bounds parallel work across the pipeline. Encoding and
// transcription are I/O-bound; more workers mostly saturate the host's
// external-process and network capacity.
const DefaultConcurrency = 3

// BatchFile is one input to a batch run.
type BatchFile struct {
	Name string
	Data []byte
}

// PerFileResult is the outcome for one file. Err is set when that file's
// pipeline failed; the rest of the batch is unaffected.
type PerFileResult struct {
	Index       int
	Name        string
	Profile     *audio.Profile
	Compression *audio.CompressionResult
	Err         error
}

// BatchRunner inspects and compresses files in bounded-concurrency groups.
type BatchRunner struct {
	inspector  audio.Inspector
	compressor audio.Compressor
}

// NewBatchRunner creates a batch runner over the given audio components.
func NewBatchRunner(inspector audio.Inspector, compressor audio.Compressor) *BatchRunner {
	return &BatchRunner{
		inspector:  inspector,
		compressor: compressor,
	}
}

// Run processes files in fixed-size groups of limit, each group fully in
// parallel and groups sequential. Output order matches input order, and a
// failure in one file never tears down the batch. onProgress, when set,
// receives the completed count after each file.
func (b *BatchRunner) Run(ctx context.Context, files []BatchFile, opts *audio.CompressOptions, limit int, onProgress func(completed, total int)) []PerFileResult {
	log := logger.WithComponent("batch-runner")

	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]PerFileResult, len(files))
	completed := 0
	var mu sync.Mutex

	log.Info().Int("files", len(files)).Int("concurrency", limit).Msg("Starting batch run")

	for groupStart := 0; groupStart < len(files); groupStart += limit {
		groupEnd := groupStart + limit
		if groupEnd > len(files) {
			groupEnd = len(files)
		}

		var wg sync.WaitGroup
		for i := groupStart; i < groupEnd; i++ {
			wg.Add(1)
			go func(index int, file BatchFile) {
				defer wg.Done()

				results[index] = b.processFile(ctx, index, file, opts)

				mu.Lock()
				completed++
				done := completed
				mu.Unlock()
				if onProgress != nil {
					onProgress(done, len(files))
				}
			}(i, files[i])
		}
		wg.Wait()
	}

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
		}
	}
	log.Info().Int("files", len(files)).Int("failures", failures).Msg("Batch run finished")

	return results
}

func (b *BatchRunner) processFile(ctx context.Context, index int, file BatchFile, opts *audio.CompressOptions) PerFileResult {
	log := logger.WithComponent("batch-runner").WithField("file", file.Name)

	result := PerFileResult{Index: index, Name: file.Name}

	profile, err := b.inspector.Inspect(ctx, file.Data, file.Name)
	if err != nil {
		log.Error().Err(err).Msg("Inspection failed")
		result.Err = err
		return result
	}
	result.Profile = profile

	compression, err := b.compressor.Compress(ctx, file.Data, file.Name, opts)
	if err != nil {
		log.Error().Err(err).Msg("Compression failed")
		result.Err = err
		return result
	}
	result.Compression = compression

	return result
}
