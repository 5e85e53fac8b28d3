package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
)

// minStreamingChunk is the shortest streaming tail chunk worth transcribing.
// Anything shorter produces degenerate near-empty transcription calls.
const minStreamingChunk = time.Second

// ChunkerImpl implements the Chunker interface
type ChunkerImpl struct {
	inspector Inspector
	tempDir   string
}

// NewChunker creates a new audio chunker
func NewChunker(inspector Inspector, tempDir string) *ChunkerImpl {
	return &ChunkerImpl{
		inspector: inspector,
		tempDir:   tempDir,
	}
}

// PlanBatchChunks computes non-overlapping chunk boundaries that tile
// [0, total) exactly. The final chunk may be shorter.
func PlanBatchChunks(total, chunkDuration time.Duration) []Span {
	if total <= 0 || chunkDuration <= 0 {
		return nil
	}

	var spans []Span
	for start := time.Duration(0); start < total; start += chunkDuration {
		length := chunkDuration
		if start+length > total {
			length = total - start
		}
		spans = append(spans, Span{
			Index:    len(spans),
			Start:    start,
			Duration: length,
		})
	}
	return spans
}

// PlanStreamingChunks computes overlapping chunk boundaries where
// consecutive chunks share exactly overlap of audio. Tail chunks shorter
// than one second are dropped.
func PlanStreamingChunks(total, chunkDuration, overlap time.Duration) ([]Span, error) {
	if overlap >= chunkDuration {
		return nil, &InvalidChunkConfigError{
			ChunkDuration:   chunkDuration,
			OverlapDuration: overlap,
		}
	}
	if total <= 0 {
		return nil, nil
	}

	step := chunkDuration - overlap

	var spans []Span
	for start := time.Duration(0); start < total; start += step {
		length := chunkDuration
		if start+length > total {
			length = total - start
		}
		if length < minStreamingChunk {
			break
		}
		spans = append(spans, Span{
			Index:    len(spans),
			Start:    start,
			Duration: length,
		})
	}
	return spans, nil
}

// SplitBatch tiles the recording into chunkMinutes-long chunks, each
// independently re-encoded as valid audio.
func (c *ChunkerImpl) SplitBatch(ctx context.Context, data []byte, filename string, chunkMinutes int) ([]Chunk, error) {
	chunkDuration := time.Duration(chunkMinutes) * time.Minute
	if chunkDuration <= 0 {
		return nil, &InvalidChunkConfigError{ChunkDuration: chunkDuration}
	}

	profile, err := c.inspector.Inspect(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect audio: %w", err)
	}

	spans := PlanBatchChunks(profile.Duration, chunkDuration)
	return c.extract(ctx, data, filename, spans)
}

// SplitStreaming produces overlapping chunks for streaming transcription.
func (c *ChunkerImpl) SplitStreaming(ctx context.Context, data []byte, filename string, chunkSeconds, overlapSeconds int) ([]Chunk, error) {
	chunkDuration := time.Duration(chunkSeconds) * time.Second
	overlap := time.Duration(overlapSeconds) * time.Second

	profile, err := c.inspector.Inspect(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect audio: %w", err)
	}

	spans, err := PlanStreamingChunks(profile.Duration, chunkDuration, overlap)
	if err != nil {
		return nil, err
	}
	return c.extract(ctx, data, filename, spans)
}

// extract materializes each planned span as an independently re-encoded
// chunk. All temp files are removed before returning on every path.
func (c *ChunkerImpl) extract(ctx context.Context, data []byte, filename string, spans []Span) ([]Chunk, error) {
	log := logger.WithComponent("audio-chunker").WithField("file", filepath.Base(filename))

	if len(spans) == 0 {
		return nil, nil
	}

	inPath, cleanup, err := writeTempInput(c.tempDir, "chunk_in", data, filename)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	log.Info().Int("chunk_count", len(spans)).Msg("Extracting audio chunks")

	chunks := make([]Chunk, 0, len(spans))
	for _, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payload, err := c.extractSpan(inPath, span)
		if err != nil {
			log.Error().Err(err).Int("chunk_index", span.Index).Msg("Chunk extraction failed")
			return nil, fmt.Errorf("failed to extract chunk %d: %w", span.Index, err)
		}

		chunks = append(chunks, Chunk{
			Index:    span.Index,
			Start:    span.Start,
			Duration: span.Duration,
			Payload:  payload,
		})

		log.Debug().
			Int("chunk_index", span.Index).
			Dur("start", span.Start).
			Dur("duration", span.Duration).
			Int("payload_bytes", len(payload)).
			Msg("Chunk extracted")
	}

	return chunks, nil
}

// extractSpan re-encodes one time window into a standalone mp3 payload.
func (c *ChunkerImpl) extractSpan(inPath string, span Span) ([]byte, error) {
	outPath := tempOutputPath(c.tempDir, "chunk_out", ".mp3")
	defer func() {
		_ = os.Remove(outPath)
	}()

	err := ffmpeg.Input(inPath, ffmpeg.KwArgs{
		"ss": formatDuration(span.Start),
		"t":  formatDuration(span.Duration),
	}).Output(outPath, ffmpeg.KwArgs{
		"acodec": "libmp3lame",
		"ab":     fmt.Sprintf("%dk", defaultTargetBitrate),
		"ar":     fmt.Sprintf("%d", defaultTargetSampleRate),
		"ac":     fmt.Sprintf("%d", defaultTargetChannels),
		"vn":     "",
	}).OverWriteOutput().ErrorToStdOut().Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg chunk extraction failed: %w", err)
	}

	payload, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk output: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("chunk output is empty")
	}

	return payload, nil
}
