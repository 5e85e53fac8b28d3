package audio

import (
	"context"
	"time"
)

// Profile contains the decoded characteristics of an uploaded recording.
// It is derived once per invocation and never cached across recordings.
type Profile struct {
	Duration    time.Duration
	BitrateKbps float64
	SampleRate  int
	Channels    int
	Codec       string
	Container   string
}

// CompressionResult describes the outcome of a compression pass.
//
// When WasCompressed is false, Output is the original input byte-for-byte:
// compression is either skipped (already optimized) or failed and degraded
// to the original audio, never silently different.
type CompressionResult struct {
	Output           []byte
	WasCompressed    bool
	OriginalSize     int
	CompressedSize   int
	CompressionRatio float64
	ProcessingTime   time.Duration

	// EncodeErr holds the encoder failure message when compression degraded
	// to the original bytes. Empty on success or deliberate skip.
	EncodeErr string
}

// Chunk is a time-bounded slice of a recording, independently valid audio.
// Payloads are consumed exactly once by transcription and must not be
// retained afterwards to bound memory on large files.
type Chunk struct {
	Index    int
	Start    time.Duration
	Duration time.Duration
	Payload  []byte
}

// Span is a planned chunk boundary before any audio is extracted.
type Span struct {
	Index    int
	Start    time.Duration
	Duration time.Duration
}

// CompressOptions overrides the transcription-optimal encoding profile.
// Zero values fall back to the fixed defaults.
type CompressOptions struct {
	SampleRate  int     // target sample rate, default 16000 Hz
	BitrateKbps int     // target bitrate, default 128 kbps
	Channels    int     // target channel count, default 1 (mono)
	HighpassHz  int     // band-pass lower edge, default 80 Hz
	LowpassHz   int     // band-pass upper edge, default 8000 Hz
	Gain        float64 // fixed gain boost, default 1.5
}

// Inspector probes raw audio bytes for their characteristics
type Inspector interface {
	// Inspect derives a Profile from raw bytes. The filename is used only
	// for container detection. Fails with *UnsupportedFormatError when no
	// decodable audio stream is found.
	Inspect(ctx context.Context, data []byte, filename string) (*Profile, error)
}

// Compressor re-encodes audio to a transcription-optimal profile
type Compressor interface {
	// Compress re-encodes data unless it is already within tolerance.
	// Encoder failures degrade to the original bytes rather than erroring.
	Compress(ctx context.Context, data []byte, filename string, opts *CompressOptions) (*CompressionResult, error)
}

// Chunker splits a recording into fixed-duration segments
type Chunker interface {
	// SplitBatch tiles the recording into non-overlapping chunks of
	// chunkMinutes each; the final chunk may be shorter.
	SplitBatch(ctx context.Context, data []byte, filename string, chunkMinutes int) ([]Chunk, error)

	// SplitStreaming produces overlapping chunks where consecutive chunks
	// share overlapSeconds of audio. Tail chunks shorter than one second
	// are dropped.
	SplitStreaming(ctx context.Context, data []byte, filename string, chunkSeconds, overlapSeconds int) ([]Chunk, error)
}
