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

// Transcription-optimal encoding profile. Speech above 8 kHz carries almost
// no recognition signal at a 16 kHz sample rate, so the band-pass edges sit
// at 80 Hz and the Nyquist limit.
const (
	defaultTargetSampleRate = 16000
	defaultTargetBitrate    = 128
	defaultTargetChannels   = 1
	defaultHighpassHz       = 80
	defaultLowpassHz        = 8000
	defaultGain             = 1.5
)

// Skip thresholds: audio already in this envelope is not worth re-encoding.
const (
	skipMinBitrateKbps = 64
	skipMaxBitrateKbps = 192
	skipMaxSampleRate  = 16000
	skipMaxSizeMB      = 10
)

// CompressorImpl implements the Compressor interface using ffmpeg
type CompressorImpl struct {
	inspector Inspector
	tempDir   string
}

// NewCompressor creates a new audio compressor
func NewCompressor(inspector Inspector, tempDir string) *CompressorImpl {
	return &CompressorImpl{
		inspector: inspector,
		tempDir:   tempDir,
	}
}

// IsAlreadyOptimized reports whether audio with the given profile and size
// is already suitable for transcription without re-encoding.
func IsAlreadyOptimized(profile *Profile, sizeBytes int) bool {
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	return profile.Codec == "mp3" &&
		profile.BitrateKbps >= skipMinBitrateKbps &&
		profile.BitrateKbps <= skipMaxBitrateKbps &&
		profile.SampleRate <= skipMaxSampleRate &&
		sizeMB < skipMaxSizeMB
}

// Compress re-encodes data to the transcription-optimal profile unless the
// input is already within tolerance. Encoder failures never block downstream
// processing; the result degrades to the original bytes with EncodeErr set.
func (c *CompressorImpl) Compress(ctx context.Context, data []byte, filename string, opts *CompressOptions) (*CompressionResult, error) {
	log := logger.WithComponent("audio-compressor").WithField("file", filepath.Base(filename))
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile, err := c.inspector.Inspect(ctx, data, filename)
	if err != nil {
		// Inspection failure degrades the same way an encoder failure does.
		log.Warn().Err(err).Msg("Inspection failed, using original audio")
		return degradedResult(data, started, err), nil
	}

	if IsAlreadyOptimized(profile, len(data)) {
		log.Info().
			Float64("bitrate_kbps", profile.BitrateKbps).
			Int("sample_rate", profile.SampleRate).
			Msg("Audio already optimized, skipping compression")
		return &CompressionResult{
			Output:           data,
			WasCompressed:    false,
			OriginalSize:     len(data),
			CompressedSize:   len(data),
			CompressionRatio: 1.0,
			ProcessingTime:   time.Since(started),
		}, nil
	}

	output, err := c.encode(data, filename, opts)
	if err != nil {
		encodeErr := &EncodeFailureError{Cause: err}
		log.Warn().Err(encodeErr).Msg("Compression failed, using original audio")
		return degradedResult(data, started, encodeErr), nil
	}

	result := &CompressionResult{
		Output:           output,
		WasCompressed:    true,
		OriginalSize:     len(data),
		CompressedSize:   len(output),
		CompressionRatio: float64(len(output)) / float64(len(data)),
		ProcessingTime:   time.Since(started),
	}

	log.Info().
		Int("original_size", result.OriginalSize).
		Int("compressed_size", result.CompressedSize).
		Float64("ratio", result.CompressionRatio).
		Dur("processing_time", result.ProcessingTime).
		Msg("Audio compressed")

	return result, nil
}

// encode performs the ffmpeg re-encode through scoped temp files, removed on
// every exit path.
func (c *CompressorImpl) encode(data []byte, filename string, opts *CompressOptions) ([]byte, error) {
	inPath, cleanupIn, err := writeTempInput(c.tempDir, "compress_in", data, filename)
	if err != nil {
		return nil, err
	}
	defer cleanupIn()

	outPath := tempOutputPath(c.tempDir, "compress_out", ".mp3")
	defer func() {
		_ = os.Remove(outPath)
	}()

	sampleRate := defaultTargetSampleRate
	bitrate := defaultTargetBitrate
	channels := defaultTargetChannels
	highpass := defaultHighpassHz
	lowpass := defaultLowpassHz
	gain := defaultGain
	if opts != nil {
		if opts.SampleRate > 0 {
			sampleRate = opts.SampleRate
		}
		if opts.BitrateKbps > 0 {
			bitrate = opts.BitrateKbps
		}
		if opts.Channels > 0 {
			channels = opts.Channels
		}
		if opts.HighpassHz > 0 {
			highpass = opts.HighpassHz
		}
		if opts.LowpassHz > 0 {
			lowpass = opts.LowpassHz
		}
		if opts.Gain > 0 {
			gain = opts.Gain
		}
	}

	filters := fmt.Sprintf("highpass=f=%d,lowpass=f=%d,volume=%.1f", highpass, lowpass, gain)

	err = ffmpeg.Input(inPath).
		Output(outPath, ffmpeg.KwArgs{
			"acodec": "libmp3lame",
			"ab":     fmt.Sprintf("%dk", bitrate),
			"ar":     fmt.Sprintf("%d", sampleRate),
			"ac":     fmt.Sprintf("%d", channels),
			"af":     filters,
			"vn":     "", // drop any video stream
		}).
		OverWriteOutput().
		ErrorToStdOut().
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg encoding failed: %w", err)
	}

	output, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded output: %w", err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("encoder produced empty output")
	}

	return output, nil
}

// degradedResult packages the original bytes after a recoverable failure.
func degradedResult(data []byte, started time.Time, cause error) *CompressionResult {
	return &CompressionResult{
		Output:           data,
		WasCompressed:    false,
		OriginalSize:     len(data),
		CompressedSize:   len(data),
		CompressionRatio: 1.0,
		ProcessingTime:   time.Since(started),
		EncodeErr:        cause.Error(),
	}
}
