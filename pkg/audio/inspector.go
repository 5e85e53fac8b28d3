package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
)

// supportedExts lists the containers accepted at upload time.
var supportedExts = []string{".mp3", ".wav", ".m4a", ".mp4", ".mov", ".avi", ".flac", ".webm"}

// InspectorImpl implements the Inspector interface using ffprobe
type InspectorImpl struct {
	tempDir string
}

// NewInspector creates a new audio inspector
func NewInspector(tempDir string) *InspectorImpl {
	return &InspectorImpl{tempDir: tempDir}
}

// IsSupported checks if the file extension is an accepted container
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range supportedExts {
		if ext == supported {
			return true
		}
	}
	return false
}

// Inspect derives a Profile from raw bytes via a scoped temporary file.
// The temp file is removed on every exit path, including probe failure.
func (p *InspectorImpl) Inspect(ctx context.Context, data []byte, filename string) (*Profile, error) {
	log := logger.WithComponent("audio-inspector").WithField("file", filepath.Base(filename))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &UnsupportedFormatError{Filename: filename}
	}

	path, cleanup, err := writeTempInput(p.tempDir, "inspect", data, filename)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	log.Debug().Int("size_bytes", len(data)).Msg("Probing audio")
	probeData, err := ffmpeg.Probe(path)
	if err != nil {
		log.Error().Err(err).Msg("Probe failed")
		return nil, &UnsupportedFormatError{Filename: filename, Cause: err}
	}

	profile, err := parseProbe(probeData)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse probe output")
		return nil, &UnsupportedFormatError{Filename: filename, Cause: err}
	}

	log.Info().
		Dur("duration", profile.Duration).
		Float64("bitrate_kbps", profile.BitrateKbps).
		Int("sample_rate", profile.SampleRate).
		Int("channels", profile.Channels).
		Str("codec", profile.Codec).
		Str("container", profile.Container).
		Msg("Audio profile extracted")

	return profile, nil
}

// parseProbe converts ffprobe JSON output into a Profile. It fails when the
// streams carry no audio.
func parseProbe(probeData string) (*Profile, error) {
	var probe struct {
		Format struct {
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
			FormatName string `json:"format_name"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
	}

	if err := json.Unmarshal([]byte(probeData), &probe); err != nil {
		return nil, fmt.Errorf("failed to parse probe JSON: %w", err)
	}

	profile := &Profile{
		Container: probe.Format.FormatName,
	}

	if probe.Format.Duration != "" {
		if seconds, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			profile.Duration = secondsToDuration(seconds)
		}
	}

	if probe.Format.BitRate != "" {
		if bitRate, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
			profile.BitrateKbps = float64(bitRate) / 1000.0
		}
	}

	found := false
	for _, stream := range probe.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		found = true
		profile.Codec = stream.CodecName
		if stream.SampleRate != "" {
			if sampleRate, err := strconv.Atoi(stream.SampleRate); err == nil {
				profile.SampleRate = sampleRate
			}
		}
		profile.Channels = stream.Channels
		break
	}

	if !found {
		return nil, fmt.Errorf("no audio stream found")
	}

	return profile, nil
}
