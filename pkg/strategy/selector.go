// Package strategy maps recording characteristics to a processing strategy.
package strategy

import "math"

// Name identifies a processing tier.
type Name string

const (
	SmallDirect          Name = "small_direct"
	MediumParallelChunks Name = "medium_parallel_chunks"
	LargeExternalBackend Name = "large_external_backend"
)

// CompressionLevel is the compression effort hint carried by a strategy.
type CompressionLevel string

const (
	CompressionLow    CompressionLevel = "low"
	CompressionMedium CompressionLevel = "medium"
	CompressionHigh   CompressionLevel = "high"
)

// Size tier boundaries and per-megabyte time estimates. These are tuned
// production heuristics; changing them changes which recordings get
// delegated to the heavy backend.
const (
	DefaultMediumThresholdMB = 50
	DefaultLargeThresholdMB  = 200

	smallSecondsPerMB  = 0.1
	mediumSecondsPerMB = 0.2
	largeSecondsPerMB  = 0.3
)

// ProcessingStrategy describes how a recording will be processed. It is a
// pure function of file size with no hidden state.
type ProcessingStrategy struct {
	Name               Name
	UseExternalBackend bool
	UseParallelChunks  bool
	CompressionLevel   CompressionLevel
	EstimatedSeconds   int
}

// Selector selects strategies using configurable tier boundaries.
type Selector struct {
	mediumThresholdMB int
	largeThresholdMB  int
}

// NewSelector creates a selector with the default tier boundaries.
func NewSelector() *Selector {
	return &Selector{
		mediumThresholdMB: DefaultMediumThresholdMB,
		largeThresholdMB:  DefaultLargeThresholdMB,
	}
}

// NewSelectorWithThresholds creates a selector with custom boundaries.
// Non-positive or inverted values fall back to the defaults.
func NewSelectorWithThresholds(mediumMB, largeMB int) *Selector {
	if mediumMB <= 0 || largeMB <= mediumMB {
		return NewSelector()
	}
	return &Selector{
		mediumThresholdMB: mediumMB,
		largeThresholdMB:  largeMB,
	}
}

// Select maps a file size to a processing strategy.
func (s *Selector) Select(fileSizeBytes int64) ProcessingStrategy {
	sizeMB := float64(fileSizeBytes) / (1024 * 1024)

	switch {
	case sizeMB > float64(s.largeThresholdMB):
		return ProcessingStrategy{
			Name:               LargeExternalBackend,
			UseExternalBackend: true,
			CompressionLevel:   CompressionHigh,
			EstimatedSeconds:   estimate(sizeMB, largeSecondsPerMB),
		}
	case sizeMB > float64(s.mediumThresholdMB):
		return ProcessingStrategy{
			Name:              MediumParallelChunks,
			UseParallelChunks: true,
			CompressionLevel:  CompressionMedium,
			EstimatedSeconds:  estimate(sizeMB, mediumSecondsPerMB),
		}
	default:
		return ProcessingStrategy{
			Name:             SmallDirect,
			CompressionLevel: CompressionLow,
			EstimatedSeconds: estimate(sizeMB, smallSecondsPerMB),
		}
	}
}

func estimate(sizeMB, secondsPerMB float64) int {
	return int(math.Ceil(sizeMB * secondsPerMB))
}
