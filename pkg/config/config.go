package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
)

// Config represents the application configuration
type Config struct {
	// Audio Processing Configuration
	Audio AudioConfig `yaml:"audio" mapstructure:"audio"`

	// Strategy Selection Configuration
	Strategy StrategyConfig `yaml:"strategy" mapstructure:"strategy"`

	// Transcription Service Configuration
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`

	// External Heavy Backend Configuration
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`

	// HTTP Server Configuration
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Logging Configuration
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// AudioConfig contains audio processing settings
type AudioConfig struct {
	// Chunking Configuration
	ChunkMinutes   int `yaml:"chunk_minutes" mapstructure:"chunk_minutes"`
	ChunkSeconds   int `yaml:"chunk_seconds" mapstructure:"chunk_seconds"`
	OverlapSeconds int `yaml:"overlap_seconds" mapstructure:"overlap_seconds"`

	// Processing Configuration
	TempDir        string `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxConcurrency int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// StrategyConfig contains strategy selection thresholds.
//
// The size and skip thresholds are documented heuristics carried over from
// production tuning; defaults must stay at these values for behavioral
// parity across deployments.
type StrategyConfig struct {
	// File-size tier boundaries in megabytes
	MediumThresholdMB int `yaml:"medium_threshold_mb" mapstructure:"medium_threshold_mb"`
	LargeThresholdMB  int `yaml:"large_threshold_mb" mapstructure:"large_threshold_mb"`
}

// TranscriptionConfig contains transcription service settings
type TranscriptionConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries int           `yaml:"retries" mapstructure:"retries"`
}

// BackendConfig contains external heavy-duty backend settings
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Completion polling ceiling, independent of estimated duration
	PollTimeout time.Duration `yaml:"poll_timeout" mapstructure:"poll_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`

	// StatusDB is the path to the BoltDB recording status database
	StatusDB string `yaml:"status_db" mapstructure:"status_db"`

	// BlobDir is the root directory backing local blob storage
	BlobDir string `yaml:"blob_dir" mapstructure:"blob_dir"`

	// Bucket is the blob bucket recordings are downloaded from
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			ChunkMinutes:   10,
			ChunkSeconds:   30,
			OverlapSeconds: 5,
			TempDir:        filepath.Join(os.TempDir(), "soundscribe"),
			MaxConcurrency: 3,
		},
		Strategy: StrategyConfig{
			MediumThresholdMB: 50,
			LargeThresholdMB:  200,
		},
		Transcription: TranscriptionConfig{
			Model:   "whisper-1",
			Timeout: 300 * time.Second,
			Retries: 3,
		},
		Backend: BackendConfig{
			Timeout:     30 * time.Second,
			PollTimeout: 5 * time.Minute,
		},
		Server: ServerConfig{
			Listen:   ":8080",
			StatusDB: "soundscribe.db",
			BlobDir:  "data",
			Bucket:   "recordings",
		},
		Logging: *logger.DefaultConfig(),
	}
}
