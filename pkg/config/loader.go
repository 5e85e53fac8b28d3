package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Loader handles configuration loading and management
type Loader struct {
	configPath string
	viper      *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	v := viper.New()

	v.SetEnvPrefix("SOUNDSCRIBE")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/soundscribe")
		v.SetConfigName(".soundscribe")
		v.SetConfigType("yaml")
	}

	return &Loader{
		configPath: configPath,
		viper:      v,
	}
}

// Load reads and returns the configuration
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	// Config file not found is not an error - defaults and env vars apply
	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// GetConfigFile returns the path to the config file being used
func (l *Loader) GetConfigFile() string {
	return l.viper.ConfigFileUsed()
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.viper.SetDefault("audio.chunk_minutes", defaults.Audio.ChunkMinutes)
	l.viper.SetDefault("audio.chunk_seconds", defaults.Audio.ChunkSeconds)
	l.viper.SetDefault("audio.overlap_seconds", defaults.Audio.OverlapSeconds)
	l.viper.SetDefault("audio.temp_dir", defaults.Audio.TempDir)
	l.viper.SetDefault("audio.max_concurrency", defaults.Audio.MaxConcurrency)

	l.viper.SetDefault("strategy.medium_threshold_mb", defaults.Strategy.MediumThresholdMB)
	l.viper.SetDefault("strategy.large_threshold_mb", defaults.Strategy.LargeThresholdMB)

	l.viper.SetDefault("transcription.model", defaults.Transcription.Model)
	l.viper.SetDefault("transcription.timeout", defaults.Transcription.Timeout)
	l.viper.SetDefault("transcription.retries", defaults.Transcription.Retries)

	l.viper.SetDefault("backend.timeout", defaults.Backend.Timeout)
	l.viper.SetDefault("backend.poll_timeout", defaults.Backend.PollTimeout)

	l.viper.SetDefault("server.listen", defaults.Server.Listen)
	l.viper.SetDefault("server.status_db", defaults.Server.StatusDB)
	l.viper.SetDefault("server.blob_dir", defaults.Server.BlobDir)
	l.viper.SetDefault("server.bucket", defaults.Server.Bucket)

	l.viper.SetDefault("logging.level", "info")
	l.viper.SetDefault("logging.format", "console")
	l.viper.SetDefault("logging.output", "stdout")
	l.viper.SetDefault("logging.timestamp", true)
}

// validateConfig validates the loaded configuration
func (l *Loader) validateConfig(cfg *Config) error {
	if cfg.Audio.ChunkMinutes <= 0 {
		return fmt.Errorf("chunk_minutes must be positive")
	}

	if cfg.Audio.ChunkSeconds <= 0 {
		return fmt.Errorf("chunk_seconds must be positive")
	}

	if cfg.Audio.OverlapSeconds < 0 {
		return fmt.Errorf("overlap_seconds cannot be negative")
	}

	if cfg.Audio.OverlapSeconds >= cfg.Audio.ChunkSeconds {
		return fmt.Errorf("overlap_seconds must be smaller than chunk_seconds")
	}

	if cfg.Audio.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive")
	}

	if cfg.Strategy.MediumThresholdMB <= 0 || cfg.Strategy.LargeThresholdMB <= cfg.Strategy.MediumThresholdMB {
		return fmt.Errorf("strategy thresholds must satisfy 0 < medium < large")
	}

	return nil
}
