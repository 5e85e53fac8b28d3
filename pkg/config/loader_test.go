package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))

	// A missing explicit config file is an error; with no explicit file,
	// defaults apply.
	if _, err := loader.Load(); err == nil {
		t.Fatal("Load() expected error for missing explicit config file")
	}

	cfg := DefaultConfig()
	if cfg.Audio.ChunkMinutes != 10 {
		t.Errorf("chunk_minutes = %d, want 10", cfg.Audio.ChunkMinutes)
	}
	if cfg.Audio.MaxConcurrency != 3 {
		t.Errorf("max_concurrency = %d, want 3", cfg.Audio.MaxConcurrency)
	}
	if cfg.Strategy.MediumThresholdMB != 50 || cfg.Strategy.LargeThresholdMB != 200 {
		t.Errorf("strategy thresholds = %d/%d, want 50/200",
			cfg.Strategy.MediumThresholdMB, cfg.Strategy.LargeThresholdMB)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
audio:
  chunk_minutes: 15
  chunk_seconds: 20
  overlap_seconds: 4
server:
  listen: ":9090"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Audio.ChunkMinutes != 15 {
		t.Errorf("chunk_minutes = %d, want 15", cfg.Audio.ChunkMinutes)
	}
	if cfg.Audio.OverlapSeconds != 4 {
		t.Errorf("overlap_seconds = %d, want 4", cfg.Audio.OverlapSeconds)
	}
	if cfg.Server.Listen != ":9090" {
		t.Errorf("listen = %q, want :9090", cfg.Server.Listen)
	}
	// Unset keys keep their defaults.
	if cfg.Strategy.MediumThresholdMB != 50 {
		t.Errorf("medium_threshold_mb = %d, want default 50", cfg.Strategy.MediumThresholdMB)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "overlap not below chunk",
			content: `
audio:
  chunk_seconds: 10
  overlap_seconds: 10
`,
		},
		{
			name: "non-positive chunk minutes",
			content: `
audio:
  chunk_minutes: 0
`,
		},
		{
			name: "inverted strategy thresholds",
			content: `
strategy:
  medium_threshold_mb: 300
  large_threshold_mb: 200
`,
		},
		{
			name: "non-positive concurrency",
			content: `
audio:
  max_concurrency: -1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}
			if _, err := NewLoader(path).Load(); err == nil {
				t.Fatal("Load() expected validation error")
			}
		})
	}
}
