package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// writeTempInput writes data to a uniquely named file under dir, keeping the
// original extension so ffmpeg can detect the container. Unique names keep
// concurrent jobs from colliding on temp paths.
func writeTempInput(dir, prefix string, data []byte, filename string) (string, func(), error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".mp3"
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	cleanup := func() {
		_ = os.Remove(path)
	}
	return path, cleanup, nil
}

// tempOutputPath returns a unique output path under dir without creating it.
func tempOutputPath(dir, prefix, ext string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext))
}
