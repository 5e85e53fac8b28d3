package recording

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LocalBlobStore implements BlobStore on the local filesystem. A bucket is a
// directory under the configured root.
type LocalBlobStore struct {
	root string
}

// NewLocalBlobStore creates a blob store rooted at dir.
func NewLocalBlobStore(dir string) *LocalBlobStore {
	return &LocalBlobStore{root: dir}
}

// Download reads the blob at bucket/path.
func (s *LocalBlobStore) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Reject path escapes out of the bucket directory.
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, &StorageError{Bucket: bucket, Path: path, Cause: os.ErrPermission}
	}

	data, err := os.ReadFile(filepath.Join(s.root, bucket, clean))
	if err != nil {
		return nil, &StorageError{Bucket: bucket, Path: path, Cause: err}
	}
	return data, nil
}

// Upload writes a blob; used by ingest glue and tests.
func (s *LocalBlobStore) Upload(ctx context.Context, bucket, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full := filepath.Join(s.root, bucket, filepath.Clean(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return &StorageError{Bucket: bucket, Path: path, Cause: err}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return &StorageError{Bucket: bucket, Path: path, Cause: err}
	}
	return nil
}
