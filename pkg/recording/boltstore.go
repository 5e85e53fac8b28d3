package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketRecordings = "recordings"

// BoltStore implements StatusStore on BoltDB. Bolt serializes writes, which
// satisfies the concurrency contract for distinct recording IDs.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the recording status database.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open status database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketRecordings)); err != nil {
			return fmt.Errorf("failed to create recordings bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// UpdateStatus applies a status transition, merging optional fields over the
// existing state.
func (s *BoltStore) UpdateStatus(ctx context.Context, recordingID string, status Status, update *StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRecordings))
		if bucket == nil {
			return fmt.Errorf("recordings bucket not found")
		}

		state := &ProcessingState{ID: recordingID}
		if existing := bucket.Get([]byte(recordingID)); existing != nil {
			if err := json.Unmarshal(existing, state); err != nil {
				return fmt.Errorf("failed to unmarshal recording state: %w", err)
			}
		}

		state.Status = status
		if update != nil {
			if update.Progress != nil {
				state.ProgressPercent = clampProgress(*update.Progress)
			}
			if update.Transcript != "" {
				state.Transcript = update.Transcript
			}
			if update.Summary != "" {
				state.Summary = update.Summary
			}
			if update.ErrorMessage != "" {
				state.ErrorMessage = update.ErrorMessage
			}
		}

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal recording state: %w", err)
		}
		if err := bucket.Put([]byte(recordingID), data); err != nil {
			return fmt.Errorf("failed to store recording state: %w", err)
		}
		return nil
	})
}

// GetStatus retrieves the state of a recording.
func (s *BoltStore) GetStatus(ctx context.Context, recordingID string) (*ProcessingState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var state *ProcessingState
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRecordings))
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(recordingID))
		if data == nil {
			return nil
		}

		var decoded ProcessingState
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("failed to unmarshal recording state: %w", err)
		}
		state = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, &ErrNotFound{RecordingID: recordingID}
	}
	return state, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
