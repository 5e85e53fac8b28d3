package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func batchInput(n int) []BatchFile {
	files := make([]BatchFile, n)
	for i := range files {
		files[i] = BatchFile{
			Name: fmt.Sprintf("call_%02d.mp3", i),
			Data: []byte("fake audio"),
		}
	}
	return files
}

func TestBatchRunIsolatesFailures(t *testing.T) {
	runner := NewBatchRunner(&fakeInspector{failFor: "call_02"}, &fakeCompressor{})

	results := runner.Run(context.Background(), batchInput(5), nil, 2, nil)
	if len(results) != 5 {
		t.Fatalf("results = %d, want 5", len(results))
	}

	failures := 0
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d, output order must match input order", i, r.Index)
		}
		if r.Name != fmt.Sprintf("call_%02d.mp3", i) {
			t.Errorf("result %d name = %q", i, r.Name)
		}
		if r.Err != nil {
			failures++
			if i != 2 {
				t.Errorf("unexpected failure at index %d: %v", i, r.Err)
			}
			continue
		}
		if r.Profile == nil {
			t.Errorf("result %d missing profile", i)
		}
		if r.Compression == nil {
			t.Errorf("result %d missing compression result", i)
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want exactly 1", failures)
	}
}

func TestBatchRunProgressReporting(t *testing.T) {
	runner := NewBatchRunner(&fakeInspector{}, &fakeCompressor{})

	var mu sync.Mutex
	var seen []int
	results := runner.Run(context.Background(), batchInput(7), nil, 3, func(completed, total int) {
		if total != 7 {
			t.Errorf("total = %d, want 7", total)
		}
		mu.Lock()
		seen = append(seen, completed)
		mu.Unlock()
	})

	if len(results) != 7 {
		t.Fatalf("results = %d, want 7", len(results))
	}
	if len(seen) != 7 {
		t.Fatalf("progress callbacks = %d, want 7", len(seen))
	}
	// Counts are monotonically increasing and end at the total.
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("progress not increasing: %v", seen)
			break
		}
	}
	if seen[len(seen)-1] != 7 {
		t.Errorf("final progress = %d, want 7", seen[len(seen)-1])
	}
}

func TestBatchRunEmptyInput(t *testing.T) {
	runner := NewBatchRunner(&fakeInspector{}, &fakeCompressor{})
	if results := runner.Run(context.Background(), nil, nil, 3, nil); len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestBatchRunDefaultsConcurrency(t *testing.T) {
	runner := NewBatchRunner(&fakeInspector{}, &fakeCompressor{})
	results := runner.Run(context.Background(), batchInput(4), nil, 0, nil)
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("result %d failed: %v", i, r.Err)
		}
	}
}
