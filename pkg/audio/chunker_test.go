package audio

import (
	"errors"
	"testing"
	"time"
)

func TestPlanBatchChunks(t *testing.T) {
	tests := []struct {
		name          string
		total         time.Duration
		chunkDuration time.Duration
		wantChunks    int
		wantLastLen   time.Duration
	}{
		{
			name:          "single chunk - shorter than chunk duration",
			total:         7 * time.Minute,
			chunkDuration: 10 * time.Minute,
			wantChunks:    1,
			wantLastLen:   7 * time.Minute,
		},
		{
			name:          "exact tiling",
			total:         30 * time.Minute,
			chunkDuration: 10 * time.Minute,
			wantChunks:    3,
			wantLastLen:   10 * time.Minute,
		},
		{
			name:          "short final chunk",
			total:         25 * time.Minute,
			chunkDuration: 10 * time.Minute,
			wantChunks:    3,
			wantLastLen:   5 * time.Minute,
		},
		{
			name:          "two hour meeting",
			total:         2 * time.Hour,
			chunkDuration: 10 * time.Minute,
			wantChunks:    12,
			wantLastLen:   10 * time.Minute,
		},
		{
			name:          "zero duration",
			total:         0,
			chunkDuration: 10 * time.Minute,
			wantChunks:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := PlanBatchChunks(tt.total, tt.chunkDuration)

			if len(spans) != tt.wantChunks {
				t.Fatalf("PlanBatchChunks() chunk count = %v, want %v", len(spans), tt.wantChunks)
			}
			if len(spans) == 0 {
				return
			}

			// Chunks must tile [0, total) exactly: contiguous indices,
			// each chunk starting where the previous one ended.
			var covered time.Duration
			for i, span := range spans {
				if span.Index != i {
					t.Errorf("chunk %d has index %d, want %d", i, span.Index, i)
				}
				if span.Start != covered {
					t.Errorf("chunk %d starts at %v, want %v (gap or overlap)", i, span.Start, covered)
				}
				covered += span.Duration
			}
			if covered != tt.total {
				t.Errorf("chunks cover %v, want %v", covered, tt.total)
			}

			last := spans[len(spans)-1]
			if last.Duration != tt.wantLastLen {
				t.Errorf("last chunk duration = %v, want %v", last.Duration, tt.wantLastLen)
			}
		})
	}
}

func TestPlanStreamingChunks(t *testing.T) {
	tests := []struct {
		name          string
		total         time.Duration
		chunkDuration time.Duration
		overlap       time.Duration
		wantChunks    int
		wantErr       bool
	}{
		{
			name:          "normal overlap",
			total:         100 * time.Second,
			chunkDuration: 30 * time.Second,
			overlap:       5 * time.Second,
			wantChunks:    4,
		},
		{
			name:          "no overlap",
			total:         90 * time.Second,
			chunkDuration: 30 * time.Second,
			overlap:       0,
			wantChunks:    3,
		},
		{
			name:          "overlap equals chunk duration",
			total:         100 * time.Second,
			chunkDuration: 30 * time.Second,
			overlap:       30 * time.Second,
			wantErr:       true,
		},
		{
			name:          "overlap exceeds chunk duration",
			total:         100 * time.Second,
			chunkDuration: 30 * time.Second,
			overlap:       45 * time.Second,
			wantErr:       true,
		},
		{
			name:          "sub-second tail dropped",
			total:         50*time.Second + 500*time.Millisecond,
			chunkDuration: 30 * time.Second,
			overlap:       5 * time.Second,
			wantChunks:    2, // tail at 50s would be 0.5s long
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := PlanStreamingChunks(tt.total, tt.chunkDuration, tt.overlap)

			if tt.wantErr {
				var cfgErr *InvalidChunkConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("PlanStreamingChunks() error = %v, want *InvalidChunkConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PlanStreamingChunks() unexpected error: %v", err)
			}
			if len(spans) != tt.wantChunks {
				t.Fatalf("PlanStreamingChunks() chunk count = %v, want %v", len(spans), tt.wantChunks)
			}

			// Consecutive chunks must be exactly one step apart.
			step := tt.chunkDuration - tt.overlap
			for i := 1; i < len(spans); i++ {
				if got := spans[i].Start - spans[i-1].Start; got != step {
					t.Errorf("step between chunk %d and %d = %v, want %v", i-1, i, got, step)
				}
			}

			// Every chunk except the last has the full chunk duration, and
			// no chunk is shorter than one second.
			for i, span := range spans {
				if i < len(spans)-1 && span.Duration != tt.chunkDuration {
					t.Errorf("chunk %d duration = %v, want %v", i, span.Duration, tt.chunkDuration)
				}
				if span.Duration < time.Second {
					t.Errorf("chunk %d duration %v is below the one second floor", i, span.Duration)
				}
			}
		})
	}
}

func TestPlanStreamingChunksOverlapIsShared(t *testing.T) {
	spans, err := PlanStreamingChunks(65*time.Second, 30*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("PlanStreamingChunks() unexpected error: %v", err)
	}

	for i := 1; i < len(spans); i++ {
		prevEnd := spans[i-1].Start + spans[i-1].Duration
		shared := prevEnd - spans[i].Start
		if spans[i-1].Duration == 30*time.Second && shared != 5*time.Second {
			t.Errorf("chunks %d and %d share %v of audio, want 5s", i-1, i, shared)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{
			name:     "zero duration",
			duration: 0,
			want:     "00:00:00.000",
		},
		{
			name:     "minutes and seconds",
			duration: 2*time.Minute + 30*time.Second,
			want:     "00:02:30.000",
		},
		{
			name:     "hours, minutes, seconds",
			duration: 1*time.Hour + 23*time.Minute + 45*time.Second,
			want:     "01:23:45.000",
		},
		{
			name:     "with milliseconds",
			duration: 1*time.Minute + 30*time.Second + 500*time.Millisecond,
			want:     "00:01:30.500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.want {
				t.Errorf("formatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkPlanStreamingChunks(b *testing.B) {
	total := 2 * time.Hour
	chunkDuration := 30 * time.Second
	overlap := 5 * time.Second

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = PlanStreamingChunks(total, chunkDuration, overlap)
	}
}
