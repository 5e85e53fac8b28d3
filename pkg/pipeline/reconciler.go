// Package pipeline orchestrates recording processing: strategy dispatch,
// chunk transcription, transcript reconciliation and completion watching.
package pipeline

import (
	"sort"
	"strings"
	"time"
)

// ChunkResult is the transcription outcome for one chunk, ordered by index
// and never mutated after creation.
type ChunkResult struct {
	Index      int
	Start      time.Duration
	Duration   time.Duration
	Text       string
	Confidence float64

	// Err marks a chunk whose transcription failed. The transcript is
	// reconciled from the remaining chunks instead of aborting.
	Err error
}

// wordsPerSecond is the speech-rate heuristic bounding the overlap search.
// It is an approximation, not a timing-accurate computation; correctness
// under unusually fast speech is unverified.
const wordsPerSecond = 2

// Reconcile merges ordered chunk transcripts into one continuous text,
// discarding words duplicated by chunk overlap.
//
// For each adjacent pair it searches for the longest exact case-insensitive
// match between the previous chunk's trailing words and the current chunk's
// leading words, bounded by overlapSeconds * 2 words. Only exact matches
// count: a missed overlap costs minor duplication, over-trimming would lose
// words.
func Reconcile(results []ChunkResult, overlapSeconds int) string {
	valid := make([]ChunkResult, 0, len(results))
	for _, r := range results {
		if r.Err == nil && strings.TrimSpace(r.Text) != "" {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return ""
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Index < valid[j].Index
	})

	if len(valid) == 1 {
		return valid[0].Text
	}

	maxOverlapWords := overlapSeconds * wordsPerSecond

	combined := strings.Fields(valid[0].Text)
	prev := combined
	for _, current := range valid[1:] {
		words := strings.Fields(current.Text)
		overlap := overlapWordCount(prev, words, maxOverlapWords)
		combined = append(combined, words[overlap:]...)
		prev = words
	}

	return strings.Join(combined, " ")
}

// overlapWordCount returns the largest j for which the last j words of prev
// equal the first j words of next, case-insensitively, up to maxWords.
func overlapWordCount(prev, next []string, maxWords int) int {
	limit := maxWords
	if len(prev) < limit {
		limit = len(prev)
	}
	if len(next) < limit {
		limit = len(next)
	}

	best := 0
	for j := 1; j <= limit; j++ {
		if wordsEqualFold(prev[len(prev)-j:], next[:j]) {
			best = j
		}
	}
	return best
}

func wordsEqualFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
