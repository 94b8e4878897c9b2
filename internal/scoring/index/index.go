// Package index builds the per-word average score index from rated review
// lines. An index is built once and is read-only afterwards, so a built
// *ScoreIndex is safe for concurrent readers.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/huandu/skiplist"

	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/scoring/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/metrics"
)

// LineSource yields the first limit raw corpus lines.
type LineSource interface {
	Lines(ctx context.Context, limit int) ([]string, error)
}

// Stats summarises a build.
type Stats struct {
	LinesRead    int `json:"lines_read"`
	LinesIndexed int `json:"lines_indexed"`
	LinesSkipped int `json:"lines_skipped"`
	Words        int `json:"words"`
	Buckets      int `json:"buckets"`
}

// ScoreIndex maps each indexed word to the scores of every line it appeared
// on, and orders words by their average score.
type ScoreIndex struct {
	scores      map[string][]float64
	averages    map[string]float64
	byAverage   *skiplist.SkipList // float64 average -> []string, words sorted
	stats       Stats
	fingerprint string
}

// Build consumes at most limit lines. Lines without a leading score are
// skipped.
func Build(lines []string, limit int) *ScoreIndex {
	idx := &ScoreIndex{
		scores:    make(map[string][]float64),
		averages:  make(map[string]float64),
		byAverage: skiplist.New(skiplist.Float64),
	}
	log := slog.Default().With("component", "score-index")
	for i, line := range lines {
		if i >= limit {
			break
		}
		idx.stats.LinesRead++
		rec, err := tokenizer.ParseLine(line)
		if err != nil {
			idx.stats.LinesSkipped++
			log.Debug("skipping corpus line", "line", i+1, "error", err)
			continue
		}
		idx.stats.LinesIndexed++
		for _, word := range rec.Words {
			idx.scores[word] = append(idx.scores[word], rec.Score)
		}
	}
	idx.buildAverages()
	idx.stats.Words = len(idx.scores)
	idx.stats.Buckets = idx.byAverage.Len()
	idx.fingerprint = idx.computeFingerprint()
	return idx
}

// BuildFromSource reads up to limit lines from src and builds an index. A
// source failure aborts the build and wraps ErrSourceUnavailable.
func BuildFromSource(ctx context.Context, src LineSource, limit int, m *metrics.Metrics) (*ScoreIndex, error) {
	start := time.Now()
	lines, err := src.Lines(ctx, limit)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
		}
		return nil, err
	}
	idx := Build(lines, limit)
	if m != nil {
		m.IndexBuildDuration.Observe(time.Since(start).Seconds())
		m.CorpusLinesTotal.WithLabelValues("indexed").Add(float64(idx.stats.LinesIndexed))
		m.CorpusLinesTotal.WithLabelValues("skipped").Add(float64(idx.stats.LinesSkipped))
		m.IndexedWords.Set(float64(idx.stats.Words))
		m.AverageBuckets.Set(float64(idx.stats.Buckets))
	}
	slog.Info("score index built",
		"lines_read", idx.stats.LinesRead,
		"lines_skipped", idx.stats.LinesSkipped,
		"words", idx.stats.Words,
		"buckets", idx.stats.Buckets,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return idx, nil
}

// buildAverages fills averages and byAverage. Words are visited in sorted
// order so every bucket ends up sorted.
func (idx *ScoreIndex) buildAverages() {
	words := make([]string, 0, len(idx.scores))
	for word := range idx.scores {
		words = append(words, word)
	}
	sort.Strings(words)
	for _, word := range words {
		avg := mean(idx.scores[word])
		idx.averages[word] = avg
		if elem := idx.byAverage.Get(avg); elem != nil {
			elem.Value = append(elem.Value.([]string), word)
		} else {
			idx.byAverage.Set(avg, []string{word})
		}
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Average returns the mean score of word, or false when it is not indexed.
func (idx *ScoreIndex) Average(word string) (float64, bool) {
	avg, ok := idx.averages[tokenizer.Normalize(word)]
	return avg, ok
}

// Scores returns a copy of the raw scores recorded for word.
func (idx *ScoreIndex) Scores(word string) []float64 {
	scores, ok := idx.scores[tokenizer.Normalize(word)]
	if !ok {
		return nil
	}
	out := make([]float64, len(scores))
	copy(out, scores)
	return out
}

// firstAbove returns the first bucket whose average is strictly greater than
// threshold.
func (idx *ScoreIndex) firstAbove(threshold float64) *skiplist.Element {
	if math.IsNaN(threshold) {
		return nil
	}
	elem := idx.byAverage.Find(threshold)
	if elem != nil && elem.Key().(float64) == threshold {
		elem = elem.Next()
	}
	return elem
}

// CountAbove returns how many words have an average strictly greater than
// threshold.
func (idx *ScoreIndex) CountAbove(threshold float64) int {
	count := 0
	for elem := idx.firstAbove(threshold); elem != nil; elem = elem.Next() {
		count += len(elem.Value.([]string))
	}
	return count
}

// WordsAbove returns the words counted by CountAbove, ascending by average
// and then by word. A positive limit caps the result.
func (idx *ScoreIndex) WordsAbove(threshold float64, limit int) []string {
	words := make([]string, 0)
	for elem := idx.firstAbove(threshold); elem != nil; elem = elem.Next() {
		for _, word := range elem.Value.([]string) {
			if limit > 0 && len(words) >= limit {
				return words
			}
			words = append(words, word)
		}
	}
	return words
}

// Stats returns build statistics.
func (idx *ScoreIndex) Stats() Stats {
	return idx.stats
}

// Fingerprint identifies the indexed content. Two indexes built from corpora
// that yield the same word score lists share a fingerprint.
func (idx *ScoreIndex) Fingerprint() string {
	return idx.fingerprint
}

func (idx *ScoreIndex) computeFingerprint() string {
	words := make([]string, 0, len(idx.scores))
	for word := range idx.scores {
		words = append(words, word)
	}
	sort.Strings(words)
	h := sha256.New()
	buf := make([]byte, 0, 64)
	for _, word := range words {
		buf = append(buf[:0], word...)
		buf = append(buf, 0)
		for _, s := range idx.scores[word] {
			buf = strconv.AppendFloat(buf, s, 'g', -1, 64)
			buf = append(buf, ',')
		}
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
