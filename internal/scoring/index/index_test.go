package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/metrics"
)

var corpus = []string{
	"4.0 epic amazing story",
	"4.0 epic wonderful scene",
	"1 dull story and the boring scene",
	"not a rated line",
	"3 thrilling",
	"4 performance",
	"2.5 Amazing",
}

func TestBuildAverages(t *testing.T) {
	idx := Build(corpus, len(corpus))
	tests := []struct {
		word string
		want float64
	}{
		{"epic", 4.0},
		{"EPIC", 4.0},
		{"story", 2.5},
		{"scene", 2.5},
		{"amazing", 3.25},
		{"dull", 1},
		{"thrilling", 3},
		{"performance", 4},
	}
	for _, tt := range tests {
		got, ok := idx.Average(tt.word)
		if !ok {
			t.Errorf("Average(%q) not found", tt.word)
			continue
		}
		if got != tt.want {
			t.Errorf("Average(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
	for _, word := range []string{"the", "and", "a", "adventure", "not", "rated", "line"} {
		if _, ok := idx.Average(word); ok {
			t.Errorf("Average(%q) found, want absent", word)
		}
	}
}

func TestBuildStats(t *testing.T) {
	idx := Build(corpus, len(corpus))
	want := Stats{LinesRead: 7, LinesIndexed: 6, LinesSkipped: 1, Words: 9, Buckets: 5}
	if got := idx.Stats(); got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
}

func TestBuildSkipsNonDecimalScores(t *testing.T) {
	idx := Build([]string{"1_0 great", "0x1p2 movie", "2 great"}, 3)
	if _, ok := idx.Average("movie"); ok {
		t.Error("movie indexed from a hex score")
	}
	if avg, ok := idx.Average("great"); !ok || avg != 2 {
		t.Errorf("Average(great) = %v, %v; want 2, true", avg, ok)
	}
	if s := idx.Stats(); s.LinesIndexed != 1 || s.LinesSkipped != 2 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestBuildHonoursLineLimit(t *testing.T) {
	idx := Build(corpus, 2)
	if got := idx.Stats().LinesRead; got != 2 {
		t.Fatalf("LinesRead = %d, want 2", got)
	}
	if _, ok := idx.Average("dull"); ok {
		t.Error("word from line 3 indexed with limit 2")
	}
	if avg, _ := idx.Average("amazing"); avg != 4 {
		t.Errorf("amazing = %v, want 4 (line 7 outside limit)", avg)
	}

	empty := Build(corpus, 0)
	if empty.Stats().Words != 0 || empty.CountAbove(math.Inf(-1)) != 0 {
		t.Errorf("limit 0 built a non-empty index: %+v", empty.Stats())
	}
}

func TestAverageMatchesSumOverCount(t *testing.T) {
	lines := []string{"1 alpha", "2 alpha beta", "4 alpha", "0.5 beta beta"}
	idx := Build(lines, len(lines))
	// beta appears twice on the last line: both occurrences contribute.
	if got, _ := idx.Average("alpha"); got != 7.0/3.0 {
		t.Errorf("alpha = %v, want %v", got, 7.0/3.0)
	}
	if got, _ := idx.Average("beta"); got != 1.0 {
		t.Errorf("beta = %v, want 1", got)
	}
	if got := idx.Scores("BETA"); !reflect.DeepEqual(got, []float64{2, 0.5, 0.5}) {
		t.Errorf("Scores(beta) = %v", got)
	}
	if idx.Scores("gamma") != nil {
		t.Error("Scores of unknown word should be nil")
	}
}

func TestScoresReturnsCopy(t *testing.T) {
	idx := Build([]string{"3 gamma"}, 1)
	s := idx.Scores("gamma")
	s[0] = 100
	if avg, _ := idx.Average("gamma"); avg != 3 {
		t.Fatalf("mutating Scores result changed index: %v", avg)
	}
	if got := idx.Scores("gamma")[0]; got != 3 {
		t.Fatalf("Scores after mutation = %v", got)
	}
}

func TestCountAboveIsStrict(t *testing.T) {
	idx := Build(corpus, len(corpus))
	// averages: boring/dull 1, scene/story 2.5, thrilling 3, amazing 3.25,
	// epic/performance/wonderful 4
	tests := []struct {
		threshold float64
		want      int
	}{
		{math.Inf(-1), 9},
		{0, 9},
		{1, 7},
		{2.5, 5},
		{2.49, 7},
		{3, 4},
		{3.25, 3},
		{3.8, 3},
		{4, 0},
		{100, 0},
		{math.Inf(1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := idx.CountAbove(tt.threshold); got != tt.want {
			t.Errorf("CountAbove(%v) = %d, want %d", tt.threshold, got, tt.want)
		}
	}
}

func TestCountAboveMonotonic(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, fmt.Sprintf("%d word%d shared", i%5, i%37))
	}
	idx := Build(lines, len(lines))
	prev := idx.CountAbove(-1)
	for th := -1.0; th <= 5; th += 0.05 {
		got := idx.CountAbove(th)
		if got > prev {
			t.Fatalf("CountAbove(%v) = %d > previous %d", th, got, prev)
		}
		prev = got
	}
}

func TestBucketsPartitionWords(t *testing.T) {
	idx := Build(corpus, len(corpus))
	seen := make(map[string]int)
	for elem := idx.byAverage.Front(); elem != nil; elem = elem.Next() {
		for _, w := range elem.Value.([]string) {
			seen[w]++
			if avg := idx.averages[w]; avg != elem.Key().(float64) {
				t.Errorf("word %q in bucket %v but average %v", w, elem.Key(), avg)
			}
		}
	}
	if len(seen) != len(idx.scores) {
		t.Errorf("buckets hold %d words, index has %d", len(seen), len(idx.scores))
	}
	for w, n := range seen {
		if n != 1 {
			t.Errorf("word %q appears in %d buckets", w, n)
		}
	}
}

func TestWordsAbove(t *testing.T) {
	idx := Build(corpus, len(corpus))
	got := idx.WordsAbove(3, 0)
	want := []string{"amazing", "epic", "performance", "wonderful"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WordsAbove(3) = %v, want %v", got, want)
	}
	if got := idx.WordsAbove(3, 2); !reflect.DeepEqual(got, want[:2]) {
		t.Errorf("WordsAbove(3, 2) = %v", got)
	}
	if got := idx.WordsAbove(4, 0); len(got) != 0 {
		t.Errorf("WordsAbove(4) = %v, want empty", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := Build(corpus, len(corpus))
	b := Build(append([]string{}, corpus...), len(corpus))
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("same corpus produced different fingerprints")
	}
	c := Build(corpus, 3)
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different corpora share a fingerprint")
	}
	if len(a.Fingerprint()) != 32 {
		t.Errorf("fingerprint length = %d", len(a.Fingerprint()))
	}
}

type sliceSource []string

func (s sliceSource) Lines(_ context.Context, limit int) ([]string, error) {
	if limit < len(s) {
		return s[:limit], nil
	}
	return s, nil
}

type failingSource struct{ err error }

func (f failingSource) Lines(context.Context, int) ([]string, error) { return nil, f.err }

func TestBuildFromSource(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	idx, err := BuildFromSource(context.Background(), sliceSource(corpus), 4, m)
	if err != nil {
		t.Fatalf("BuildFromSource: %v", err)
	}
	if idx.Stats().LinesRead != 4 {
		t.Errorf("LinesRead = %d, want 4", idx.Stats().LinesRead)
	}
	if got := testutil.ToFloat64(m.CorpusLinesTotal.WithLabelValues("skipped")); got != 1 {
		t.Errorf("skipped lines metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IndexedWords); got != float64(idx.Stats().Words) {
		t.Errorf("indexed words metric = %v", got)
	}
}

func TestBuildFromSourceUnavailable(t *testing.T) {
	_, err := BuildFromSource(context.Background(), failingSource{errors.New("connection refused")}, 10, nil)
	if !errors.Is(err, apperrors.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("err = %v, want cause preserved", err)
	}
}
