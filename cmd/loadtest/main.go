// Command loadtest drives a running scoresd with a mix of command batches,
// word lookups and threshold queries, then prints latency percentiles per
// request kind.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type request struct {
	kind   string
	method string
	path   string
	body   string
}

type kindStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	errors    int64
}

type Stats struct {
	total  atomic.Int64
	mu     sync.Mutex
	byKind map[string]*kindStats
	byCode map[int]int64
}

func NewStats() *Stats {
	return &Stats{byKind: make(map[string]*kindStats), byCode: make(map[int]int64)}
}

func (s *Stats) Record(kind string, d time.Duration, code int, err error) {
	s.total.Add(1)
	s.mu.Lock()
	ks, ok := s.byKind[kind]
	if !ok {
		ks = &kindStats{latencies: make([]time.Duration, 0, 10000)}
		s.byKind[kind] = ks
	}
	if err == nil {
		s.byCode[code]++
	}
	s.mu.Unlock()

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if err != nil || code >= 300 {
		ks.errors++
		return
	}
	ks.latencies = append(ks.latencies, d)
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the score service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	batchFile := flag.String("queries", "", "command file used as the POST /api/v1/query body")
	flag.Parse()

	batch := "WORDSCORE epic WORDSCORE story\nREVIEWSCORE a thrilling performance\nWORDSABOVE 2.5 WORDSABOVE 3.75\n"
	if *batchFile != "" {
		data, err := os.ReadFile(*batchFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", *batchFile, err)
			os.Exit(1)
		}
		batch = string(data)
	}
	mix := buildMix(batch)

	runID := uuid.NewString()
	fmt.Println("=== Review Scores Load Test ===")
	fmt.Printf("Run:         %s\n", runID)
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Println()

	stats := run(*baseURL, runID, *concurrency, *duration, mix)
	if !report(stats, *duration) {
		os.Exit(1)
	}
}

func buildMix(batch string) []request {
	mix := []request{{kind: "query", method: http.MethodPost, path: "/api/v1/query", body: batch}}
	for _, w := range []string{"epic", "story", "dull", "performance", "unknownword"} {
		mix = append(mix, request{kind: "word", method: http.MethodGet, path: "/api/v1/words/" + url.PathEscape(w)})
	}
	for _, t := range []string{"0", "1.5", "2.5", "3.75"} {
		mix = append(mix, request{kind: "above", method: http.MethodGet, path: "/api/v1/words?limit=10&above=" + t})
	}
	return mix
}

func run(baseURL, runID string, concurrency int, d time.Duration, mix []request) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; ctx.Err() == nil; i++ {
				r := mix[i%len(mix)]
				req, err := http.NewRequestWithContext(ctx, r.method, baseURL+r.path, strings.NewReader(r.body))
				if err != nil {
					stats.Record(r.kind, 0, 0, err)
					continue
				}
				req.Header.Set("X-Request-ID", fmt.Sprintf("%s-%d-%d", runID, worker, i))
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(r.kind, elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(r.kind, elapsed, resp.StatusCode, nil)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

// report prints the summary and reports whether any request succeeded.
func report(stats *Stats, d time.Duration) bool {
	total := stats.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	if total > 0 {
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/d.Seconds())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()
	kinds := make([]string, 0, len(stats.byKind))
	for k := range stats.byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	succeeded := 0
	for _, k := range kinds {
		ks := stats.byKind[k]
		ks.mu.Lock()
		lat := append([]time.Duration(nil), ks.latencies...)
		errs := ks.errors
		ks.mu.Unlock()
		succeeded += len(lat)

		fmt.Printf("\n--- %s ---\n", k)
		fmt.Printf("OK: %d  Errors: %d\n", len(lat), errs)
		if len(lat) == 0 {
			continue
		}
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		fmt.Printf("P50: %s  P95: %s  P99: %s  Max: %s\n",
			percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[len(lat)-1])
	}

	fmt.Println("\n=== Status Codes ===")
	codes := make([]int, 0, len(stats.byCode))
	for c := range stats.byCode {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	for _, c := range codes {
		fmt.Printf("  %d: %d\n", c, stats.byCode[c])
	}
	if succeeded == 0 {
		fmt.Println("\nWARNING: no request succeeded. Is scoresd running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
