package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/kafka"
)

const maxLatencySamples = 10000

// AggregatedStats summarises the query events seen since startup.
type AggregatedStats struct {
	TotalBatches     int64            `json:"total_batches"`
	TotalCommands    int64            `json:"total_commands"`
	Outcomes         map[string]int64 `json:"outcomes"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	BatchesPerMinute float64          `json:"batches_per_minute"`
	Indexes          []IndexCount     `json:"indexes"`
}

// IndexCount is the number of batches answered by one index build.
type IndexCount struct {
	Fingerprint string `json:"fingerprint"`
	Batches     int64  `json:"batches"`
}

// Aggregator folds QueryEvents into running totals. Latencies keep the most
// recent maxLatencySamples values.
type Aggregator struct {
	mu           sync.Mutex
	totalBatches int64
	commands     int64
	outcomes     map[string]int64
	cacheHits    int64
	cacheMisses  int64
	latencies    []int64
	next         int
	byIndex      map[string]int64
	startTime    time.Time
	logger       *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		outcomes:  make(map[string]int64),
		latencies: make([]int64, 0, 1024),
		byIndex:   make(map[string]int64),
		startTime: time.Now(),
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes a published QueryEvent and records it. Undecodable
// messages are logged and acknowledged so they do not block the partition.
func (a *Aggregator) HandleEvent() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			a.logger.Error("failed to decode query event", "error", err)
			return nil
		}
		a.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalBatches++
	a.commands += int64(event.Commands)
	for outcome, n := range event.Outcomes {
		a.outcomes[outcome] += int64(n)
	}
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	if event.Fingerprint != "" {
		a.byIndex[event.Fingerprint]++
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := AggregatedStats{
		TotalBatches:  a.totalBatches,
		TotalCommands: a.commands,
		Outcomes:      make(map[string]int64, len(a.outcomes)),
		CacheHits:     a.cacheHits,
		CacheMisses:   a.cacheMisses,
		Indexes:       make([]IndexCount, 0, len(a.byIndex)),
	}
	for k, v := range a.outcomes {
		stats.Outcomes[k] = v
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	for fp, n := range a.byIndex {
		stats.Indexes = append(stats.Indexes, IndexCount{Fingerprint: fp, Batches: n})
	}
	sort.Slice(stats.Indexes, func(i, j int) bool {
		if stats.Indexes[i].Batches != stats.Indexes[j].Batches {
			return stats.Indexes[i].Batches > stats.Indexes[j].Batches
		}
		return stats.Indexes[i].Fingerprint < stats.Indexes[j].Fingerprint
	})
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.BatchesPerMinute = float64(stats.TotalBatches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
