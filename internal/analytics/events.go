package analytics

import "time"

// QueryEvent describes one command batch served by the query service.
type QueryEvent struct {
	RequestID   string         `json:"request_id"`
	Fingerprint string         `json:"index_fingerprint"`
	Commands    int            `json:"commands"`
	Outcomes    map[string]int `json:"outcomes"`
	CacheHit    bool           `json:"cache_hit"`
	LatencyMs   int64          `json:"latency_ms"`
	Timestamp   time.Time      `json:"timestamp"`
}
