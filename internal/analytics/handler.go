package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// defaultIndexRows caps the per-index breakdown unless ?indexes= asks for
// more.
const defaultIndexRows = 20

// Handler serves aggregated query analytics as JSON.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats answers GET /api/v1/analytics. ?fingerprint= keeps only that index
// build in the breakdown and ?indexes= sets how many builds are listed,
// busiest first.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows := defaultIndexRows
	if v := q.Get("indexes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.write(w, http.StatusBadRequest, map[string]string{"error": "indexes must be a non-negative integer"})
			return
		}
		rows = n
	}

	stats := h.aggregator.Stats()
	if fp := q.Get("fingerprint"); fp != "" {
		kept := make([]IndexCount, 0, 1)
		for _, ic := range stats.Indexes {
			if ic.Fingerprint == fp {
				kept = append(kept, ic)
			}
		}
		stats.Indexes = kept
	}
	if len(stats.Indexes) > rows {
		stats.Indexes = stats.Indexes[:rows]
	}
	w.Header().Set("Cache-Control", "no-store")
	h.write(w, http.StatusOK, stats)
}

func (h *Handler) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
