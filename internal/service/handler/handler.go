// Package handler exposes a built score index over HTTP: command batches in
// the same text format as the CLI, plus JSON lookups for single words and
// thresholds.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/query/cache"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/query/engine"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/query/parser"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/scoring/index"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/tracing"
)

// ScoreIndex is the read-only index surface served over HTTP.
type ScoreIndex interface {
	engine.Index
	WordsAbove(threshold float64, limit int) []string
	Stats() index.Stats
	Fingerprint() string
}

// Tracker receives one event per served batch. *analytics.Collector
// satisfies it.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Handler struct {
	index         ScoreIndex
	engine        *engine.Engine
	cache         *cache.QueryCache
	tracker       Tracker
	maxBatchBytes int64
	maxWordsAbove int
	logger        *slog.Logger
}

// New creates a Handler. queryCache, tracker and m may be nil.
func New(idx ScoreIndex, queryCache *cache.QueryCache, tracker Tracker, cfg config.QueryConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		index:         idx,
		engine:        engine.New(idx, m),
		cache:         queryCache,
		tracker:       tracker,
		maxBatchBytes: cfg.MaxBatchBytes,
		maxWordsAbove: cfg.MaxWordsAbove,
		logger:        slog.Default().With("component", "score-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/query", h.Query)
	mux.HandleFunc("GET /api/v1/words/{word}", h.WordScore)
	mux.HandleFunc("GET /api/v1/words", h.WordsAbove)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Query executes a command batch and answers with the aggregate text output.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBatchBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
				"command batch exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "reading command batch failed"))
		return
	}
	text := string(body)
	ctx, span := tracing.Start(ctx, "query_batch", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	_, parseSpan := tracing.Start(ctx, "parse", "")
	cmds := parser.Parse(text)
	parseSpan.SetAttr("commands", len(cmds))
	parseSpan.End()

	compute := func() (string, error) {
		_, execSpan := tracing.Start(ctx, "execute", "")
		defer execSpan.End()
		return engine.Join(h.engine.ExecuteAll(cmds)), nil
	}

	var output string
	cacheHit := false
	if h.cache != nil {
		output, cacheHit, err = h.cache.GetOrCompute(ctx, text, compute)
	} else {
		output, err = compute()
	}
	if err != nil {
		log.Error("query execution failed", "error", err)
		h.writeError(w, fmt.Errorf("executing batch: %w", apperrors.ErrInternal))
		return
	}

	span.SetAttr("cache_hit", cacheHit)
	latencyMs := time.Since(start).Milliseconds()
	log.Info("query batch completed",
		"commands", len(cmds),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.tracker != nil {
		// Cached and shared outputs skip compute, so outcomes come from cmds.
		outcomes := make(map[string]int)
		for _, cmd := range cmds {
			outcomes[string(h.engine.Classify(cmd))]++
		}
		h.tracker.Track(analytics.QueryEvent{
			RequestID:   middleware.GetRequestID(ctx),
			Fingerprint: h.index.Fingerprint(),
			Commands:    len(cmds),
			Outcomes:    outcomes,
			CacheHit:    cacheHit,
			LatencyMs:   latencyMs,
			Timestamp:   time.Now().UTC(),
		})
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, output)
}

type wordResponse struct {
	Word    string   `json:"word"`
	Found   bool     `json:"found"`
	Score   *float64 `json:"score,omitempty"`
	Rounded string   `json:"rounded,omitempty"`
}

func (h *Handler) WordScore(w http.ResponseWriter, r *http.Request) {
	word := r.PathValue("word")
	resp := wordResponse{Word: word}
	if avg, ok := h.index.Average(word); ok {
		resp.Found = true
		resp.Rounded = engine.FormatScore(avg)
		if !math.IsInf(avg, 0) {
			resp.Score = &avg
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type wordsAboveResponse struct {
	Threshold string   `json:"threshold"`
	Count     int      `json:"count"`
	Words     []string `json:"words"`
	Truncated bool     `json:"truncated"`
}

// WordsAbove counts the words whose average is strictly greater than the
// "above" query parameter and lists up to "limit" of them.
func (h *Handler) WordsAbove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	arg := strings.TrimSpace(q.Get("above"))
	if arg == "" {
		h.writeError(w, apperrors.New(apperrors.ErrMissingArgument, http.StatusBadRequest,
			"query parameter 'above' is required"))
		return
	}
	threshold, err := engine.ParseThreshold(arg)
	if err != nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrMalformedArgument, http.StatusBadRequest,
			"invalid threshold %q", arg))
		return
	}

	limit := h.maxWordsAbove
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"limit must be a positive integer"))
			return
		}
		if limit <= 0 || parsed < limit {
			limit = parsed
		}
	}

	count := h.index.CountAbove(threshold)
	words := h.index.WordsAbove(threshold, limit)
	h.writeJSON(w, http.StatusOK, wordsAboveResponse{
		Threshold: engine.FormatScore(threshold),
		Count:     count,
		Words:     words,
		Truncated: len(words) < count,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"fingerprint": h.index.Fingerprint(),
		"index":       h.index.Stats(),
	}
	if h.cache == nil {
		resp["cache"] = map[string]string{"status": "disabled"}
	} else {
		hits, misses := h.cache.Stats()
		total := hits + misses
		var hitRate float64
		if total > 0 {
			hitRate = float64(hits) / float64(total) * 100
		}
		resp["cache"] = map[string]any{
			"hits":     hits,
			"misses":   misses,
			"total":    total,
			"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
