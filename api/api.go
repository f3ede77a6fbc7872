// Package api exposes the thin HTTP control surface for the monitor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/LadyR00t/rrss-mcp/pipeline"
	"github.com/LadyR00t/rrss-mcp/ratelimit"
	"github.com/LadyR00t/rrss-mcp/report"
	"github.com/LadyR00t/rrss-mcp/storage"
	"github.com/LadyR00t/rrss-mcp/twitter"
)

// Collector runs one fetch-and-ingest cycle.
type Collector interface {
	Collect(ctx context.Context) (pipeline.Summary, error)
}

// Store is the slice of the storage layer the handlers depend on.
type Store interface {
	Stats(ctx context.Context) (int, map[string]int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reporter builds the daily report on demand.
type Reporter interface {
	GenerateDaily(ctx context.Context, day time.Time) (*storage.Report, error)
}

// LimitsProvider exposes the current rate limiter state.
type LimitsProvider interface {
	Snapshot() ratelimit.Snapshot
}

// Limits mirrors the /api-limits payload.
type Limits struct {
	RemainingRequests    int        `json:"remaining_requests"`
	LastRequest          *time.Time `json:"last_request"`
	NextReset            *time.Time `json:"next_reset"`
	PostsPerFetch        int        `json:"posts_per_fetch"`
	MaxRequestsPerWindow int        `json:"max_requests_per_window"`
	QueryKeywords        []string   `json:"query_keywords"`
}

// Server holds the handler dependencies.
type Server struct {
	collector Collector
	store     Store
	reporter  Reporter
	limits    LimitsProvider

	keywords             []string
	postsPerFetch        int
	maxRequestsPerWindow int
	retentionDays        int
	now                  func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer wires the control surface. keywords, postsPerFetch,
// maxRequestsPerWindow, and retentionDays come from the loaded config.
func NewServer(collector Collector, store Store, reporter Reporter, limits LimitsProvider,
	keywords []string, postsPerFetch, maxRequestsPerWindow, retentionDays int, opts ...Option) *Server {
	s := &Server{
		collector:            collector,
		store:                store,
		reporter:             reporter,
		limits:               limits,
		keywords:             keywords,
		postsPerFetch:        postsPerFetch,
		maxRequestsPerWindow: maxRequestsPerWindow,
		retentionDays:        retentionDays,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler for the control surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /collect", s.handleCollect)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /api-limits", s.handleLimits)
	mux.HandleFunc("POST /cleanup", s.handleCleanup)
	mux.HandleFunc("GET /reports/daily", s.handleDailyReport)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	summary, err := s.collector.Collect(r.Context())
	if err != nil {
		var rateErr *twitter.RateLimitError
		if errors.As(err, &rateErr) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":        "rate limit reached",
				"wait_seconds": rateErr.WaitSeconds,
			})
			return
		}
		slog.Error("collection failed", "error", err)
		writeError(w, http.StatusInternalServerError, "collection failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "collection completed",
		"summary": summary,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, categories, err := s.store.Stats(r.Context())
	if err != nil {
		slog.Error("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_posts": total,
		"categories":  categories,
		"last_update": s.now().UTC(),
	})
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	snap := s.limits.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"limits": Limits{
			RemainingRequests:    snap.Remaining,
			LastRequest:          snap.LastRequest,
			NextReset:            snap.NextReset,
			PostsPerFetch:        s.postsPerFetch,
			MaxRequestsPerWindow: s.maxRequestsPerWindow,
			QueryKeywords:        s.keywords,
		},
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.store.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		slog.Error("cleanup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "cleanup completed",
		"deleted": deleted,
	})
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	day := s.now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, use YYYY-MM-DD")
			return
		}
		day = parsed
	}

	rep, err := s.reporter.GenerateDaily(r.Context(), day)
	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			writeError(w, http.StatusNotFound, "no posts for the requested day, run /collect first")
			return
		}
		slog.Error("report generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "report generated",
		"date":        rep.Date.Format("2006-01-02"),
		"total_posts": rep.TotalPosts,
		"categories":  rep.Categories,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
