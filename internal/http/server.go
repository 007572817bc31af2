// Package http exposes the budget engine as a JSON API. Handlers stay
// thin: decode, call the service, map domain errors to status codes.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"obras/internal/cache"
	"obras/internal/core"
	"obras/internal/log"
	"obras/internal/middleware/trace"
	"obras/internal/ports"
	"obras/internal/services"
)

type Server struct {
	http.Server

	budgets    *services.BudgetService
	progress   *services.ProgressService
	reports    *services.ReportService
	aggregator *services.ProgressAggregator
	stages     ports.StageStore

	// Earned-value reports are expensive to assemble, so they are
	// served from an LRU until the next mutation of the work.
	reportCache  *cache.LRUCache[core.EarnedValueReport]
	cacheManager *cache.Manager

	logs *log.StructuredLogger

	shutdownOnce sync.Once
}

// Options tunes the server beyond its collaborators.
type Options struct {
	ReportCacheSize int
	ReportCacheTTL  time.Duration
	Logger          *log.Logger
}

// DefaultOptions returns the tuning used when the caller passes zero values.
func DefaultOptions() Options {
	return Options{
		ReportCacheSize: 100,
		ReportCacheTTL:  30 * time.Second,
	}
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, budgets *services.BudgetService, progress *services.ProgressService, reports *services.ReportService, aggregator *services.ProgressAggregator, stages ports.StageStore, opts Options) *Server {
	defaults := DefaultOptions()
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = defaults.ReportCacheSize
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = defaults.ReportCacheTTL
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logs := log.NewStructuredLogger(logger.WithComponent(log.ComponentHTTP))

	mux := http.NewServeMux()
	tracer := trace.NewMiddleware(extractClientIP, logs)
	handler := tracer.Middleware(
		log.Middleware(logger)(
			log.ComponentMiddleware(log.ComponentHTTP)(mux)))

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: handler,
		},
		budgets:      budgets,
		progress:     progress,
		reports:      reports,
		aggregator:   aggregator,
		stages:       stages,
		reportCache:  cache.NewLRUCache[core.EarnedValueReport](opts.ReportCacheSize, opts.ReportCacheTTL),
		cacheManager: cache.NewManager(),
		logs:         logs,
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(5 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /works/{workId}/budget", s.handleGetBudget)
	mux.HandleFunc("POST /works/{workId}/budget/categories", s.handleAddCategory)
	mux.HandleFunc("DELETE /works/{workId}/budget/categories/{categoryId}", s.handleRemoveCategory)
	mux.HandleFunc("POST /works/{workId}/budget/categories/{categoryId}/items", s.handleAddItem)
	mux.HandleFunc("PATCH /works/{workId}/budget/categories/{categoryId}/items/{itemId}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /works/{workId}/budget/categories/{categoryId}/items/{itemId}", s.handleRemoveItem)
	mux.HandleFunc("POST /works/{workId}/budget/generate", s.handleGenerateCategories)

	mux.HandleFunc("PUT /works/{workId}/budget/categories/{categoryId}/progress", s.handleSetCategoryProgress)
	mux.HandleFunc("POST /works/{workId}/daily-logs", s.handleApplyDailyLog)
	mux.HandleFunc("POST /works/{workId}/measurements", s.handleApplyMeasurement)

	mux.HandleFunc("GET /works/{workId}/progress", s.handleWorkProgress)
	mux.HandleFunc("PUT /works/{workId}/progress-method", s.handleSetProgressMethod)

	mux.HandleFunc("GET /works/{workId}/stages", s.handleListStages)
	mux.HandleFunc("POST /works/{workId}/stages", s.handleAddStage)
	mux.HandleFunc("PUT /works/{workId}/stages/{stageId}/status", s.handleSetStageStatus)

	mux.HandleFunc("GET /works/{workId}/report", s.handleEarnedValueReport)

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateReport drops the cached report after any mutation of the work.
func (s *Server) invalidateReport(workID string) {
	s.reportCache.Delete(workID)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
