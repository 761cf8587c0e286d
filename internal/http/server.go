package http

import (
	"context"
	"net/http"
	"time"

	"hearth/internal/amqp"
	applog "hearth/internal/log"
	"hearth/internal/services"
)

// Server exposes the ledger over a JSON API. All endpoints except the
// health probes require the caller identity header.
type Server struct {
	httpServer *http.Server
	ledger     *services.LedgerService
	stats      *services.StatsService
	matcher    *services.TransferMatcher
	events     *amqp.Client
	logger     *applog.StructuredLogger
}

func NewServer(addr string, ledger *services.LedgerService, stats *services.StatsService, matcher *services.TransferMatcher, events *amqp.Client, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ledger:  ledger,
		stats:   stats,
		matcher: matcher,
		events:  events,
		logger:  applog.NewStructuredLogger(logger.WithComponent(applog.ComponentHTTP)),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /transactions", s.withLogging(s.handleCreateTransaction))
	mux.HandleFunc("PATCH /transactions/{id}", s.withLogging(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.withLogging(s.handleDeleteTransaction))
	mux.HandleFunc("POST /transactions/bulk", s.withLogging(s.handleBulkCreate))
	mux.HandleFunc("POST /transactions/bulk-delete", s.withLogging(s.handleBulkDelete))
	mux.HandleFunc("POST /transactions/bulk-category", s.withLogging(s.handleBulkCategory))
	mux.HandleFunc("POST /transfers/detect", s.withLogging(s.handleDetectTransfers))

	mux.HandleFunc("POST /accounts", s.withLogging(s.handleCreateAccount))
	mux.HandleFunc("GET /accounts", s.withLogging(s.handleListAccounts))
	mux.HandleFunc("GET /accounts/{id}", s.withLogging(s.handleGetAccount))
	mux.HandleFunc("DELETE /accounts/{id}", s.withLogging(s.handleDeleteAccount))
	mux.HandleFunc("POST /accounts/{id}/recalculate", s.withLogging(s.handleRecalculateBalance))
	mux.HandleFunc("PUT /accounts/{id}/anchor", s.withLogging(s.handleUpdateAnchor))

	mux.HandleFunc("GET /stats", s.withLogging(s.handleGetStats))
	mux.HandleFunc("GET /budgets/progress", s.withLogging(s.handleGetBudgetProgress))
	mux.HandleFunc("PUT /budgets/{categoryId}", s.withLogging(s.handleSetBudget))

	mux.HandleFunc("POST /categories", s.withLogging(s.handleCreateCategory))
	mux.HandleFunc("GET /categories", s.withLogging(s.handleListCategories))
	mux.HandleFunc("DELETE /categories/{id}", s.withLogging(s.handleDeleteCategory))

	mux.HandleFunc("POST /recurring-rules", s.withLogging(s.handleCreateRecurringRule))
	mux.HandleFunc("GET /recurring-rules", s.withLogging(s.handleListRecurringRules))

	mux.HandleFunc("POST /imports", s.withLogging(s.handleEnqueueImport))

	return s
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		s.logger.LogHTTPEnd(r.Context(), r, rec.status, time.Since(start).Milliseconds())
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
