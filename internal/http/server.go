// Package http exposes the ledger as a small JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lottoledger/internal/core"
	"lottoledger/internal/log"
	"lottoledger/internal/services"
)

// Ledger is the part of the ledger service the handlers use.
type Ledger interface {
	Create(ctx context.Context) core.Transaction
	Update(ctx context.Context, id, field, value string) error
	Remove(ctx context.Context, id string)
	Get(id string) (core.Transaction, bool)
	All() []core.Transaction
	Sorted() []core.Transaction
	DailySummary(date string) (core.Summary, error)
	MonthlySummary(month string) (core.Summary, error)
	Games(date string) ([]core.Game, error)
	SaveRemote(ctx context.Context) services.SyncResult
	LoadRemote(ctx context.Context) services.SyncResult
	RemoteName() string
}

var _ Ledger = (*services.LedgerService)(nil)

type Server struct {
	http.Server
	router  chi.Router
	ledger  Ledger
	logger  *log.Logger
	events  *log.StructuredLogger
	limiter *rateLimiter
}

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	AllowedOrigins    []string
	RequestsPerMinute int
	RequestTimeout    time.Duration
}

func DefaultOptions() Options {
	return Options{
		AllowedOrigins:    []string{"*"},
		RequestsPerMinute: 120,
		RequestTimeout:    30 * time.Second,
	}
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, logger *log.Logger, opts Options) *Server {
	def := DefaultOptions()
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = def.AllowedOrigins
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = def.RequestsPerMinute
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}

	httpLogger := logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		router:  chi.NewRouter(),
		ledger:  ledger,
		logger:  httpLogger,
		events:  log.NewStructuredLogger(logger),
		limiter: newRateLimiter(opts.RequestsPerMinute, time.Now),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.setupMiddleware(opts)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(log.Middleware(s.logger))
	s.router.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	s.router.Use(s.requestLogging)
	s.router.Use(securityHeaders)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(s.rateLimit)
	s.router.Use(middleware.Timeout(opts.RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", handleHealth)
	s.router.Get("/readyz", s.handleReady)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Patch("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Route("/summary", func(r chi.Router) {
			r.Get("/daily", s.handleDailySummary)
			r.Get("/monthly", s.handleMonthlySummary)
		})
		r.Get("/games", s.handleGames)
		r.Route("/sync", func(r chi.Router) {
			r.Post("/save", s.handleSyncSave)
			r.Post("/load", s.handleSyncLoad)
		})
	})
}

// Shutdown stops the limiter janitor and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	return s.Server.Shutdown(ctx)
}
