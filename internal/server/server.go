package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"swapguard/internal/policy"
)

// Server exposes the policy engine over HTTP: the two host call points
// (pool-initialized, evaluate-swap), the owner-gated configuration surface,
// and operational endpoints.
type Server struct {
	store   *policy.Store
	logger  *zap.Logger
	metrics *Metrics
	router  *mux.Router
	http    *http.Server
}

// Config holds server settings.
type Config struct {
	ListenAddr     string
	RequestTimeout time.Duration
}

// New builds the server and its routes.
func New(cfg Config, store *policy.Store, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		store:   store,
		logger:  logger,
		metrics: metrics,
		router:  mux.NewRouter(),
	}
	s.routes()

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/pools", s.handleInitPool).Methods(http.MethodPost)
	api.HandleFunc("/pools/{id}", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id}/evaluate", s.handleEvaluate).Methods(http.MethodPost)

	api.HandleFunc("/pools/{id}/blacklist/{addr}", s.handleGetBlacklisted).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id}/routers/{addr}", s.handleGetRouter).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id}/trades/{addr}", s.handleGetLastTrade).Methods(http.MethodGet)

	api.HandleFunc("/pools/{id}/buy-fee", s.handleSetBuyFee).Methods(http.MethodPut)
	api.HandleFunc("/pools/{id}/sell-fee", s.handleSetSellFee).Methods(http.MethodPut)
	api.HandleFunc("/pools/{id}/fees", s.handleSetFees).Methods(http.MethodPut)
	api.HandleFunc("/pools/{id}/protection", s.handleSetProtection).Methods(http.MethodPut)
	api.HandleFunc("/pools/{id}/cooldown", s.handleSetCooldown).Methods(http.MethodPut)
	api.HandleFunc("/pools/{id}/max-sell", s.handleSetMaxSell).Methods(http.MethodPut)
	api.HandleFunc("/pools/{id}/blacklist/{addr}", s.handleSetBlacklisted).Methods(http.MethodPut)
	api.HandleFunc("/pools/{id}/routers/{addr}", s.handleSetRouter).Methods(http.MethodPut)
}

// Handler returns the routed handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
