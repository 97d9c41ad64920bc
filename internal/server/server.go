// Package server exposes the attribution engine and flow graph builder over
// a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/config"
	"github.com/sells-group/attribution-cli/internal/flowgraph"
	"github.com/sells-group/attribution-cli/internal/store"
)

// Option configures a Server.
type Option func(*Server)

// WithStore enables the batch endpoints backed by st.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithLogger sets the request and diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(m attribution.Model) Option {
	return func(s *Server) {
		if m.Valid() {
			s.model = m
		}
	}
}

// Server serves the attribution API.
type Server struct {
	cfg     config.ServerConfig
	store   store.Store
	model   attribution.Model
	log     *zap.Logger
	builder *flowgraph.Builder
	limiter *rate.Limiter
}

// New creates a Server. A zero RateLimit disables request throttling.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		model: attribution.LastClick,
		log:   zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = flowgraph.NewBuilder(flowgraph.WithLogger(s.log))
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(s.rateLimitMiddleware)
	r.Use(s.bodyLimitMiddleware)

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.listModels)
		r.Post("/attribution", s.attribute)
		r.Post("/attribution/revenue", s.attributeRevenue)
		r.Post("/attribution/compare", s.compare)
		r.Post("/graph", s.graph)

		if s.store != nil {
			r.Route("/batches", func(r chi.Router) {
				r.Get("/", s.listBatches)
				r.Get("/{batch}/attribution", s.batchAttribution)
				r.Get("/{batch}/graph", s.batchGraph)
			})
		}
	})
	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.CORSOrigins
}

// ListenAndServe serves on cfg.Port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}
