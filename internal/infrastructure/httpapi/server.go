package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trendsense/internal/ports"
	"trendsense/internal/usecase"
)

// Server exposes the read-only query surface plus the ETL trigger.
type Server struct {
	repository ports.SentimentRepository
	pipeline   *usecase.Pipeline
	keywords   []string
	logger     *slog.Logger
	router     *chi.Mux
}

// NewServer wires the store and the pipeline into a chi router.
func NewServer(repo ports.SentimentRepository, pipeline *usecase.Pipeline, defaultKeywords []string, logger *slog.Logger) *Server {
	s := &Server{
		repository: repo,
		pipeline:   pipeline,
		keywords:   defaultKeywords,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/sentiments", s.handleSentiments)
	r.Get("/keywords", s.handleKeywords)
	r.Get("/stats", s.handleStats)
	r.Get("/stats/extended", s.handleExtendedStats)
	r.Get("/trends", s.handleTrends)
	r.Post("/trigger-etl", s.handleTriggerETL)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler for mounting or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	if s.logger != nil {
		s.logger.Info("http server listening", "addr", addr)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
