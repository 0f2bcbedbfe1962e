// Package httpserver provides the HTTP REST API server for the recipe catalog.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/helixir/recipe-catalog-service/internal/config"
	"github.com/helixir/recipe-catalog-service/internal/database"
	"github.com/helixir/recipe-catalog-service/internal/domain"
	"github.com/helixir/recipe-catalog-service/internal/observability"
)

// RecipeService is the catalog surface the HTTP handlers call.
// *catalog.Service satisfies it.
type RecipeService interface {
	CreateRecipe(ctx context.Context, in domain.CreateRecipeInput) (*domain.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, in domain.UpdateRecipeInput) (*domain.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) (bool, error)
	ListRecipes(ctx context.Context, skip, limit int) ([]*domain.Recipe, error)
	SearchByIngredient(ctx context.Context, substring string, skip, limit int) ([]*domain.Recipe, error)
	FilterByCategory(ctx context.Context, substring string, skip, limit int) ([]*domain.Recipe, error)
	IncrementViewCount(ctx context.Context, id int64) error
}

// HealthChecker reports database health. *database.DB satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	recipes    RecipeService
	health     HealthChecker
	metrics    *observability.Metrics
	limiter    *rate.Limiter
	logger     zerolog.Logger

	// background tracks view recordings that outlive their request.
	// Cancelling viewCtx aborts them.
	background  sync.WaitGroup
	viewCtx     context.Context
	cancelViews context.CancelFunc
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimit    config.RateLimitConfig
}

// NewServer creates a new HTTP server with all dependencies.
// metrics may be nil, in which case no HTTP metrics are recorded.
func NewServer(
	cfg Config,
	recipes RecipeService,
	health HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := newServer(recipes, health, metrics, logger.With().Str("component", "http-server").Logger())

	if cfg.RateLimit.Enabled {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func newServer(recipes RecipeService, health HealthChecker, metrics *observability.Metrics, logger zerolog.Logger) *Server {
	viewCtx, cancelViews := context.WithCancel(context.Background())
	return &Server{
		recipes:     recipes,
		health:      health,
		metrics:     metrics,
		logger:      logger,
		viewCtx:     viewCtx,
		cancelViews: cancelViews,
	}
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.instrumentMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints (not rate limited)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1/recipes", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}

		r.Post("/", s.createRecipe)
		r.Get("/", s.listRecipes)
		r.Get("/{recipeID}", s.getRecipe)
		r.Patch("/{recipeID}", s.updateRecipe)
		r.Delete("/{recipeID}", s.deleteRecipe)
		r.Post("/{recipeID}/views", s.recordView)
	})

	return r
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server and waits for pending
// view recordings. Recordings still running when ctx expires are cancelled
// and awaited, so the caller may close the database afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Msg("shutdown deadline reached, cancelling pending view recordings")
		s.cancelViews()
		<-done
	}
	s.cancelViews()

	return err
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Healthy() {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status including database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if !health.Healthy() {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": health.Status,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Int("status", statusCode).Msg("failed to encode JSON response")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
