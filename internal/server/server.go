// Package server provides the HTTP surface of the gateway: routing,
// authentication and rate limit enforcement, and response shaping.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/surgeonmatch/gateway/internal/auth"
	"github.com/surgeonmatch/gateway/internal/config"
	"github.com/surgeonmatch/gateway/internal/observability"
	"github.com/surgeonmatch/gateway/internal/ratelimit"
	"github.com/surgeonmatch/gateway/internal/server/middleware"
)

// ginModeOnce ensures gin.SetMode is only called once.
var ginModeOnce sync.Once

// Server is the gateway HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     config.ServerConfig
	logger     observability.Logger

	mu      sync.RWMutex
	running bool
}

// Deps are the collaborators wired into the request pipeline.
type Deps struct {
	Authenticator *auth.Authenticator
	Limiter       ratelimit.Limiter
	WindowSeconds int
	Handlers      *Handlers
	Registry      *prometheus.Registry
}

// New creates the gateway server and registers all routes. Every /v1
// route passes authentication, then rate limiting, in that order.
func New(cfg config.ServerConfig, deps Deps, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.Metrics(middleware.GetHTTPMetrics()),
	)

	if cfg.MaxRequestBodySize > 0 {
		engine.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxRequestBodySize)
			c.Next()
		})
	}

	s := &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}

	s.registerRoutes(deps)

	return s
}

// registerRoutes wires the public routes and their middleware chain.
func (s *Server) registerRoutes(deps Deps) {
	s.engine.GET("/health", deps.Handlers.Health)

	if deps.Registry != nil {
		s.engine.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/v1")
	v1.Use(
		AuthMiddleware(deps.Authenticator),
		RateLimitMiddleware(deps.Limiter, deps.WindowSeconds, s.logger),
	)

	v1.GET("/surgeons", deps.Handlers.SearchSurgeons)
	v1.GET("/surgeons/:npi/availability", deps.Handlers.SurgeonAvailability)
	v1.POST("/availabilityInquiry", deps.Handlers.AvailabilityInquiry)
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout.Duration(),
		WriteTimeout: s.config.WriteTimeout.Duration(),
		IdleTimeout:  s.config.IdleTimeout.Duration(),
	}

	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
