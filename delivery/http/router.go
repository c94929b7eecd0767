package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/config"
)

// HTTPServer represents the HTTP server
type HTTPServer struct {
	server     *http.Server
	router     *gin.Engine
	handlers   *Handlers
	middleware *MiddlewareManager
	config     *config.Config
	registry   *prometheus.Registry
	logger     *zap.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.Config,
	handlers *Handlers,
	middleware *MiddlewareManager,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *HTTPServer {
	if cfg.Service.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	httpServer := &HTTPServer{
		router:     router,
		handlers:   handlers,
		middleware: middleware,
		config:     cfg,
		registry:   registry,
		logger:     logger,
	}

	httpServer.setupMiddleware()
	httpServer.setupRoutes()

	httpServer.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return httpServer
}

// setupMiddleware configures global middleware
func (s *HTTPServer) setupMiddleware() {
	s.router.Use(s.middleware.ErrorHandler())
	s.router.Use(s.middleware.RequestID())
	s.router.Use(s.middleware.RequestLogger())
}

// setupRoutes configures all API routes
func (s *HTTPServer) setupRoutes() {
	// Health check endpoint (no auth required)
	s.router.GET("/health", s.handlers.HealthCheck)

	if s.config.Metrics.Enabled {
		s.router.GET(s.config.Metrics.Path, gin.WrapH(
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
		))
	}

	api := s.router.Group("/api/v1")

	// Public endpoints
	public := api.Group("/auth")
	{
		public.POST("/login", s.handlers.Login)
	}

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.middleware.AuthenticationRequired())
	{
		protected.GET("/accounts", s.handlers.ListAccounts)
		protected.POST("/sync", s.handlers.TriggerSync)
	}
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server starting", zap.String("addr", s.server.Addr))
	return nil
}

// Stop gracefully stops the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

// GetAddress returns the server address
func (s *HTTPServer) GetAddress() string {
	return s.server.Addr
}

// Router exposes the gin engine, used by tests
func (s *HTTPServer) Router() *gin.Engine {
	return s.router
}
