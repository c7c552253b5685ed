package api

import (
	"context"
	"net/http"
	"time"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/api/handlers"
	"example.com/disasterwatch/services/alerts/internal/api/middleware"
	"example.com/disasterwatch/services/alerts/internal/cache"
	"example.com/disasterwatch/services/alerts/internal/metrics"
	"example.com/disasterwatch/services/alerts/internal/repositories"
	"example.com/disasterwatch/services/alerts/internal/services"
	"example.com/disasterwatch/services/alerts/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server: the JSON API plus the dashboard
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
}

// ServerDeps bundles the collaborators handed to the server
type ServerDeps struct {
	Alerts    *repositories.AlertRepository
	Countries *repositories.CountryRepository
	Syncer    *services.SyncService
	Cache     *cache.RedisCache
	Metrics   *metrics.Metrics
	Web       *web.Handler
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, deps ServerDeps) *Server {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{config: cfg}
	server.router = server.setupRouter(deps)
	server.httpServer = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.router,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter(deps ServerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	// JSON API
	api := router.Group("/api")
	alertsHandler := handlers.NewAlertsHandler(deps.Alerts, deps.Syncer, deps.Cache)
	alertsHandler.RegisterRoutes(api)
	countriesHandler := handlers.NewCountriesHandler(deps.Countries, deps.Cache)
	countriesHandler.RegisterRoutes(api)

	// Server-rendered dashboard
	if deps.Web != nil {
		deps.Web.RegisterRoutes(router)
	}

	// Health check and metrics endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
