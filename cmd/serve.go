package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/api"
	"example.com/disasterwatch/services/alerts/internal/cache"
	"example.com/disasterwatch/services/alerts/internal/database"
	"example.com/disasterwatch/services/alerts/internal/feeds"
	"example.com/disasterwatch/services/alerts/internal/metrics"
	"example.com/disasterwatch/services/alerts/internal/repositories"
	"example.com/disasterwatch/services/alerts/internal/scheduler"
	"example.com/disasterwatch/services/alerts/internal/search"
	"example.com/disasterwatch/services/alerts/internal/services"
	"example.com/disasterwatch/services/alerts/internal/tracing"
	"example.com/disasterwatch/services/alerts/internal/web"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the alert service",
	Long:  `Start the HTTP server and the periodic feed sync scheduler`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize database
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize repositories and services
	alertRepo := repositories.NewAlertRepository(db)
	countryRepo := repositories.NewCountryRepository(db)
	syncService := services.NewSyncService(
		repositories.NewSyncStore(db),
		feeds.NewGdacsClient(cfg.Feeds),
		feeds.NewEonetClient(cfg.Feeds),
		elasticClient,
		metricsCollector,
		tracer,
	)

	// Initialize the dashboard handler
	webHandler := web.NewHandler(
		alertRepo,
		countryRepo,
		web.NewGeoIPClient(cfg.Web.GeoIPURL),
		cfg.Web.TemplateGlob,
	)

	// Initialize the server
	server := api.NewServer(cfg, api.ServerDeps{
		Alerts:    alertRepo,
		Countries: countryRepo,
		Syncer:    syncService,
		Cache:     redisCache,
		Metrics:   metricsCollector,
		Web:       webHandler,
	})

	// Start the HTTP server
	g.Go(func() error {
		return server.Start()
	})

	// Start the periodic feed sync
	g.Go(func() error {
		return scheduler.New(syncService, cfg.Sync.Interval).Run(ctx)
	})

	// Shut the server down when the context is cancelled
	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Service error")
		return err
	}

	log.Info().Msg("Service shut down gracefully")
	return nil
}
