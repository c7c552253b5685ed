package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/database"
	"example.com/disasterwatch/services/alerts/internal/feeds"
	"example.com/disasterwatch/services/alerts/internal/repositories"
	"example.com/disasterwatch/services/alerts/internal/search"
	"example.com/disasterwatch/services/alerts/internal/services"
	"example.com/disasterwatch/services/alerts/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var syncFeed string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-off feed sync",
	Long:  `Fetch the upstream feeds once, reconcile them into the database, and exit`,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncFeed, "feed", "all", "Feed to sync: gdacs, eonet or all")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	syncService := services.NewSyncService(
		repositories.NewSyncStore(db),
		feeds.NewGdacsClient(cfg.Feeds),
		feeds.NewEonetClient(cfg.Feeds),
		elasticClient,
		nil,
		tracer,
	)

	if syncFeed == "gdacs" || syncFeed == "all" {
		result, err := syncService.SyncAlerts(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Int("inserted", result.Inserted).
			Int("updated", result.Updated).
			Int("skipped", result.Skipped).
			Msg("Alert sync finished")
	}

	if syncFeed == "eonet" || syncFeed == "all" {
		result, err := syncService.SyncEvents(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Int("processed", result.Processed).
			Int("skipped", result.Skipped).
			Msg("Event sync finished")
	}

	return nil
}
