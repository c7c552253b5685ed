package cmd

import (
	"context"
	_ "embed"
	"encoding/csv"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/database"
	"example.com/disasterwatch/services/alerts/internal/models"
	"example.com/disasterwatch/services/alerts/internal/repositories"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed data/country_centroids.csv
var countryCentroidsCSV string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the country reference data",
	Long:  `Load the bundled country centroid table into the database. Existing rows are left untouched.`,
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	countries, err := parseCountryCentroids(countryCentroidsCSV)
	if err != nil {
		return err
	}

	if err := repositories.NewCountryRepository(db).Seed(ctx, countries); err != nil {
		return err
	}

	log.Info().Int("countries", len(countries)).Msg("Country reference data seeded")
	return nil
}

func parseCountryCentroids(raw string) ([]models.CountryCentroid, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parsing country centroid data")
	}
	if len(records) < 2 {
		return nil, errors.New("country centroid data is empty")
	}

	// Skip the header row
	countries := make([]models.CountryCentroid, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != 4 {
			return nil, errors.Errorf("malformed country centroid row: %v", record)
		}
		lat, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing latitude for %s", record[0])
		}
		lon, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing longitude for %s", record[0])
		}
		countries = append(countries, models.CountryCentroid{
			ISO3: record[0],
			Name: record[1],
			Lat:  lat,
			Lon:  lon,
		})
	}
	return countries, nil
}
