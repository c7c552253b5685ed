package repositories

import (
	"context"

	"example.com/disasterwatch/services/alerts/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// AlertFilter holds the optional equality filters and pagination window
// for alert listings. Zero-valued filters are omitted, not matched.
type AlertFilter struct {
	Country   string
	Severity  string
	EventType string
	Page      int
	Limit     int
}

// Offset computes the row offset for the filter's page and limit
func (f AlertFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// AlertRepository provides read access to alert data
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// applyFilters adds the non-empty equality filters to a query
func (r *AlertRepository) applyFilters(query *gorm.DB, f AlertFilter) *gorm.DB {
	if f.Country != "" {
		query = query.Where("country = ?", f.Country)
	}
	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	return query
}

// List returns one page of alerts ordered by event time descending,
// plus the total count of rows matching the filters.
func (r *AlertRepository) List(ctx context.Context, f AlertFilter) ([]models.Alert, int64, error) {
	var total int64
	countQuery := r.applyFilters(r.db.WithContext(ctx).Model(&models.Alert{}), f)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count alerts")
	}

	// Start non-nil so an empty page serializes as [] rather than null
	alerts := []models.Alert{}
	dataQuery := r.applyFilters(r.db.WithContext(ctx).Model(&models.Alert{}), f)
	err := dataQuery.
		Order("event_time DESC").
		Limit(f.Limit).
		Offset(f.Offset()).
		Find(&alerts).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list alerts")
	}

	return alerts, total, nil
}

// GetByID returns a single alert, or ErrNotFound
func (r *AlertRepository) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).First(&alert, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get alert by ID")
	}
	return &alert, nil
}

// ListForMap returns every alert with a location, unfiltered and
// unpaginated. Map rendering wants the full set.
func (r *AlertRepository) ListForMap(ctx context.Context) ([]models.Alert, error) {
	alerts := []models.Alert{}
	err := r.db.WithContext(ctx).
		Where("lat IS NOT NULL AND lon IS NOT NULL").
		Find(&alerts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list alerts for map")
	}
	return alerts, nil
}

// CountryRepository provides access to the country centroid reference data
type CountryRepository struct {
	db *gorm.DB
}

// NewCountryRepository creates a new country repository
func NewCountryRepository(db *gorm.DB) *CountryRepository {
	return &CountryRepository{db: db}
}

// List returns all country centroids ordered by name
func (r *CountryRepository) List(ctx context.Context) ([]models.CountryCentroid, error) {
	countries := []models.CountryCentroid{}
	err := r.db.WithContext(ctx).Order("name").Find(&countries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list countries")
	}
	return countries, nil
}

// Seed inserts centroid rows, skipping ones already present
func (r *CountryRepository) Seed(ctx context.Context, countries []models.CountryCentroid) error {
	if len(countries) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(onConflictDoNothing()).
		Create(&countries).Error
	return errors.Wrap(err, "failed to seed country centroids")
}
