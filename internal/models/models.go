package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Alert severity buckets derived from the GDACS alert level.
const (
	SeveritySevere   = "severe"
	SeverityModerate = "moderate"
	SeverityMinor    = "minor"
	SeverityUnknown  = "unknown"
)

// Feed source identifiers for alert provenance.
const (
	SourceGDACS = 1
	SourceEONET = 2
)

// Alert represents a normalized disaster alert ingested from an upstream feed
type Alert struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SourceID    int        `gorm:"not null;uniqueIndex:idx_alerts_source_external" json:"source_id"`
	ExternalID  string     `gorm:"not null;uniqueIndex:idx_alerts_source_external" json:"external_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description *string    `json:"description"`
	EventType   *string    `gorm:"index" json:"event_type"`
	AlertLevel  *string    `json:"alert_level"`
	Severity    string     `gorm:"not null;default:unknown;index" json:"severity"`
	Country     *string    `gorm:"index" json:"country"`
	ISO3        *string    `gorm:"column:iso3" json:"iso3"`
	Lat         *float64   `json:"lat"`
	Lon         *float64   `json:"lon"`
	Link        *string    `json:"link"`
	EventTime   *time.Time `gorm:"index" json:"event_time"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Event represents an EONET natural event
type Event struct {
	ID          string           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Title       string           `gorm:"not null" json:"title"`
	Description *string          `json:"description"`
	Link        *string          `json:"link"`
	Closed      *time.Time       `json:"closed"`
	Categories  []Category       `gorm:"many2many:event_categories" json:"categories,omitempty"`
	Sources     []CitationSource `gorm:"many2many:event_sources" json:"sources,omitempty"`
	Geometries  []EventGeometry  `gorm:"foreignKey:EventID" json:"geometries,omitempty"`
}

// Category classifies events; deduplicated across events
type Category struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Title string `gorm:"not null" json:"title"`
	Slug  string `gorm:"not null" json:"slug"`
}

// CitationSource is an upstream citation attached to an event, distinct
// from the feed provider
type CitationSource struct {
	ID  string `gorm:"primaryKey" json:"id"`
	URL string `gorm:"not null" json:"url"`
}

// TableName overrides the default pluralization for citation sources
func (CitationSource) TableName() string {
	return "sources"
}

// EventGeometry is a time-stamped coordinate attached to an event.
// Rows are replaced wholesale on every sync, never merged.
type EventGeometry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EventID        string    `gorm:"not null;index" json:"event_id"`
	Date           time.Time `gorm:"not null" json:"date"`
	Type           string    `gorm:"not null" json:"type"`
	Lat            *float64  `json:"lat"`
	Lon            *float64  `json:"lon"`
	Coordinates    []byte    `gorm:"type:jsonb" json:"coordinates,omitempty"`
	MagnitudeValue *float64  `json:"magnitude_value"`
	MagnitudeUnit  *string   `json:"magnitude_unit"`
}

// CountryCentroid is static reference data: a representative point per country
type CountryCentroid struct {
	ISO3 string  `gorm:"column:iso3;primaryKey" json:"iso3"`
	Name string  `gorm:"not null;index" json:"name"`
	Lat  float64 `gorm:"not null" json:"lat"`
	Lon  float64 `gorm:"not null" json:"lon"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Alert{},
		&Event{},
		&Category{},
		&CitationSource{},
		&EventGeometry{},
		&CountryCentroid{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
