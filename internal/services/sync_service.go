package services

import (
	"context"
	"sync"

	"example.com/disasterwatch/services/alerts/internal/feeds"
	"example.com/disasterwatch/services/alerts/internal/metrics"
	"example.com/disasterwatch/services/alerts/internal/models"
	"example.com/disasterwatch/services/alerts/internal/repositories"
	"example.com/disasterwatch/services/alerts/internal/search"
	"example.com/disasterwatch/services/alerts/internal/tracing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSyncInProgress is returned when a sync run is triggered while
// another run holds the single-slot guard.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// AlertSyncResult reports the outcome of a GDACS alert sync run
type AlertSyncResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// EventSyncResult reports the outcome of an EONET event sync run
type EventSyncResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// AlertFetcher pulls the GDACS feed
type AlertFetcher interface {
	FetchAlerts(ctx context.Context) ([]feeds.AlertRecord, error)
}

// EventFetcher pulls the EONET events API
type EventFetcher interface {
	FetchEvents(ctx context.Context) ([]feeds.EventRecord, error)
}

// SyncService orchestrates fetch, transform and transactional upsert of
// feed data. Each run executes inside one database transaction; a failing
// item is rolled back alone and skipped, while a commit failure rolls
// back the whole run. A single-slot guard keeps runs from overlapping.
type SyncService struct {
	store   repositories.SyncStore
	gdacs   AlertFetcher
	eonet   EventFetcher
	elastic *search.ElasticClient
	metrics *metrics.Metrics
	tracer  tracing.Tracer
	clock   clockwork.Clock

	mu sync.Mutex
}

// NewSyncService creates a new sync service
func NewSyncService(
	store repositories.SyncStore,
	gdacs AlertFetcher,
	eonet EventFetcher,
	elastic *search.ElasticClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *SyncService {
	if tracer == nil {
		tracer = &tracing.NewRelicTracer{}
	}
	return &SyncService{
		store:   store,
		gdacs:   gdacs,
		eonet:   eonet,
		elastic: elastic,
		metrics: metricsCollector,
		tracer:  tracer,
		clock:   clockwork.NewRealClock(),
	}
}

// SyncAlerts pulls the full GDACS feed and reconciles it against the
// alerts table. Returns exact inserted/updated counts.
func (s *SyncService) SyncAlerts(ctx context.Context) (AlertSyncResult, error) {
	if !s.mu.TryLock() {
		s.metrics.RecordSyncRun("gdacs", "busy")
		return AlertSyncResult{}, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	txn := s.tracer.StartTransaction("gdacs-sync")
	defer s.tracer.EndTransaction(txn)

	runID := uuid.New()
	start := s.clock.Now()
	log.Info().Str("run_id", runID.String()).Msg("Starting GDACS alert sync")

	records, err := s.gdacs.FetchAlerts(ctx)
	if err != nil {
		s.metrics.RecordFeedFetch("gdacs", "error")
		s.metrics.RecordSyncRun("gdacs", "error")
		s.tracer.RecordError(txn, err)
		return AlertSyncResult{}, errors.Wrap(err, "GDACS fetch failed")
	}
	s.metrics.RecordFeedFetch("gdacs", "success")

	var result AlertSyncResult
	var synced []models.Alert

	err = s.store.RunInTransaction(ctx, func(tx repositories.SyncTx) error {
		for _, record := range records {
			record := record
			itemErr := tx.WithSavepoint(func(tx repositories.SyncTx) error {
				alert, inserted, err := s.upsertAlert(tx, record)
				if err != nil {
					return err
				}
				if inserted {
					result.Inserted++
				} else {
					result.Updated++
				}
				synced = append(synced, *alert)
				return nil
			})
			if itemErr != nil {
				// Per-item isolation: log, skip, keep the batch alive
				result.Skipped++
				log.Warn().
					Err(itemErr).
					Str("run_id", runID.String()).
					Str("external_id", record.ExternalID).
					Msg("Skipping alert due to error")
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordSyncRun("gdacs", "error")
		s.tracer.RecordError(txn, err)
		return AlertSyncResult{}, errors.Wrap(err, "GDACS sync transaction failed")
	}

	// Best-effort indexing after the commit; search lag never fails a run
	s.indexAlerts(ctx, synced)

	elapsed := s.clock.Since(start)
	s.metrics.RecordSyncRun("gdacs", "success")
	s.metrics.RecordSyncItems("gdacs", "inserted", result.Inserted)
	s.metrics.RecordSyncItems("gdacs", "updated", result.Updated)
	s.metrics.RecordSyncItems("gdacs", "skipped", result.Skipped)
	s.metrics.ObserveSyncDuration("gdacs", elapsed.Seconds())

	log.Info().
		Str("run_id", runID.String()).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Dur("elapsed", elapsed).
		Msg("GDACS alert sync complete")

	return result, nil
}

// upsertAlert reconciles one feed record. On conflict only the mutable
// descriptive fields are updated; country, coordinates and type are
// treated as set-once geospatial identity.
func (s *SyncService) upsertAlert(tx repositories.SyncTx, record feeds.AlertRecord) (*models.Alert, bool, error) {
	id, err := tx.FindAlertID(models.SourceGDACS, record.ExternalID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}

	alert := alertFromRecord(record)

	if errors.Is(err, repositories.ErrNotFound) {
		if err := tx.CreateAlert(alert); err != nil {
			return nil, false, err
		}
		return alert, true, nil
	}

	if err := tx.UpdateAlertDescriptive(id, record.Title, alert.Description, s.clock.Now()); err != nil {
		return nil, false, err
	}
	alert.ID = id
	return alert, false, nil
}

// alertFromRecord maps the normalized feed record onto the storage model
func alertFromRecord(record feeds.AlertRecord) *models.Alert {
	lat := record.Point.Lat
	lon := record.Point.Lon
	return &models.Alert{
		SourceID:    models.SourceGDACS,
		ExternalID:  record.ExternalID,
		Title:       record.Title,
		Description: strPtr(record.Description),
		EventType:   strPtr(record.EventType),
		AlertLevel:  strPtr(record.AlertLevel),
		Severity:    record.Severity,
		Country:     strPtr(record.Country),
		ISO3:        strPtr(record.ISO3),
		Lat:         &lat,
		Lon:         &lon,
		Link:        strPtr(record.Link),
		EventTime:   record.EventTime,
		ExpiresAt:   record.ExpiresAt,
	}
}

// SyncEvents pulls the full EONET event set and reconciles it against
// the event tables. Geometries are replaced wholesale per event.
func (s *SyncService) SyncEvents(ctx context.Context) (EventSyncResult, error) {
	if !s.mu.TryLock() {
		s.metrics.RecordSyncRun("eonet", "busy")
		return EventSyncResult{}, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	txn := s.tracer.StartTransaction("eonet-sync")
	defer s.tracer.EndTransaction(txn)

	runID := uuid.New()
	start := s.clock.Now()
	log.Info().Str("run_id", runID.String()).Msg("Starting EONET event sync")

	records, err := s.eonet.FetchEvents(ctx)
	if err != nil {
		s.metrics.RecordFeedFetch("eonet", "error")
		s.metrics.RecordSyncRun("eonet", "error")
		s.tracer.RecordError(txn, err)
		return EventSyncResult{}, errors.Wrap(err, "EONET fetch failed")
	}
	s.metrics.RecordFeedFetch("eonet", "success")

	var result EventSyncResult
	err = s.store.RunInTransaction(ctx, func(tx repositories.SyncTx) error {
		for _, record := range records {
			record := record
			itemErr := tx.WithSavepoint(func(tx repositories.SyncTx) error {
				return s.processEvent(tx, record)
			})
			if itemErr != nil {
				result.Skipped++
				log.Warn().
					Err(itemErr).
					Str("run_id", runID.String()).
					Str("event_id", record.ID).
					Msg("Skipping event due to error")
				continue
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordSyncRun("eonet", "error")
		s.tracer.RecordError(txn, err)
		return EventSyncResult{}, errors.Wrap(err, "EONET sync transaction failed")
	}

	elapsed := s.clock.Since(start)
	s.metrics.RecordSyncRun("eonet", "success")
	s.metrics.RecordSyncItems("eonet", "processed", result.Processed)
	s.metrics.RecordSyncItems("eonet", "skipped", result.Skipped)
	s.metrics.ObserveSyncDuration("eonet", elapsed.Seconds())

	log.Info().
		Str("run_id", runID.String()).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Dur("elapsed", elapsed).
		Msg("EONET event sync complete")

	return result, nil
}

// processEvent reconciles one EONET event: full event upsert,
// insert-if-absent categories and citation sources, and a wholesale
// geometry replacement.
func (s *SyncService) processEvent(tx repositories.SyncTx, record feeds.EventRecord) error {
	event := &models.Event{
		ID:          record.ID,
		Title:       record.Title,
		Description: strPtr(record.Description),
		Link:        strPtr(record.Link),
		Closed:      record.Closed,
		UpdatedAt:   s.clock.Now(),
	}
	if err := tx.UpsertEvent(event); err != nil {
		return err
	}

	for _, cat := range record.Categories {
		if err := tx.EnsureCategory(&models.Category{ID: cat.ID, Title: cat.Title, Slug: cat.Slug}); err != nil {
			return err
		}
		if err := tx.LinkEventCategory(record.ID, cat.ID); err != nil {
			return err
		}
	}

	for _, src := range record.Sources {
		if err := tx.EnsureSource(&models.CitationSource{ID: src.ID, URL: src.URL}); err != nil {
			return err
		}
		if err := tx.LinkEventSource(record.ID, src.ID); err != nil {
			return err
		}
	}

	geometries := make([]models.EventGeometry, 0, len(record.Geometries))
	for _, g := range record.Geometries {
		geometry := models.EventGeometry{
			EventID:        record.ID,
			Date:           g.Date,
			Type:           g.Type,
			Coordinates:    g.Coordinates,
			MagnitudeValue: g.MagnitudeValue,
			MagnitudeUnit:  g.MagnitudeUnit,
		}
		if g.Point != nil {
			lat := g.Point.Lat
			lon := g.Point.Lon
			geometry.Lat = &lat
			geometry.Lon = &lon
		}
		geometries = append(geometries, geometry)
	}
	return tx.ReplaceEventGeometries(record.ID, geometries)
}

// indexAlerts pushes the run's upserted alerts to Elasticsearch
func (s *SyncService) indexAlerts(ctx context.Context, alerts []models.Alert) {
	if s.elastic == nil {
		return
	}
	for i := range alerts {
		if err := s.elastic.IndexAlert(ctx, &alerts[i]); err != nil {
			log.Warn().Err(err).Str("external_id", alerts[i].ExternalID).Msg("Failed to index alert")
		}
	}
}

// strPtr returns nil for the empty string, so absent feed fields store
// as NULL instead of ""
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
