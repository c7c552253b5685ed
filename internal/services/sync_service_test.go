package services

import (
	"context"
	"testing"
	"time"

	"example.com/disasterwatch/services/alerts/internal/feeds"
	"example.com/disasterwatch/services/alerts/internal/geo"
	"example.com/disasterwatch/services/alerts/internal/models"
	"example.com/disasterwatch/services/alerts/internal/repositories"
	"example.com/disasterwatch/services/alerts/internal/tracing"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory SyncStore that mimics the transactional
// contract: batch state is discarded when the transaction function
// errors, and savepoint state is discarded when an item fails.
type fakeStore struct {
	alerts      map[string]*models.Alert // keyed by external ID
	events      map[string]*models.Event
	categories  map[string]models.Category
	sources     map[string]models.CitationSource
	geometries  map[string][]models.EventGeometry
	eventLinks  map[string][]string
	commitErr   error
	nextAlertID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		alerts:     make(map[string]*models.Alert),
		events:     make(map[string]*models.Event),
		categories: make(map[string]models.Category),
		sources:    make(map[string]models.CitationSource),
		geometries: make(map[string][]models.EventGeometry),
		eventLinks: make(map[string][]string),
	}
}

func (s *fakeStore) RunInTransaction(ctx context.Context, fn func(tx repositories.SyncTx) error) error {
	snapshot := s.snapshot()
	if err := fn(&fakeTx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	if s.commitErr != nil {
		s.restore(snapshot)
		return s.commitErr
	}
	return nil
}

func (s *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore()
	for k, v := range s.alerts {
		alert := *v
		cp.alerts[k] = &alert
	}
	for k, v := range s.events {
		event := *v
		cp.events[k] = &event
	}
	for k, v := range s.categories {
		cp.categories[k] = v
	}
	for k, v := range s.sources {
		cp.sources[k] = v
	}
	for k, v := range s.geometries {
		cp.geometries[k] = append([]models.EventGeometry(nil), v...)
	}
	for k, v := range s.eventLinks {
		cp.eventLinks[k] = append([]string(nil), v...)
	}
	cp.nextAlertID = s.nextAlertID
	return cp
}

func (s *fakeStore) restore(from *fakeStore) {
	s.alerts = from.alerts
	s.events = from.events
	s.categories = from.categories
	s.sources = from.sources
	s.geometries = from.geometries
	s.eventLinks = from.eventLinks
	s.nextAlertID = from.nextAlertID
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) WithSavepoint(fn func(tx repositories.SyncTx) error) error {
	snapshot := t.store.snapshot()
	if err := fn(t); err != nil {
		t.store.restore(snapshot)
		return err
	}
	return nil
}

func (t *fakeTx) FindAlertID(sourceID int, externalID string) (uint, error) {
	if alert, ok := t.store.alerts[externalID]; ok && alert.SourceID == sourceID {
		return alert.ID, nil
	}
	return 0, repositories.ErrNotFound
}

func (t *fakeTx) CreateAlert(alert *models.Alert) error {
	t.store.nextAlertID++
	alert.ID = t.store.nextAlertID
	cp := *alert
	t.store.alerts[alert.ExternalID] = &cp
	return nil
}

func (t *fakeTx) UpdateAlertDescriptive(id uint, title string, description *string, updatedAt time.Time) error {
	for _, alert := range t.store.alerts {
		if alert.ID == id {
			alert.Title = title
			alert.Description = description
			alert.UpdatedAt = updatedAt
			return nil
		}
	}
	return errors.New("alert not found for update")
}

func (t *fakeTx) UpsertEvent(event *models.Event) error {
	if event.ID == "" {
		return errors.New("event has no id")
	}
	cp := *event
	t.store.events[event.ID] = &cp
	return nil
}

func (t *fakeTx) EnsureCategory(category *models.Category) error {
	if _, ok := t.store.categories[category.ID]; !ok {
		t.store.categories[category.ID] = *category
	}
	return nil
}

func (t *fakeTx) EnsureSource(source *models.CitationSource) error {
	if _, ok := t.store.sources[source.ID]; !ok {
		t.store.sources[source.ID] = *source
	}
	return nil
}

func (t *fakeTx) LinkEventCategory(eventID, categoryID string) error {
	t.store.eventLinks[eventID] = append(t.store.eventLinks[eventID], "cat:"+categoryID)
	return nil
}

func (t *fakeTx) LinkEventSource(eventID, sourceID string) error {
	t.store.eventLinks[eventID] = append(t.store.eventLinks[eventID], "src:"+sourceID)
	return nil
}

func (t *fakeTx) ReplaceEventGeometries(eventID string, geometries []models.EventGeometry) error {
	t.store.geometries[eventID] = geometries
	return nil
}

// stub fetchers

type stubAlertFetcher struct {
	records []feeds.AlertRecord
	err     error
}

func (f *stubAlertFetcher) FetchAlerts(ctx context.Context) ([]feeds.AlertRecord, error) {
	return f.records, f.err
}

type stubEventFetcher struct {
	records []feeds.EventRecord
	err     error
}

func (f *stubEventFetcher) FetchEvents(ctx context.Context) ([]feeds.EventRecord, error) {
	return f.records, f.err
}

func newTestService(store repositories.SyncStore, gdacs AlertFetcher, eonet EventFetcher) *SyncService {
	svc := NewSyncService(store, gdacs, eonet, nil, nil, &tracing.NewRelicTracer{})
	svc.clock = clockwork.NewFakeClockAt(time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC))
	return svc
}

func alertRecord(externalID, title string) feeds.AlertRecord {
	eventTime := time.Date(2025, 8, 19, 6, 0, 0, 0, time.UTC)
	return feeds.AlertRecord{
		ExternalID: externalID,
		Title:      title,
		EventType:  "EQ",
		AlertLevel: "Green",
		Severity:   "minor",
		Country:    "Greece",
		ISO3:       "GRC",
		Point:      geo.Point{Lat: 38.5, Lon: 23.2},
		Link:       "https://example.org/" + externalID,
		EventTime:  &eventTime,
	}
}

func TestSyncAlertsInsertsNewRecords(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &stubAlertFetcher{records: []feeds.AlertRecord{
		alertRecord("EQ1", "Earthquake one"),
		alertRecord("EQ2", "Earthquake two"),
	}}, &stubEventFetcher{})

	result, err := svc.SyncAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, store.alerts, 2)

	stored := store.alerts["EQ1"]
	require.NotNil(t, stored)
	assert.Equal(t, "Earthquake one", stored.Title)
	assert.Equal(t, models.SourceGDACS, stored.SourceID)
	require.NotNil(t, stored.Lat)
	assert.Equal(t, 38.5, *stored.Lat)
	require.NotNil(t, stored.Country)
	assert.Equal(t, "Greece", *stored.Country)
}

func TestSyncAlertsIsIdempotent(t *testing.T) {
	store := newFakeStore()
	fetcher := &stubAlertFetcher{records: []feeds.AlertRecord{
		alertRecord("EQ1", "Earthquake one"),
	}}
	svc := newTestService(store, fetcher, &stubEventFetcher{})

	first, err := svc.SyncAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := svc.SyncAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Updated)
	assert.Len(t, store.alerts, 1)
}

func TestSyncAlertsConflictUpdatesOnlyDescriptiveFields(t *testing.T) {
	store := newFakeStore()
	original := alertRecord("EQ1", "Original title")
	svc := newTestService(store, &stubAlertFetcher{records: []feeds.AlertRecord{original}}, &stubEventFetcher{})

	_, err := svc.SyncAlerts(context.Background())
	require.NoError(t, err)

	// Upstream moved the alert and renamed it; only the rename lands
	moved := original
	moved.Title = "Renamed title"
	moved.Description = "New description"
	moved.Country = "Turkey"
	moved.Point = geo.Point{Lat: 40.0, Lon: 30.0}
	svc2 := newTestService(store, &stubAlertFetcher{records: []feeds.AlertRecord{moved}}, &stubEventFetcher{})

	result, err := svc2.SyncAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	stored := store.alerts["EQ1"]
	assert.Equal(t, "Renamed title", stored.Title)
	require.NotNil(t, stored.Description)
	assert.Equal(t, "New description", *stored.Description)
	// Location and country are set-once identity
	assert.Equal(t, "Greece", *stored.Country)
	assert.Equal(t, 38.5, *stored.Lat)
	assert.Equal(t, 23.2, *stored.Lon)
}

func TestSyncAlertsPerItemIsolation(t *testing.T) {
	store := newFakeStore()
	records := []feeds.AlertRecord{
		alertRecord("EQ1", "Good one"),
		alertRecord("", "Bad one"),
		alertRecord("EQ3", "Good two"),
	}
	svc := newTestService(&failingItemStore{fakeStore: store, failExternalID: ""}, &stubAlertFetcher{records: records}, &stubEventFetcher{})

	result, err := svc.SyncAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, store.alerts, 2)
	assert.NotNil(t, store.alerts["EQ1"])
	assert.NotNil(t, store.alerts["EQ3"])
}

func TestSyncAlertsFailureOnFinalItemKeepsPriorItems(t *testing.T) {
	store := newFakeStore()
	records := []feeds.AlertRecord{
		alertRecord("EQ1", "First"),
		alertRecord("EQ2", "Second"),
		alertRecord("BOOM", "Final fails"),
	}
	svc := newTestService(&failingItemStore{fakeStore: store, failExternalID: "BOOM"}, &stubAlertFetcher{records: records}, &stubEventFetcher{})

	result, err := svc.SyncAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, store.alerts, 2)
}

func TestSyncAlertsCommitFailureRollsBackEverything(t *testing.T) {
	store := newFakeStore()
	store.commitErr = errors.New("connection lost during commit")
	svc := newTestService(store, &stubAlertFetcher{records: []feeds.AlertRecord{
		alertRecord("EQ1", "First"),
		alertRecord("EQ2", "Second"),
	}}, &stubEventFetcher{})

	_, err := svc.SyncAlerts(context.Background())
	require.Error(t, err)
	assert.Empty(t, store.alerts)
}

func TestSyncAlertsFetchFailurePropagates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &stubAlertFetcher{err: errors.New("timeout")}, &stubEventFetcher{})

	_, err := svc.SyncAlerts(context.Background())
	require.Error(t, err)
	assert.Empty(t, store.alerts)
}

func TestSyncOverlapGuard(t *testing.T) {
	store := newFakeStore()
	blocker := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(store, blocker, &stubEventFetcher{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncAlerts(context.Background())
		done <- err
	}()

	<-blocker.started
	_, err := svc.SyncAlerts(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
	_, err = svc.SyncEvents(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(blocker.release)
	require.NoError(t, <-done)
}

func TestSyncEventsProcessesAndReplacesGeometries(t *testing.T) {
	store := newFakeStore()
	point := geo.Point{Lat: 57.53, Lon: -116.18}
	record := feeds.EventRecord{
		ID:    "EONET_6513",
		Title: "Wildfire in Alberta",
		Link:  "https://eonet.gsfc.nasa.gov/event/EONET_6513",
		Categories: []feeds.CategoryRecord{
			{ID: "wildfires", Title: "Wildfires", Slug: "wildfire"},
		},
		Sources: []feeds.SourceRecord{
			{ID: "NASA_DISP", URL: "https://disasters.nasa.gov/"},
		},
		Geometries: []feeds.GeometryRecord{
			{Date: time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), Type: "Point", Point: &point},
		},
	}
	svc := newTestService(store, &stubAlertFetcher{}, &stubEventFetcher{records: []feeds.EventRecord{record}})

	result, err := svc.SyncEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	require.Contains(t, store.events, "EONET_6513")
	assert.Contains(t, store.categories, "wildfires")
	assert.Contains(t, store.sources, "NASA_DISP")
	require.Len(t, store.geometries["EONET_6513"], 1)
	g := store.geometries["EONET_6513"][0]
	require.NotNil(t, g.Lat)
	assert.Equal(t, 57.53, *g.Lat)
	assert.Equal(t, -116.18, *g.Lon)

	// Second run replaces the geometry set wholesale
	record.Geometries = append(record.Geometries, feeds.GeometryRecord{
		Date: time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC), Type: "Point", Point: &point,
	})
	svc2 := newTestService(store, &stubAlertFetcher{}, &stubEventFetcher{records: []feeds.EventRecord{record}})
	_, err = svc2.SyncEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.geometries["EONET_6513"], 2)
	assert.Len(t, store.events, 1)
}

func TestSyncEventsSkipsFailingEvent(t *testing.T) {
	store := newFakeStore()
	records := []feeds.EventRecord{
		{ID: "EONET_1", Title: "Good"},
		{ID: "", Title: "No ID, fails upsert"},
		{ID: "EONET_3", Title: "Also good"},
	}
	svc := newTestService(store, &stubAlertFetcher{}, &stubEventFetcher{records: records})

	result, err := svc.SyncEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, store.events, 2)
}

// failingItemStore wraps the fake store so one external ID errors during
// item processing, exercising the savepoint path.
type failingItemStore struct {
	*fakeStore
	failExternalID string
}

func (s *failingItemStore) RunInTransaction(ctx context.Context, fn func(tx repositories.SyncTx) error) error {
	snapshot := s.fakeStore.snapshot()
	if err := fn(&failingItemTx{fakeTx: &fakeTx{store: s.fakeStore}, failExternalID: s.failExternalID}); err != nil {
		s.fakeStore.restore(snapshot)
		return err
	}
	return nil
}

type failingItemTx struct {
	*fakeTx
	failExternalID string
}

func (t *failingItemTx) WithSavepoint(fn func(tx repositories.SyncTx) error) error {
	snapshot := t.store.snapshot()
	if err := fn(t); err != nil {
		t.store.restore(snapshot)
		return err
	}
	return nil
}

func (t *failingItemTx) CreateAlert(alert *models.Alert) error {
	if alert.ExternalID == t.failExternalID {
		return errors.New("simulated insert failure")
	}
	return t.fakeTx.CreateAlert(alert)
}

// blockingFetcher signals when a fetch starts and blocks until released,
// so tests can hold the run guard open.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) FetchAlerts(ctx context.Context) ([]feeds.AlertRecord, error) {
	close(f.started)
	<-f.release
	return nil, nil
}
