package repositories

import (
	"context"
	"time"

	"example.com/disasterwatch/services/alerts/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncTx is the set of write operations available inside a sync
// transaction. Implementations are bound to one open transaction.
type SyncTx interface {
	// WithSavepoint runs fn inside a nested transaction so a failing
	// item rolls back alone without aborting the batch.
	WithSavepoint(fn func(tx SyncTx) error) error

	FindAlertID(sourceID int, externalID string) (uint, error)
	CreateAlert(alert *models.Alert) error
	UpdateAlertDescriptive(id uint, title string, description *string, updatedAt time.Time) error

	UpsertEvent(event *models.Event) error
	EnsureCategory(category *models.Category) error
	EnsureSource(source *models.CitationSource) error
	LinkEventCategory(eventID, categoryID string) error
	LinkEventSource(eventID, sourceID string) error
	ReplaceEventGeometries(eventID string, geometries []models.EventGeometry) error
}

// SyncStore opens the single transaction a sync run executes in
type SyncStore interface {
	RunInTransaction(ctx context.Context, fn func(tx SyncTx) error) error
}

// NewSyncStore creates the gorm-backed sync store
func NewSyncStore(db *gorm.DB) SyncStore {
	return &gormSyncStore{db: db}
}

type gormSyncStore struct {
	db *gorm.DB
}

func (s *gormSyncStore) RunInTransaction(ctx context.Context, fn func(tx SyncTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSyncTx{tx: tx})
	})
}

type gormSyncTx struct {
	tx *gorm.DB
}

func (t *gormSyncTx) WithSavepoint(fn func(tx SyncTx) error) error {
	return t.tx.Transaction(func(tx *gorm.DB) error {
		return fn(&gormSyncTx{tx: tx})
	})
}

func (t *gormSyncTx) FindAlertID(sourceID int, externalID string) (uint, error) {
	var id uint
	err := t.tx.Model(&models.Alert{}).
		Select("id").
		Where("source_id = ? AND external_id = ?", sourceID, externalID).
		Take(&id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrap(err, "failed to look up alert")
	}
	return id, nil
}

func (t *gormSyncTx) CreateAlert(alert *models.Alert) error {
	return errors.Wrap(t.tx.Create(alert).Error, "failed to create alert")
}

// UpdateAlertDescriptive updates only the mutable descriptive fields.
// Country, coordinates and type are set once at insert and never
// overwritten on conflict.
func (t *gormSyncTx) UpdateAlertDescriptive(id uint, title string, description *string, updatedAt time.Time) error {
	err := t.tx.Model(&models.Alert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":       title,
			"description": description,
			"updated_at":  updatedAt,
		}).Error
	return errors.Wrap(err, "failed to update alert")
}

func (t *gormSyncTx) UpsertEvent(event *models.Event) error {
	err := t.tx.
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "link", "closed", "updated_at"}),
		}).
		Create(event).Error
	return errors.Wrap(err, "failed to upsert event")
}

func (t *gormSyncTx) EnsureCategory(category *models.Category) error {
	err := t.tx.Clauses(onConflictDoNothing()).Create(category).Error
	return errors.Wrap(err, "failed to ensure category")
}

func (t *gormSyncTx) EnsureSource(source *models.CitationSource) error {
	err := t.tx.Clauses(onConflictDoNothing()).Create(source).Error
	return errors.Wrap(err, "failed to ensure source")
}

func (t *gormSyncTx) LinkEventCategory(eventID, categoryID string) error {
	err := t.tx.Exec(
		"INSERT INTO event_categories (event_id, category_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		eventID, categoryID,
	).Error
	return errors.Wrap(err, "failed to link event category")
}

func (t *gormSyncTx) LinkEventSource(eventID, sourceID string) error {
	err := t.tx.Exec(
		"INSERT INTO event_sources (event_id, citation_source_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		eventID, sourceID,
	).Error
	return errors.Wrap(err, "failed to link event source")
}

// ReplaceEventGeometries deletes and reinserts every geometry row for the
// event. Geometry sync is idempotent per run, not incremental.
func (t *gormSyncTx) ReplaceEventGeometries(eventID string, geometries []models.EventGeometry) error {
	if err := t.tx.Where("event_id = ?", eventID).Delete(&models.EventGeometry{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete event geometries")
	}
	if len(geometries) == 0 {
		return nil
	}
	if err := t.tx.Create(&geometries).Error; err != nil {
		return errors.Wrap(err, "failed to insert event geometries")
	}
	return nil
}

// onConflictDoNothing is the insert-if-absent clause shared by reference
// data writes
func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}
