package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"example.com/disasterwatch/services/alerts/internal/cache"
	"example.com/disasterwatch/services/alerts/internal/models"
	"example.com/disasterwatch/services/alerts/internal/repositories"
	"example.com/disasterwatch/services/alerts/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Listing defaults matching the original feed dashboard behavior.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

const mapDataCacheKey = "alerts:map"

// AlertStore is the read access the handler needs over stored alerts
type AlertStore interface {
	List(ctx context.Context, f repositories.AlertFilter) ([]models.Alert, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Alert, error)
	ListForMap(ctx context.Context) ([]models.Alert, error)
}

// SyncTrigger starts a sync run on demand
type SyncTrigger interface {
	SyncAlerts(ctx context.Context) (services.AlertSyncResult, error)
}

// AlertsHandler handles alert-related HTTP requests
type AlertsHandler struct {
	alerts AlertStore
	syncer SyncTrigger
	cache  *cache.RedisCache
}

// NewAlertsHandler creates a new alerts handler
func NewAlertsHandler(alerts AlertStore, syncer SyncTrigger, redisCache *cache.RedisCache) *AlertsHandler {
	return &AlertsHandler{
		alerts: alerts,
		syncer: syncer,
		cache:  redisCache,
	}
}

// RegisterRoutes registers the handler's routes
func (h *AlertsHandler) RegisterRoutes(api *gin.RouterGroup) {
	alerts := api.Group("/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.GET("/sync", h.TriggerSync)
		alerts.GET("/map/data", h.MapData)
		alerts.GET("/:id", h.GetAlert)
	}
}

// ParseAlertFilter reads pagination and equality filters from the query
// string. Absent filters stay empty and are omitted from the query, not
// matched against NULL.
func ParseAlertFilter(c *gin.Context) repositories.AlertFilter {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	if err != nil || page < 1 {
		page = DefaultPage
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}

	return repositories.AlertFilter{
		Country:   c.Query("country"),
		Severity:  c.Query("severity"),
		EventType: c.Query("type"),
		Page:      page,
		Limit:     limit,
	}
}

// ListAlerts returns one page of alerts ordered by event time descending
func (h *AlertsHandler) ListAlerts(c *gin.Context) {
	filter := ParseAlertFilter(c)

	alerts, total, err := h.alerts.List(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Success:    true,
		Data:       alerts,
		Pagination: NewPagination(filter, total),
	})
}

// GetAlert returns a single alert by ID
func (h *AlertsHandler) GetAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Alert not found"})
		return
	}

	alert, err := h.alerts.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Alert not found"})
			return
		}
		log.Error().Err(err).Msg("Failed to get alert")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, DataResponse{Success: true, Data: alert})
}

// MapData returns every located alert, unfiltered and unpaginated
func (h *AlertsHandler) MapData(c *gin.Context) {
	var cached []models.Alert
	if err := h.cache.Get(c.Request.Context(), mapDataCacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, DataResponse{Success: true, Data: cached})
		return
	}

	alerts, err := h.alerts.ListForMap(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts for map")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.cache.Set(c.Request.Context(), mapDataCacheKey, alerts, 5*time.Minute); err != nil {
		log.Warn().Err(err).Msg("Failed to cache map data")
	}

	c.JSON(http.StatusOK, DataResponse{Success: true, Data: alerts})
}

// TriggerSync runs a sync synchronously and reports its result
func (h *AlertsHandler) TriggerSync(c *gin.Context) {
	result, err := h.syncer.SyncAlerts(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		log.Error().Err(err).Msg("Sync failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	// Stored locations changed; the cached map payload is stale
	if err := h.cache.Delete(c.Request.Context(), mapDataCacheKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate map cache")
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"inserted": result.Inserted,
		"updated":  result.Updated,
	})
}
