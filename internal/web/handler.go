package web

import (
	"context"
	"net/http"
	"strconv"

	"example.com/disasterwatch/services/alerts/internal/models"
	"example.com/disasterwatch/services/alerts/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const dashboardLimit = 20

// AlertStore is the read access the dashboard needs over stored alerts
type AlertStore interface {
	List(ctx context.Context, f repositories.AlertFilter) ([]models.Alert, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Alert, error)
}

// CountryStore lists the known country centroids for the filter dropdown
type CountryStore interface {
	List(ctx context.Context) ([]models.CountryCentroid, error)
}

// Handler renders the server-side dashboard views
type Handler struct {
	alerts       AlertStore
	countries    CountryStore
	geoip        *GeoIPClient
	templateGlob string
}

func NewHandler(alerts AlertStore, countries CountryStore, geoip *GeoIPClient, templateGlob string) *Handler {
	return &Handler{
		alerts:       alerts,
		countries:    countries,
		geoip:        geoip,
		templateGlob: templateGlob,
	}
}

// RegisterRoutes loads the HTML templates and mounts the page routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.LoadHTMLGlob(h.templateGlob)

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	router.GET("/dashboard", h.Dashboard)
	router.GET("/alert/:id", h.AlertDetails)
	router.GET("/map", h.Map)
}

// Dashboard renders the paginated alert table with the severity summary
// cards and country filter
func (h *Handler) Dashboard(c *gin.Context) {
	filter := parseDashboardFilter(c)

	alerts, total, err := h.alerts.List(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts for dashboard")
		c.HTML(http.StatusInternalServerError, "error.tmpl", gin.H{
			"Message": "Failed to load alerts",
		})
		return
	}

	countries, err := h.countries.List(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list countries for dashboard")
		countries = nil
	}

	// Only reorder the natural, unfiltered view; an explicit country
	// filter already reflects the viewer's choice.
	if filter.Country == "" {
		viewerISO3 := h.geoip.Lookup(c.Request.Context(), c.ClientIP())
		alerts = ReorderByCountry(alerts, viewerISO3)
	}

	totalPages := total / int64(filter.Limit)
	if total%int64(filter.Limit) != 0 {
		totalPages++
	}

	c.HTML(http.StatusOK, "dashboard.tmpl", gin.H{
		"Alerts":    alerts,
		"Countries": countries,
		"Severity":  CountSeverities(alerts),
		"Window":    NewPageWindow(filter.Page, filter.Limit, total, totalPages),
		"Filter": gin.H{
			"Country":   filter.Country,
			"Severity":  filter.Severity,
			"EventType": filter.EventType,
		},
	})
}

// AlertDetails renders the single-alert page
func (h *Handler) AlertDetails(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.HTML(http.StatusNotFound, "error.tmpl", gin.H{
			"Message": "Alert not found",
		})
		return
	}

	alert, err := h.alerts.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to load alert"
		if err == repositories.ErrNotFound {
			status = http.StatusNotFound
			message = "Alert not found"
		} else {
			log.Error().Err(err).Uint64("alert_id", id).Msg("Failed to load alert details")
		}
		c.HTML(status, "error.tmpl", gin.H{"Message": message})
		return
	}

	c.HTML(http.StatusOK, "alert.tmpl", gin.H{"Alert": alert})
}

// Map renders the map page; markers load client-side from the map data
// endpoint
func (h *Handler) Map(c *gin.Context) {
	c.HTML(http.StatusOK, "map.tmpl", gin.H{})
}

func parseDashboardFilter(c *gin.Context) repositories.AlertFilter {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	return repositories.AlertFilter{
		Country:   c.Query("country"),
		Severity:  c.Query("severity"),
		EventType: c.Query("type"),
		Page:      page,
		Limit:     dashboardLimit,
	}
}
