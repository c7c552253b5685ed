package handlers

import (
	"context"
	"net/http"
	"time"

	"example.com/disasterwatch/services/alerts/internal/cache"
	"example.com/disasterwatch/services/alerts/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const countriesCacheKey = "countries:all"

// CountryStore is the read access the handler needs over reference data
type CountryStore interface {
	List(ctx context.Context) ([]models.CountryCentroid, error)
}

// CountriesHandler serves the country centroid reference data
type CountriesHandler struct {
	countries CountryStore
	cache     *cache.RedisCache
}

// NewCountriesHandler creates a new countries handler
func NewCountriesHandler(countries CountryStore, redisCache *cache.RedisCache) *CountriesHandler {
	return &CountriesHandler{countries: countries, cache: redisCache}
}

// RegisterRoutes registers the handler's routes
func (h *CountriesHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/countries", h.ListCountries)
}

// ListCountries returns the full centroid list ordered by name. The
// table is static reference data, so it caches well.
func (h *CountriesHandler) ListCountries(c *gin.Context) {
	var cached []models.CountryCentroid
	if err := h.cache.Get(c.Request.Context(), countriesCacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, DataResponse{Success: true, Data: cached})
		return
	}

	countries, err := h.countries.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list countries")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.cache.Set(c.Request.Context(), countriesCacheKey, countries, time.Hour); err != nil {
		log.Warn().Err(err).Msg("Failed to cache countries")
	}

	c.JSON(http.StatusOK, DataResponse{Success: true, Data: countries})
}
