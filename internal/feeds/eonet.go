package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/geo"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EonetClient fetches and parses the NASA EONET events API.
type EonetClient struct {
	url        string
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
}

// NewEonetClient creates an EONET client with the configured fetch
// timeout and retry policy.
func NewEonetClient(cfg config.FeedsConfig) *EonetClient {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.RetryCount
	if retries <= 0 {
		retries = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return &EonetClient{
		url:        cfg.EonetURL,
		httpClient: &http.Client{Timeout: timeout},
		retryCount: retries,
		retryDelay: delay,
	}
}

type eonetResponse struct {
	Events []eonetEvent `json:"events"`
}

type eonetEvent struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Link        string          `json:"link"`
	Closed      string          `json:"closed"`
	Categories  []eonetCategory `json:"categories"`
	Sources     []eonetSource   `json:"sources"`
	Geometry    []eonetGeometry `json:"geometry"`
}

type eonetCategory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type eonetSource struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type eonetGeometry struct {
	MagnitudeValue *float64        `json:"magnitudeValue"`
	MagnitudeUnit  string          `json:"magnitudeUnit"`
	Date           string          `json:"date"`
	Type           string          `json:"type"`
	Coordinates    json.RawMessage `json:"coordinates"`
}

// FetchEvents retrieves all open and closed events from the API and maps
// them to EventRecords. The fetch step is retried with a fixed delay;
// retries apply to the whole pull, never per item. Failures after the
// final attempt are returned to the caller.
func (c *EonetClient) FetchEvents(ctx context.Context) ([]EventRecord, error) {
	body, err := c.fetchWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	var payload eonetResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to parse EONET response")
	}

	records := make([]EventRecord, 0, len(payload.Events))
	for _, evt := range payload.Events {
		records = append(records, mapEonetEvent(evt))
	}

	log.Debug().Int("events", len(records)).Msg("Fetched EONET events")
	return records, nil
}

// fetchWithRetry performs the HTTP pull, retrying up to the configured
// attempt count with a fixed delay between attempts.
func (c *EonetClient) fetchWithRetry(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retryCount; attempt++ {
		body, err := c.fetchOnce(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt < c.retryCount {
			log.Warn().Err(err).Int("attempt", attempt).Msg("EONET fetch failed, retrying")
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, errors.Wrapf(lastErr, "EONET fetch failed after %d attempts", c.retryCount)
}

func (c *EonetClient) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build EONET request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch EONET events")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("EONET API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read EONET response")
	}
	return body, nil
}

// mapEonetEvent shapes one API event into the normalized record form.
func mapEonetEvent(evt eonetEvent) EventRecord {
	link := evt.Link
	if link == "" {
		link = fmt.Sprintf("https://eonet.gsfc.nasa.gov/event/%s", evt.ID)
	}

	record := EventRecord{
		ID:          evt.ID,
		Title:       evt.Title,
		Description: evt.Description,
		Link:        link,
		Closed:      parseFeedTime(evt.Closed),
	}

	for _, cat := range evt.Categories {
		record.Categories = append(record.Categories, CategoryRecord{
			ID:    cat.ID,
			Title: cat.Title,
			Slug:  MapCategory(cat.Title),
		})
	}

	for _, src := range evt.Sources {
		record.Sources = append(record.Sources, SourceRecord{ID: src.ID, URL: src.URL})
	}

	for _, g := range evt.Geometry {
		record.Geometries = append(record.Geometries, mapEonetGeometry(g))
	}

	return record
}

// mapEonetGeometry parses one geometry entry. Point coordinates arrive as
// [lon, lat]; they are parsed into named, clamped fields so no ordered
// pair convention leaks into storage. Non-point geometries keep the raw
// coordinate array.
func mapEonetGeometry(g eonetGeometry) GeometryRecord {
	record := GeometryRecord{
		Type:           g.Type,
		Coordinates:    g.Coordinates,
		MagnitudeValue: g.MagnitudeValue,
	}
	if g.MagnitudeUnit != "" {
		unit := g.MagnitudeUnit
		record.MagnitudeUnit = &unit
	}
	if t := parseFeedTime(g.Date); t != nil {
		record.Date = *t
	}

	if g.Type == "Point" {
		var coords []float64
		if err := json.Unmarshal(g.Coordinates, &coords); err == nil && len(coords) >= 2 {
			p := geo.ClampPoint(coords[1], coords[0])
			record.Point = &p
		}
	}

	return record
}
