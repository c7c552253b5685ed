package feeds

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"time"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/geo"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// XML namespaces used by the GDACS RSS extension fields.
const (
	nsGdacs  = "http://www.gdacs.org"
	nsGeo    = "http://www.w3.org/2003/01/geo/wgs84_pos#"
	nsGeoRSS = "http://www.georss.org/georss"
)

// GdacsClient fetches and parses the GDACS RSS feed.
type GdacsClient struct {
	url        string
	httpClient *http.Client
}

// NewGdacsClient creates a GDACS feed client with the configured fetch timeout.
func NewGdacsClient(cfg config.FeedsConfig) *GdacsClient {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GdacsClient{
		url:        cfg.GdacsURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type gdacsFeed struct {
	XMLName xml.Name    `xml:"rss"`
	Items   []gdacsItem `xml:"channel>item"`
}

type gdacsGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

type gdacsGeoPoint struct {
	Lat  string `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# lat"`
	Long string `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# long"`
}

type gdacsItem struct {
	Title       string         `xml:"title"`
	Description string         `xml:"description"`
	Link        string         `xml:"link"`
	GUID        gdacsGUID      `xml:"guid"`
	PubDate     string         `xml:"pubDate"`
	EventType   string         `xml:"http://www.gdacs.org eventtype"`
	AlertLevel  string         `xml:"http://www.gdacs.org alertlevel"`
	Country     string         `xml:"http://www.gdacs.org country"`
	ISO3        string         `xml:"http://www.gdacs.org iso3"`
	FromDate    string         `xml:"http://www.gdacs.org fromdate"`
	ToDate      string         `xml:"http://www.gdacs.org todate"`
	GeoPoint    *gdacsGeoPoint `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# Point"`
	GeoRSSPoint string         `xml:"http://www.georss.org/georss point"`
}

// FetchAlerts retrieves the feed and maps every item to an AlertRecord.
// Fetch and parse failures are returned to the caller; the sync service
// decides what a failed pull means for the run.
func (c *GdacsClient) FetchAlerts(ctx context.Context) ([]AlertRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build GDACS request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch GDACS feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GDACS feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read GDACS response")
	}

	var feed gdacsFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, errors.Wrap(err, "failed to parse GDACS feed")
	}

	records := make([]AlertRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		records = append(records, mapGdacsItem(item))
	}

	log.Debug().Int("items", len(records)).Msg("Fetched GDACS feed")
	return records, nil
}

// mapGdacsItem shapes one RSS item into the normalized record form.
func mapGdacsItem(item gdacsItem) AlertRecord {
	externalID := item.GUID.Value
	if externalID == "" {
		externalID = item.Link
	}

	title := item.Title
	if title == "" {
		title = "Untitled Alert"
	}

	eventTime := parseFeedTime(item.FromDate)
	if eventTime == nil {
		eventTime = parseFeedTime(item.PubDate)
	}

	return AlertRecord{
		ExternalID:  externalID,
		Title:       title,
		Description: item.Description,
		EventType:   item.EventType,
		AlertLevel:  item.AlertLevel,
		Severity:    MapSeverity(item.AlertLevel),
		Country:     item.Country,
		ISO3:        item.ISO3,
		Point:       extractPoint(item),
		Link:        item.Link,
		EventTime:   eventTime,
		ExpiresAt:   parseFeedTime(item.ToDate),
	}
}

// extractPoint pulls a coordinate out of the two mutually exclusive field
// shapes GDACS emits: a structured geo:Point, or a space-separated
// georss:point string. Missing or malformed geometry defaults to (0,0)
// rather than failing the item.
func extractPoint(item gdacsItem) geo.Point {
	if item.GeoPoint != nil {
		return geo.ParsePair(item.GeoPoint.Lat, item.GeoPoint.Long)
	}
	if item.GeoRSSPoint != "" {
		return geo.ParsePointString(item.GeoRSSPoint)
	}
	return geo.Point{}
}
