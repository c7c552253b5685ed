package feeds

import (
	"encoding/json"
	"time"

	"example.com/disasterwatch/services/alerts/internal/geo"
)

// AlertRecord is the normalized intermediate form a feed adapter produces
// for a single alert, independent of the upstream schema.
type AlertRecord struct {
	ExternalID  string
	Title       string
	Description string
	EventType   string
	AlertLevel  string
	Severity    string
	Country     string
	ISO3        string
	Point       geo.Point
	Link        string
	EventTime   *time.Time
	ExpiresAt   *time.Time
}

// EventRecord is the normalized form of an EONET natural event.
type EventRecord struct {
	ID          string
	Title       string
	Description string
	Link        string
	Closed      *time.Time
	Categories  []CategoryRecord
	Sources     []SourceRecord
	Geometries  []GeometryRecord
}

// CategoryRecord is an event category reference.
type CategoryRecord struct {
	ID    string
	Title string
	Slug  string
}

// SourceRecord is an upstream citation attached to an event.
type SourceRecord struct {
	ID  string
	URL string
}

// GeometryRecord is one time-stamped geometry entry of an event. Point
// geometries carry a parsed, clamped coordinate; other geometry types
// keep the raw coordinate array.
type GeometryRecord struct {
	Date           time.Time
	Type           string
	Point          *geo.Point
	Coordinates    json.RawMessage
	MagnitudeValue *float64
	MagnitudeUnit  *string
}

// feedTimeLayouts covers the date formats the upstream feeds emit.
var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02T15:04:05Z",
}

// parseFeedTime parses a feed timestamp, returning nil when the value is
// empty or in none of the known layouts. Bad dates never block an item.
func parseFeedTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
