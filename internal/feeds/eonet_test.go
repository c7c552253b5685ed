package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eonetFixture = `{
  "title": "EONET Events",
  "events": [
    {
      "id": "EONET_6513",
      "title": "Wildfire in Alberta, Canada",
      "description": "",
      "link": "https://eonet.gsfc.nasa.gov/api/v3/events/EONET_6513",
      "closed": null,
      "categories": [{"id": "wildfires", "title": "Wildfires"}],
      "sources": [{"id": "NASA_DISP", "url": "https://disasters.nasa.gov/"}],
      "geometry": [
        {"magnitudeValue": null, "magnitudeUnit": null, "date": "2025-08-18T00:00:00Z", "type": "Point", "coordinates": [-116.18, 57.53]},
        {"magnitudeValue": null, "magnitudeUnit": null, "date": "2025-08-19T00:00:00Z", "type": "Point", "coordinates": [-116.21, 57.55]}
      ]
    },
    {
      "id": "EONET_6490",
      "title": "Tropical Storm Podul",
      "closed": "2025-08-14T06:00:00Z",
      "categories": [{"id": "severeStorms", "title": "Severe Storms"}],
      "sources": [{"id": "JTWC", "url": "https://www.metoc.navy.mil/jtwc/jtwc.html"}],
      "geometry": [
        {"magnitudeValue": 65.0, "magnitudeUnit": "kts", "date": "2025-08-11T06:00:00Z", "type": "Point", "coordinates": [141.1, 13.9]}
      ]
    }
  ]
}`

func newEonetTestClient(t *testing.T, handler http.HandlerFunc) *EonetClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEonetClient(config.FeedsConfig{
		EonetURL:     srv.URL,
		FetchTimeout: 2 * time.Second,
		RetryCount:   3,
		RetryDelay:   time.Millisecond,
	})
}

func TestEonetFetchEvents(t *testing.T) {
	client := newEonetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(eonetFixture))
	})

	records, err := client.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	fire := records[0]
	assert.Equal(t, "EONET_6513", fire.ID)
	assert.Equal(t, "Wildfire in Alberta, Canada", fire.Title)
	assert.Nil(t, fire.Closed)
	require.Len(t, fire.Categories, 1)
	assert.Equal(t, "wildfires", fire.Categories[0].ID)
	assert.Equal(t, "wildfire", fire.Categories[0].Slug)
	require.Len(t, fire.Sources, 1)
	assert.Equal(t, "NASA_DISP", fire.Sources[0].ID)

	require.Len(t, fire.Geometries, 2)
	g := fire.Geometries[0]
	assert.Equal(t, "Point", g.Type)
	// EONET coordinates arrive as [lon, lat]
	require.NotNil(t, g.Point)
	assert.Equal(t, geo.Point{Lat: 57.53, Lon: -116.18}, *g.Point)
	assert.Equal(t, time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), g.Date)
	assert.Nil(t, g.MagnitudeValue)
	assert.Nil(t, g.MagnitudeUnit)

	storm := records[1]
	require.NotNil(t, storm.Closed)
	assert.Equal(t, time.Date(2025, 8, 14, 6, 0, 0, 0, time.UTC), *storm.Closed)
	assert.Equal(t, "storm", storm.Categories[0].Slug)
	require.Len(t, storm.Geometries, 1)
	require.NotNil(t, storm.Geometries[0].MagnitudeValue)
	assert.Equal(t, 65.0, *storm.Geometries[0].MagnitudeValue)
	require.NotNil(t, storm.Geometries[0].MagnitudeUnit)
	assert.Equal(t, "kts", *storm.Geometries[0].MagnitudeUnit)
}

func TestEonetFetchEventsDefaultLink(t *testing.T) {
	client := newEonetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[{"id":"EONET_1","title":"Something"}]}`))
	})

	records, err := client.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://eonet.gsfc.nasa.gov/event/EONET_1", records[0].Link)
}

func TestEonetFetchRetriesOnFailure(t *testing.T) {
	var calls int32
	client := newEonetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"events":[]}`))
	})

	records, err := client.FetchEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEonetFetchGivesUpAfterRetriesExhausted(t *testing.T) {
	var calls int32
	client := newEonetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchEvents(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEonetFetchStopsOnContextCancel(t *testing.T) {
	client := newEonetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchEvents(ctx)
	assert.Error(t, err)
}

func TestEonetFetchMalformedJSON(t *testing.T) {
	client := newEonetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events": [`))
	})

	_, err := client.FetchEvents(context.Background())
	assert.Error(t, err)
}
