package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"example.com/disasterwatch/services/alerts/internal/geo"
)

// GeoIPClient resolves a client IP to an ISO3 country code. Lookups are
// best effort; any failure yields an empty code and the caller renders
// the unordered view.
type GeoIPClient struct {
	url        string
	httpClient *http.Client
}

func NewGeoIPClient(url string) *GeoIPClient {
	return &GeoIPClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type geoIPResponse struct {
	CountryCode string `json:"countryCode"`
}

// Lookup returns the viewer's ISO3 code, or "" when the service is
// disabled, the IP is private, or the lookup fails.
func (c *GeoIPClient) Lookup(ctx context.Context, ip string) string {
	if c == nil || c.url == "" || ip == "" {
		return ""
	}

	iso2, err := c.lookupISO2(ctx, ip)
	if err != nil {
		return ""
	}
	return geo.ISO2ToISO3(iso2)
}

func (c *GeoIPClient) lookupISO2(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.url, ip), nil)
	if err != nil {
		return "", errors.Wrap(err, "building geoip request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling geoip service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("geoip service returned status %d", resp.StatusCode)
	}

	var body geoIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decoding geoip response")
	}
	return body.CountryCode, nil
}
