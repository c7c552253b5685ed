package geo

import (
	"strconv"
	"strings"
)

// Valid coordinate bounds.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lon float64
}

// Clamp forces v into [min, max]. NaN-producing input is handled upstream
// by parseFloatOrZero, so v is always a real number here.
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampLat forces a latitude into [-90, 90].
func ClampLat(v float64) float64 {
	return Clamp(v, MinLat, MaxLat)
}

// ClampLon forces a longitude into [-180, 180].
func ClampLon(v float64) float64 {
	return Clamp(v, MinLon, MaxLon)
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
// Malformed coordinates must never block a feed batch, so there is no
// error path.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParsePair parses separate lat/lon strings into a clamped point.
// Non-numeric input yields 0 for that coordinate.
func ParsePair(lat, lon string) Point {
	return Point{
		Lat: ClampLat(parseFloatOrZero(lat)),
		Lon: ClampLon(parseFloatOrZero(lon)),
	}
}

// ParsePointString parses a space-separated "lat lon" string, the georss
// convention. Missing or malformed parts default to (0,0).
func ParsePointString(s string) Point {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) < 2 {
		return Point{}
	}
	return ParsePair(parts[0], parts[1])
}

// ClampPoint forces an already-numeric pair into valid bounds.
func ClampPoint(lat, lon float64) Point {
	return Point{Lat: ClampLat(lat), Lon: ClampLon(lon)}
}
