package feeds

import "strings"

// MapCategory normalizes a raw feed category or event-type label to a
// canonical slug. Unrecognized labels map to "other".
func MapCategory(raw string) string {
	if raw == "" {
		return "other"
	}
	normalized := strings.ToLower(raw)

	switch {
	case strings.Contains(normalized, "earthquake"):
		return "earthquake"
	case strings.Contains(normalized, "flood"):
		return "flood"
	case strings.Contains(normalized, "cyclone"),
		strings.Contains(normalized, "hurricane"),
		strings.Contains(normalized, "typhoon"):
		return "cyclone"
	case strings.Contains(normalized, "fire"):
		return "wildfire"
	case strings.Contains(normalized, "volcano"):
		return "volcano"
	case strings.Contains(normalized, "storm"):
		return "storm"
	case strings.Contains(normalized, "landslide"):
		return "landslide"
	case strings.Contains(normalized, "drought"):
		return "drought"
	case strings.Contains(normalized, "tsunami"):
		return "tsunami"
	}

	return "other"
}

// MapSeverity derives the severity bucket from a GDACS alert level.
func MapSeverity(alertLevel string) string {
	switch strings.ToLower(strings.TrimSpace(alertLevel)) {
	case "red":
		return "severe"
	case "orange":
		return "moderate"
	case "green":
		return "minor"
	default:
		return "unknown"
	}
}
