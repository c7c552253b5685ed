package feeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapCategory(t *testing.T) {
	cases := map[string]string{
		"Earthquakes":          "earthquake",
		"Severe Storms":        "storm",
		"Wildfires":            "wildfire",
		"Tropical Cyclone":     "cyclone",
		"Hurricane Milton":     "cyclone",
		"Typhoon Season":       "cyclone",
		"Volcanoes":            "volcano",
		"Floods":               "flood",
		"Landslides":           "landslide",
		"Drought":              "drought",
		"Tsunami Warning":      "tsunami",
		"Sea and Lake Ice":     "other",
		"":                     "other",
		"something unexpected": "other",
	}

	for raw, want := range cases {
		assert.Equal(t, want, MapCategory(raw), "category %q", raw)
	}
}

func TestMapSeverity(t *testing.T) {
	assert.Equal(t, "severe", MapSeverity("Red"))
	assert.Equal(t, "moderate", MapSeverity("orange"))
	assert.Equal(t, "minor", MapSeverity(" Green "))
	assert.Equal(t, "unknown", MapSeverity(""))
	assert.Equal(t, "unknown", MapSeverity("Blue"))
}
