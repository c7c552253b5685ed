package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCountryCentroids(t *testing.T) {
	t.Run("parses the bundled data", func(t *testing.T) {
		countries, err := parseCountryCentroids(countryCentroidsCSV)
		require.NoError(t, err)
		require.NotEmpty(t, countries)

		byISO3 := make(map[string]float64, len(countries))
		for _, c := range countries {
			assert.Len(t, c.ISO3, 3)
			assert.NotEmpty(t, c.Name)
			assert.GreaterOrEqual(t, c.Lat, -90.0)
			assert.LessOrEqual(t, c.Lat, 90.0)
			assert.GreaterOrEqual(t, c.Lon, -180.0)
			assert.LessOrEqual(t, c.Lon, 180.0)
			byISO3[c.ISO3] = c.Lat
		}

		assert.Len(t, byISO3, len(countries), "duplicate ISO3 codes in bundled data")
		assert.Contains(t, byISO3, "JPN")
		assert.Contains(t, byISO3, "USA")
	})

	t.Run("rejects malformed rows", func(t *testing.T) {
		_, err := parseCountryCentroids("iso3,name,lat,lon\nUSA,United States,not-a-number,0\n")
		assert.Error(t, err)
	})

	t.Run("rejects empty data", func(t *testing.T) {
		_, err := parseCountryCentroids("iso3,name,lat,lon\n")
		assert.Error(t, err)
	})
}
