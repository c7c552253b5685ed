package middleware

import (
	"strconv"

	"example.com/disasterwatch/services/alerts/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics returns a gin middleware that counts requests by route
func Metrics(collector *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
	}
}
