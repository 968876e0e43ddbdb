package middleware

import (
	"fmt"

	"guild-loot/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics counts requests by route template and status class.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%dxx", c.Writer.Status()/100)).Inc()
	}
}
