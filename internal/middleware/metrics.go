package middleware

import (
	"strconv"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/infra"

	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency per route template, so
// /products/1 and /products/2 share a series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		infra.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		infra.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
