package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route. Raw paths of
// unknown URLs never become label values.
const unmatchedRoute = "unmatched"

// Metrics records each request against its route template, for example
// /deletmyclass/:id. Paths in skip, such as the scrape endpoint, are not
// recorded.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
