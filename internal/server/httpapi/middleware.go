package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request and records its latency.
func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	elapsed := time.Since(start)

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()

	s.metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())
	s.logger.Info(c.Request.Context(), "http.request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
		"remote", c.ClientIP(),
		"user_agent", c.Request.UserAgent(),
	)
}
