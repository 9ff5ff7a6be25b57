package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"storesync/internal/logger"
)

// Logger writes one entry per request. Probe and scrape paths are skipped.
func Logger(logger *logger.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if skip[path] {
			return
		}

		status := c.Writer.Status()
		line := "%s %s %d %s %s"
		args := []interface{}{c.Request.Method, path, status, time.Since(start), c.ClientIP()}
		switch {
		case status >= 500:
			logger.Error(line, args...)
		case status >= 400:
			logger.Warn(line, args...)
		default:
			logger.Info(line, args...)
		}
	}
}
