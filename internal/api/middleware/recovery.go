package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"storesync/internal/logger"
)

// Recovery turns a handler panic into a JSON 500 and logs it with the
// request it came from. gin itself drops panics from clients that hung up;
// its own stderr output is disabled so everything goes through logger.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		entry := logger.
			With("method", c.Request.Method).
			With("path", c.Request.URL.Path).
			With("client_ip", c.ClientIP())
		if gin.IsDebugging() {
			entry = entry.With("stack", string(debug.Stack()))
		}
		entry.Error("Panic recovered: %v", recovered)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
