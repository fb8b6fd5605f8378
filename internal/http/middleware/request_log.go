package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agroyield-backend/internal/platform/ctxutil"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

// RequestLogger writes one line per request, at warn for 4xx and error for 5xx.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if b := BackendFromPath(route); b != "" {
			kv = append(kv, "backend", b)
		}
		if msg := c.Errors.ByType(gin.ErrorTypeAny).Last(); msg != nil {
			kv = append(kv, "error", msg.Error())
		}

		switch {
		case status >= 500:
			log.Error("request failed", kv...)
		case status >= 400:
			log.Warn("request rejected", kv...)
		default:
			log.Debug("request served", kv...)
		}
	}
}

// BackendFromPath extracts b from /api/{b}/records routes.
func BackendFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		return ""
	}
	b, _, _ := strings.Cut(rest, "/")
	return b
}
