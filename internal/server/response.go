package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/internal/restclient"
)

func respondError(c *gin.Context, status int, code, message string) {
	var body restclient.ErrorBody
	body.Error.Code = code
	body.Error.Message = message
	c.JSON(status, body)
}

// requestLogger logs one line per request and echoes X-Request-Id,
// generating one when the caller sent none.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-Id", reqID)

		c.Next()

		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", reqID,
		)
	}
}
