package middleware

import (
	"github.com/gin-gonic/gin"

	"oracle/internal/pkg/id"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request id to every request, reusing the caller's
// header value when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = id.New()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}
