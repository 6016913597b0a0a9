package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carenest/carenest/internal/logutil"
)

const HeaderRequestID = "X-Request-Id"

// RequestID tags each request with an id and puts a request-scoped logger on
// the context so every log line downstream carries it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, reqID)

		ctx := c.Request.Context()
		logger := logutil.GetLogger(ctx).With(zap.String("request_id", reqID))
		c.Request = c.Request.WithContext(logutil.WithLogger(ctx, logger))
		c.Next()
	}
}
