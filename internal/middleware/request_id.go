package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/pkg/response"
)

const ContextRequestIDKey = "request_id"

// RequestID tags every request with an id and logs the api code of any
// request that was answered with a failure envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
		if code, ok := response.FailedCode(c); ok {
			logutil.GetLogger(c.Request.Context()).Info("request rejected",
				zap.String("request_id", reqID),
				zap.String("path", c.Request.URL.Path),
				zap.Int("code", code),
			)
		}
	}
}
