package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/streambill/streambill/internal/types"
)

// RequestIDMiddleware attaches a request id to the context and response so
// log lines from one request can be correlated.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Request-ID", requestID)

	c.Next()
}
