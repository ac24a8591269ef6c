package middleware

import (
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OperatorHeader names the employee or user performing the request
const OperatorHeader = "X-Operator-ID"

// Operator copies a well-formed X-Operator-ID into the request context so
// service logs and spans carry it. Malformed values are ignored.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader(OperatorHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ctx := logger.WithOperator(c.Request.Context(), id.String())
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}
