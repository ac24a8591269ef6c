// Package middleware provides the HTTP middleware of the production API.
package middleware

import (
	"net/http"

	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxHeaderValueLength caps client supplied values copied onto spans.
const MaxHeaderValueLength = 128

const idempotencyKeyHeader = "Idempotency-Key"

type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig starts a server span per request, named
// "METHOD /route/:pattern".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector tags the server span with request_id, operator_id
// and the client's Idempotency-Key, so a replayed production record can be
// matched to its first attempt. Runs after the request logger and Operator.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			ctx := c.Request.Context()
			for key, value := range map[string]string{
				"request_id":      logger.RequestID(ctx),
				"operator_id":     logger.Operator(ctx),
				"idempotency_key": c.GetHeader(idempotencyKeyHeader),
			} {
				if value != "" {
					span.SetAttributes(attribute.String(key, truncate(value)))
				}
			}
		}
		c.Next()
	}
}

func truncate(s string) string {
	if len(s) > MaxHeaderValueLength {
		return s[:MaxHeaderValueLength]
	}
	return s
}

var spanErrorText = map[int]string{
	http.StatusNotFound:            "Not Found",
	http.StatusConflict:            "Conflict",
	http.StatusUnprocessableEntity: "Business Rule Violation",
}

// SpanErrorMarker fails the server span for any 4xx or 5xx response. otelgin
// alone only flags 5xx, but a shortage (422) or a version conflict (409) is
// what operators look for.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		status := c.Writer.Status()
		if !span.IsRecording() || status < http.StatusBadRequest {
			return
		}
		text, ok := spanErrorText[status]
		switch {
		case status >= http.StatusInternalServerError:
			text = "Internal Server Error"
		case !ok:
			text = "Client Error"
		}
		span.SetStatus(codes.Error, text)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
