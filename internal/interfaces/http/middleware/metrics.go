package middleware

import (
	"strconv"
	"time"

	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
)

type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	ServiceName   string
	Enabled       bool
}

func DefaultHTTPMetricsConfig() HTTPMetricsConfig {
	return HTTPMetricsConfig{ServiceName: "bomengine", Enabled: true}
}

var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000}

type httpInstruments struct {
	total    *telemetry.Counter
	latency  *telemetry.Histogram
	reqSize  *telemetry.Histogram
	respSize *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.total, err = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests by method, route and status", "{request}"); err != nil {
		return nil, err
	}
	if in.latency, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name: "http_server_request_duration_seconds", Description: "HTTP request latency",
		Unit: "s", Boundaries: telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if in.reqSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name: "http_server_request_size_bytes", Description: "HTTP request body size",
		Unit: "By", Boundaries: sizeBuckets,
	}); err != nil {
		return nil, err
	}
	if in.respSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name: "http_server_response_size_bytes", Description: "HTTP response body size",
		Unit: "By", Boundaries: sizeBuckets,
	}); err != nil {
		return nil, err
	}
	if in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics records request metrics on the provider's "http.server" meter.
// It is a pass-through when metrics are off.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter is HTTPMetrics on an explicit meter. Routes are
// labelled by their pattern (/api/v1/boms/:id) to keep cardinality bounded.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	in, err := newHTTPInstruments(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		c.Next()
		in.inFlight.Add(ctx, -1)

		method := telemetry.AttrHTTPMethod.String(c.Request.Method)
		route := telemetry.AttrHTTPRoute.String(getRoutePattern(c))
		status := c.Writer.Status()

		in.total.Inc(ctx, method, route, telemetry.AttrHTTPStatusCode.Int(status))
		in.latency.RecordDuration(ctx, time.Since(start), method, route,
			telemetry.AttrHTTPStatusClass.String(HTTPMetricsStatusGroup(status)))
		if n := c.Request.ContentLength; n > 0 {
			in.reqSize.Record(ctx, float64(n), method, route)
		}
		if n := c.Writer.Size(); n > 0 {
			in.respSize.Record(ctx, float64(n), method, route)
		}
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// HTTPMetricsStatusGroup maps 422 to "4xx" and so on.
func HTTPMetricsStatusGroup(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 200:
		return strconv.Itoa(status/100) + "xx"
	default:
		return "other"
	}
}
