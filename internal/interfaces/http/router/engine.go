package router

import (
	"github.com/erp/bomengine/internal/infrastructure/config"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineConfig describes the middleware chain of the API engine
type EngineConfig struct {
	HTTP           config.HTTPConfig
	ServiceName    string
	TracingEnabled bool
	MeterProvider  *telemetry.MeterProvider
	Logger         *zap.Logger
}

// NewEngine builds a gin engine with the standard middleware chain:
// recovery, tracing, request logging, operator capture, CORS, metrics and
// body limits. Routes are added by the caller.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Operator())
	engine.Use(middleware.TracingAttributeInjector())
	if h := corsHandler(cfg.HTTP); h != nil {
		engine.Use(h)
	}
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		ServiceName:   cfg.ServiceName,
		Enabled:       cfg.MeterProvider != nil,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	return engine
}

// corsHandler returns nil when no origin is configured, which keeps
// cross-origin requests blocked
func corsHandler(httpCfg config.HTTPConfig) gin.HandlerFunc {
	if len(httpCfg.CORSAllowOrigins) == 0 {
		return nil
	}

	corsConfig := cors.DefaultConfig()
	allowAll := false
	for _, origin := range httpCfg.CORSAllowOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = httpCfg.CORSAllowOrigins
	}
	if len(httpCfg.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = httpCfg.CORSAllowMethods
	}
	corsConfig.AddAllowHeaders(httpCfg.CORSAllowHeaders...)
	corsConfig.AddExposeHeaders(logger.RequestIDHeader)
	return cors.New(corsConfig)
}
