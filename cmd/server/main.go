package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	bomapp "github.com/erp/bomengine/internal/application/bom"
	catalogapp "github.com/erp/bomengine/internal/application/catalog"
	inventoryapp "github.com/erp/bomengine/internal/application/inventory"
	productionapp "github.com/erp/bomengine/internal/application/production"
	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/infrastructure/cache"
	"github.com/erp/bomengine/internal/infrastructure/config"
	"github.com/erp/bomengine/internal/infrastructure/event"
	"github.com/erp/bomengine/internal/infrastructure/lock"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/persistence"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/erp/bomengine/internal/interfaces/http/handler"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const version = "1.0.0"

//	@title			BOM Engine API
//	@version		1.0
//	@description	Bill of materials planning, production orders and batch inventory.
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting BOM engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		// postgres schemas come from cmd/migrate
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.DBName = cfg.Database.DBName
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBPoolMetrics(meterProvider.Meter("bomengine/db"), sqlDB); err != nil {
		log.Fatal("Failed to register database pool metrics", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	idempotency := cache.NewIdempotencyStore(redisClient, log)
	defer func() {
		_ = idempotency.Close()
	}()

	var locker appshared.Locker = lock.NewLocalLocker()
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient, log)
	}

	repos := persistence.NewRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	metrics, err := telemetry.NewProductionMetrics(telemetry.ProductionMetricsConfig{
		Meter:            meterProvider.Meter("bomengine/production"),
		Logger:           log,
		LowStockProvider: persistence.NewGormProductRepository(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize production metrics", zap.Error(err))
	}
	metrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	defer metrics.Stop()

	eventBus := event.NewInMemoryEventBus(log)
	lowStockHandler := catalogapp.NewStockBelowMinimumHandler(log).WithMetrics(metrics)
	eventBus.Subscribe(event.NewJournalHandler(log))
	eventBus.Subscribe(event.NewIdempotentHandler(lowStockHandler, idempotency, cfg.Redis.IdempotencyTTL, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()),
	)

	productService := catalogapp.NewProductService(repos, txScope, log)
	bomService := bomapp.NewService(repos, txScope, bomapp.Options{
		Rounding:        bom.RoundingPolicy(cfg.Production.RoundingPolicy),
		OverheadPercent: decimal.NewFromFloat(cfg.Production.OverheadPercent),
	}, log)
	batchService := inventoryapp.NewBatchService(repos, txScope,
		inventory.AllocationStrategy(cfg.Production.AllocationStrategy), log)
	countService := inventoryapp.NewCountService(repos, txScope, log)
	productionService := productionapp.NewService(repos, txScope,
		bomService.Planner(), bomService.Estimator(), batchService,
		productionapp.Options{
			CompletionPolicy:    productionapp.CompletionPolicy(cfg.Production.CompletionPolicy),
			AllowOverageDefault: cfg.Production.AllowOverageDefault,
			LockTTL:             cfg.Production.LockTTL,
			IdempotencyTTL:      cfg.Redis.IdempotencyTTL,
		}, log)
	productionService.SetLocker(locker)
	productionService.SetIdempotencyStore(idempotency)

	productService.SetEventPublisher(eventBus)
	productService.SetMetrics(metrics)
	bomService.SetEventPublisher(eventBus)
	bomService.SetMetrics(metrics)
	batchService.SetEventPublisher(eventBus)
	batchService.SetMetrics(metrics)
	countService.SetEventPublisher(eventBus)
	countService.SetMetrics(metrics)
	productionService.SetEventPublisher(eventBus)
	productionService.SetMetrics(metrics)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		MeterProvider:  meterProvider,
		Logger:         log,
	})

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	handler.NewSystemHandler(cfg.App.Name, version, checks).RegisterRoutes(engine)

	router.NewRouter(engine).
		RegisterDomains(
			handler.NewProductHandler(productService),
			handler.NewBOMHandler(bomService),
			handler.NewProductionHandler(productionService),
			handler.NewBatchHandler(batchService),
			handler.NewCountHandler(countService),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
