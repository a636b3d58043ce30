package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/wms-platform/heatmap-portal/internal/api/handlers"
	"github.com/wms-platform/heatmap-portal/internal/heatmap"
	"github.com/wms-platform/heatmap-portal/internal/infrastructure/clients"
	"github.com/wms-platform/heatmap-portal/internal/infrastructure/kvstore"
	"github.com/wms-platform/heatmap-portal/internal/navigation"
	"github.com/wms-platform/heatmap-portal/internal/session"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/metrics"
	"github.com/wms-platform/heatmap-portal/pkg/middleware"
	"github.com/wms-platform/heatmap-portal/pkg/resilience"
	"github.com/wms-platform/heatmap-portal/pkg/tracing"
)

const serviceName = "heatmap-portal"

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting heatmap-portal API")

	config := loadConfig()
	ctx := context.Background()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Circuit breakers for the downstream services
	breakers := resilience.NewCircuitBreakerRegistry(logger.Logger, m)

	authClient := clients.NewAuthClient(config.AuthServiceURL, breakers.Get("auth-service"), logger, m)
	warehouseClient := clients.NewWarehouseClient(config.WarehouseServiceURL, breakers.Get("warehouse-service"), logger, m)
	heatmapClient := clients.NewHeatmapClient(config.HeatmapServiceURL, breakers.Get("heatmap-service"), logger, m)

	logger.Info("Service clients initialized",
		"auth_service", config.AuthServiceURL,
		"warehouse_service", config.WarehouseServiceURL,
		"heatmap_service", config.HeatmapServiceURL,
	)

	// Durable session persistence
	kv, err := kvstore.Open(config.KVStorePath, config.KVOrigin, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to open kv store")
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.WithError(err).Error("Failed to close kv store")
		}
	}()

	// Engine state
	sessions := session.New(ctx, authClient, kv, logger, m)
	aggregator := heatmap.NewAggregator(heatmapClient, logger, m)
	heatStore := heatmap.NewStore(aggregator, warehouseClient, config.WarehouseID, logger, m)
	scale := heatmap.NewScale(config.HeatColorCap)
	guard := navigation.NewGuard(navigation.DefaultRoutes())

	sessionHandler := handlers.NewSessionHandler(sessions, guard, logger)
	heatmapHandler := handlers.NewHeatmapHandler(heatStore, scale, logger)

	// Router
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		// The engine serves cached state even when downstreams are degraded
		return nil
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	sessionHandler.RegisterRoutes(api)
	heatmapHandler.RegisterRoutes(api)
	api.GET("/system/breakers", func(c *gin.Context) {
		c.JSON(http.StatusOK, breakers.Status())
	})

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server started", "addr", config.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr          string
	AuthServiceURL      string
	WarehouseServiceURL string
	HeatmapServiceURL   string
	WarehouseID         int64
	HeatColorCap        float64
	KVStorePath         string
	KVOrigin            string
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:          getEnv("SERVER_ADDR", ":8030"),
		AuthServiceURL:      getEnv("AUTH_SERVICE_URL", "http://localhost:8001"),
		WarehouseServiceURL: getEnv("WAREHOUSE_SERVICE_URL", "http://localhost:8002"),
		HeatmapServiceURL:   getEnv("HEATMAP_SERVICE_URL", "http://localhost:8003"),
		WarehouseID:         getEnvInt64("WAREHOUSE_ID", 1),
		HeatColorCap:        getEnvFloat("HEAT_COLOR_CAP", heatmap.DefaultHeatCap),
		KVStorePath:         getEnv("KV_STORE_PATH", "heatmap-portal.db"),
		KVOrigin:            getEnv("KV_ORIGIN", serviceName),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
