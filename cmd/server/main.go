package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/adapters/primary/rest"
	"github.com/willygodx/sunrise-sunset-service/internal/adapters/secondary/geonames"
	"github.com/willygodx/sunrise-sunset-service/internal/config"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
	"github.com/willygodx/sunrise-sunset-service/internal/core/services"
	"github.com/willygodx/sunrise-sunset-service/internal/infrastructure/cache"
	"github.com/willygodx/sunrise-sunset-service/internal/infrastructure/circuitbreaker"
	"github.com/willygodx/sunrise-sunset-service/internal/infrastructure/counter"
	"github.com/willygodx/sunrise-sunset-service/internal/infrastructure/database"
	"github.com/willygodx/sunrise-sunset-service/internal/middleware"
	"github.com/willygodx/sunrise-sunset-service/internal/observability"
	"github.com/willygodx/sunrise-sunset-service/internal/version"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx := context.Background()

	telemetry, err := observability.InitTelemetry(ctx, observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		SampleRate:     cfg.Observability.SampleRate,
	}, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}
	defer func() {
		if telemetry != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			telemetry.Shutdown(shutdownCtx)
		}
	}()

	// PostgreSQL is the source of truth; the service cannot run without it.
	db, err := database.NewPostgresDB(database.Config{
		Host:                  cfg.Database.Host,
		Port:                  cfg.Database.Port,
		User:                  cfg.Database.User,
		Password:              cfg.Database.Password,
		Database:              cfg.Database.Database,
		SSLMode:               cfg.Database.SSLMode,
		MaxConnections:        cfg.Database.MaxConnections,
		MaxIdleConnections:    cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: cfg.Database.ConnectionMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	recordStore := database.NewRecordStore(db, logger)
	countryStore := database.NewCountryStore(db, logger)
	userStore := database.NewUserStore(db)

	// Redis backs the query cache and request counter when enabled; otherwise
	// both fall back to in-process implementations.
	var (
		cacheService   ports.CacheService
		requestCounter ports.RequestCounter
	)

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		redisCache, err := cache.NewRedisCache(redisClient, logger)
		if err != nil {
			logger.Warn("failed to connect to redis, using in-process cache", zap.Error(err))

			cacheService = cache.NewBoundedCache(cfg.Cache.Capacity, logger)
			requestCounter = counter.NewMemoryCounter()
		} else {
			defer redisCache.Close()

			cacheService = redisCache
			requestCounter = counter.NewRedisCounter(redisClient, logger)
		}
	} else {
		cacheService = cache.NewBoundedCache(cfg.Cache.Capacity, logger)
		requestCounter = counter.NewMemoryCounter()
	}

	httpClient := &http.Client{
		Timeout: cfg.Providers.HTTPTimeout,
	}

	geoClient := geonames.NewClient(geonames.Config{
		SunTimesURL: cfg.Providers.SunTimesURL,
		TimeZoneURL: cfg.Providers.TimeZoneURL,
		CountryURL:  cfg.Providers.CountryURL,
		Username:    cfg.Providers.GeoNamesUsername,
		LookupTTL:   cfg.Providers.LookupTTL,
	}, httpClient, logger)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:            "enrichment-providers",
		MaxRequests:     3,
		Interval:        10 * time.Second,
		Timeout:         30 * time.Second,
		FailureRatio:    0.5,
		MinimumRequests: 3,
	}, logger)

	enrichmentClient := &breakerEnrichmentClient{
		client:    geoClient,
		cb:        breaker,
		telemetry: telemetry,
	}

	sunService := services.NewSunInfoService(
		recordStore, countryStore, userStore,
		enrichmentClient, cacheService, requestCounter, logger)

	sunHandler := rest.NewSunHandler(sunService, logger)

	router := mux.NewRouter()

	if telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(telemetry, logger)
		router.Use(obsMiddleware.Tracing)
		router.Use(obsMiddleware.Metrics)
		router.Use(obsMiddleware.Logging)
	}

	router.HandleFunc("/", rootHandler).Methods(http.MethodGet)
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/health/live", livenessHandler).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", readinessHandler(db)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/stats", statsHandler(breaker, requestCounter)).Methods(http.MethodGet)

	sunHandler.Register(router)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting sunrise-sunset service",
			zap.String("port", cfg.Server.Port),
			zap.String("version", version.Get().Version),
			zap.String("environment", cfg.Server.Environment))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{
		"service": "sunrise-sunset-service",
		"endpoints": {
			"GET /": "This page",
			"GET /health": "Health check",
			"GET /health/live": "Liveness probe",
			"GET /health/ready": "Readiness probe",
			"GET /sun-info?userId=ID&lat=LAT&lon=LON&date=YYYY-MM-DD": "Resolve sunrise and sunset for a coordinate",
			"GET /records": "List records",
			"POST /records": "Create a record",
			"POST /records/bulk": "Create many records",
			"PUT /records/{id}": "Update a record",
			"DELETE /records/{id}": "Delete a record",
			"GET /records/{id}/users": "List users that queried a record",
			"GET /records/sunrise-hour/{hour}": "List records by sunrise hour",
			"GET /records/sunset-hour/{hour}": "List records by sunset hour",
			"GET /metrics": "Prometheus metrics",
			"GET /stats": "Service statistics"
		}
	}`))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"sunrise-sunset-service","version":%q}`,
		version.Get().Version)
}

func livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func readinessHandler(db *database.PostgresDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := true

		if err := db.Ping(); err != nil {
			ready = false
		}

		status := http.StatusOK

		if !ready {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"ready":%t}`, ready)
	}
}

func statsHandler(breaker *circuitbreaker.Breaker, requestCounter ports.RequestCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := requestCounter.Total(r.Context())
		if err != nil {
			total = -1
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"requests_total":%d,"circuit_breaker":%v}`, total, breaker.Stats())
	}
}

// breakerEnrichmentClient guards the remote provider calls with a circuit
// breaker and records each attempt as a metric. CountryName is a local table
// lookup and passes through untouched.
type breakerEnrichmentClient struct {
	client    *geonames.Client
	cb        *circuitbreaker.Breaker
	telemetry *observability.Telemetry
}

func (c *breakerEnrichmentClient) SunTimes(ctx context.Context, lat, lon float64, date time.Time) (*ports.SunTimes, error) {
	var result *ports.SunTimes

	err := c.cb.Execute(ctx, "sun-times", func() error {
		var err error
		result, err = c.client.SunTimes(ctx, lat, lon, date)
		return err
	})

	c.record(ctx, "sun-times", err)

	return result, err
}

func (c *breakerEnrichmentClient) TimeZoneID(ctx context.Context, lat, lon float64) (string, error) {
	var result string

	err := c.cb.Execute(ctx, "time-zone", func() error {
		var err error
		result, err = c.client.TimeZoneID(ctx, lat, lon)
		return err
	})

	c.record(ctx, "time-zone", err)

	return result, err
}

func (c *breakerEnrichmentClient) CountryCode(ctx context.Context, lat, lon float64) (string, error) {
	var result string

	err := c.cb.Execute(ctx, "country-code", func() error {
		var err error
		result, err = c.client.CountryCode(ctx, lat, lon)
		return err
	})

	c.record(ctx, "country-code", err)

	return result, err
}

func (c *breakerEnrichmentClient) CountryName(code string) string {
	return c.client.CountryName(code)
}

func (c *breakerEnrichmentClient) record(ctx context.Context, provider string, err error) {
	if c.telemetry != nil {
		c.telemetry.RecordEnrichmentCall(ctx, provider, err)
	}
}
