package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/patricknguyendev/simplygrocery/config"
	"github.com/patricknguyendev/simplygrocery/internal/analytics"
	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/database"
	"github.com/patricknguyendev/simplygrocery/internal/distance"
	"github.com/patricknguyendev/simplygrocery/internal/handlers"
	"github.com/patricknguyendev/simplygrocery/internal/httpx"
	"github.com/patricknguyendev/simplygrocery/internal/httpx/ratelimit"
	"github.com/patricknguyendev/simplygrocery/internal/ingest"
	"github.com/patricknguyendev/simplygrocery/internal/matcher"
	"github.com/patricknguyendev/simplygrocery/internal/middleware"
	"github.com/patricknguyendev/simplygrocery/internal/optimizer"
	"github.com/patricknguyendev/simplygrocery/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	log.Logger = *logger

	logger.Info().Msg("Starting trip optimization service")

	if cfg.Database.URL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Connect(
		ctx,
		cfg.Database.URL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	cleanup := telemetry.MustInit(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	store := catalog.NewPostgres(database.Pool())

	httpClient := httpx.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		InitialBackoffMs:  cfg.RateLimit.InitialBackoffMs,
		MaxBackoffMs:      cfg.RateLimit.MaxBackoffMs,
	}, cfg.Distance.RequestTimeout)

	provider := distance.NewGoogleProvider(
		cfg.Distance.GoogleAPIKey,
		httpClient,
		distance.Limits{
			MaxOrigins:      cfg.Distance.MaxOrigins,
			MaxDestinations: cfg.Distance.MaxDestinations,
			MaxElements:     cfg.Distance.MaxElements,
		},
		distance.BreakerConfig{
			MaxFailures:  cfg.Distance.BreakerMaxFailures,
			ResetTimeout: cfg.Distance.BreakerResetTimeout,
		},
	)
	if cfg.Distance.GoogleAPIKey == "" {
		logger.Warn().Msg("GOOGLE_MAPS_API_KEY not set, distances will use straight-line estimates")
	}

	productMatcher := matcher.New(store, store, *logger)
	dispatcher := analytics.NewDispatcher(store)

	tripOptimizer := optimizer.New(
		store,
		store,
		store,
		productMatcher,
		provider,
		dispatcher,
		&cfg.Optimizer,
	)

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	tripHandler := handlers.NewTripHandler(tripOptimizer, store, store, store)
	storeHandler := handlers.NewStoreHandler(store)
	productHandler := handlers.NewProductHandler(store)
	seedHandler := handlers.NewSeedHandler(ingest.NewLoader(store))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware())
	{
		api.POST("/trips", tripHandler.Create)
		api.GET("/trips/:id", tripHandler.Get)
		api.GET("/stores", storeHandler.List)
		api.GET("/products/search", productHandler.Search)
	}

	internal := router.Group("/internal")
	internal.Use(middleware.AdminAuthMiddleware(cfg.Auth.AdminAPIKey))
	internal.Use(middleware.ServiceRateLimitMiddleware(50, 100))
	{
		internal.GET("/health", handlers.HealthCheck)

		admin := internal.Group("/admin")
		{
			admin.POST("/seed", seedHandler.Seed)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight analytics writes finish before the pool closes.
	dispatcher.Wait()

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "simplygrocery").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("Request")
	})
}
