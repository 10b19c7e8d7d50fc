package main

import (
	"net/http"
	"os"

	"savor-core-square-layer/internal/application"
	"savor-core-square-layer/internal/infrastructure/api"
	"savor-core-square-layer/internal/infrastructure/cache"
	"savor-core-square-layer/internal/infrastructure/config"
	"savor-core-square-layer/internal/infrastructure/persistence"
	"savor-core-square-layer/internal/infrastructure/square"
	"savor-core-square-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Connect to Postgres and migrate the schema
	db, err := persistence.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := persistence.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Ephemeral progress cache: redis when configured, in-process otherwise
	var progressCache ports.ProgressCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisProgressCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		progressCache = redisCache
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, using in-process progress cache")
		progressCache = cache.NewMemoryProgressCache()
	}

	// Initialize repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db)
	itemRepo := persistence.NewGormItemRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	priceHistoryRepo := persistence.NewGormPriceHistoryRepository(db)

	// Initialize Square client and token management
	squareClient := square.NewClient(cfg.Square.BaseURL, cfg.Square.ClientID, cfg.Square.ClientSecret, logger)
	tokenManager := square.NewTokenManager(squareClient, integrationRepo, logger)

	// Initialize application services
	progressStore := application.NewProgressStore(integrationRepo, progressCache, logger)
	locationRegistry := application.NewLocationRegistry(squareClient, tokenManager, integrationRepo, logger)
	catalogReconciler := application.NewCatalogReconciler(squareClient, tokenManager, itemRepo, priceHistoryRepo, progressStore, logger)
	orderIngester := application.NewOrderIngester(squareClient, tokenManager, orderRepo, itemRepo, progressStore, cfg.Square, logger)
	syncService := application.NewSyncService(integrationRepo, tokenManager, locationRegistry, catalogReconciler, orderIngester, progressStore, progressCache, logger)

	// Optional periodic sync
	if cfg.SyncCron != "" {
		scheduler, err := application.NewScheduler(cfg.SyncCron, integrationRepo, syncService, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("cron", cfg.SyncCron).Msg("Invalid SYNC_CRON expression")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	syncHandler := api.NewSyncHandler(syncService, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(api.MerchantIDMiddleware(logger))

	// Public routes (no merchant ID required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Routes requiring merchant ID
	r.Post("/api/v1/square/sync", syncHandler.TriggerSync)
	r.Get("/api/v1/square/sync/status", syncHandler.SyncStatus)
	r.Delete("/api/v1/square/integration", syncHandler.Disconnect)

	logger.Info().
		Str("port", cfg.Port).
		Str("square_env", cfg.Square.Environment).
		Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
