package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/LovationAdmin/travel-planner-api/config"
	"github.com/LovationAdmin/travel-planner-api/handlers"
	"github.com/LovationAdmin/travel-planner-api/logger"
	"github.com/LovationAdmin/travel-planner-api/middleware"
	"github.com/LovationAdmin/travel-planner-api/routes"
	"github.com/LovationAdmin/travel-planner-api/services"
	"github.com/LovationAdmin/travel-planner-api/utils"
)

const version = "1.0.0"

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	log := logger.New(cfg.Production)
	if envErr != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	utils.IsProduction = cfg.Production
	utils.RegisterSecret(cfg.Secrets()...)

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: utils.GetEnvMode(),
			Release:     "travel-planner-api@" + version,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Sentry disabled")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, dialect, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Str("database", utils.MaskString(cfg.DatabaseURL)).Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	log.Info().Str("dialect", string(dialect)).Msg("Database connected successfully")

	if err := config.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	planner, wsHandler, err := buildPlanner(cfg, db, dialect, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise planner")
	}
	defer wsHandler.Close()

	go scheduleCacheCleaning(planner, log)

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	allowedOrigins := cfg.AllowedOrigins()
	log.Info().Strs("origins", allowedOrigins).Msg("CORS: Allowing origins")

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery())

	stop := make(chan struct{})
	defer close(stop)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	limiter.StartCleanup(stop)
	planLimiter := middleware.NewRateLimiter(cfg.PlanRateLimit, time.Minute)
	planLimiter.StartCleanup(stop)
	router.Use(limiter.Middleware())

	v1 := router.Group("/api/v1")
	{
		routes.SetupPlannerRoutes(v1, planner, planLimiter)
		routes.SetupWSRoutes(v1, wsHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": version,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	utils.LogStartup(log, "travel-planner-api", version, cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

func buildPlanner(cfg config.Config, db *sql.DB, dialect config.Dialect, log zerolog.Logger) (*services.TripPlannerService, *handlers.WSHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	llm, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:      cfg.GoogleAPIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      log.With().Str("component", "gemini").Logger(),
	})
	if err != nil {
		return nil, nil, err
	}

	search := services.NewSerperService(cfg.SerperAPIKey, services.SerperOptions{
		Retry:  services.DefaultRetryConfig(),
		Logger: log.With().Str("component", "serper").Logger(),
	})
	images := services.NewImageSearchService(cfg.SerpAPIKey, services.ImageSearchOptions{
		Limit:  cfg.ImageLimit,
		Retry:  services.DefaultRetryConfig(),
		Logger: log.With().Str("component", "images").Logger(),
	})

	wsHandler := handlers.NewWSHandler(log.With().Str("component", "ws").Logger())

	planner := services.NewTripPlannerService(services.PlannerOptions{
		Store:    services.NewSQLPlanStore(db, dialect),
		Crew:     services.NewTravelCrew(llm, search, log.With().Str("component", "crew").Logger()),
		Images:   images,
		Notifier: wsHandler,
		CacheTTL: cfg.PlanCacheTTL(),
		Logger:   log.With().Str("component", "planner").Logger(),
	})
	return planner, wsHandler, nil
}

func scheduleCacheCleaning(planner *services.TripPlannerService, log zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	cleanExpiredPlans(planner, log)
	for range ticker.C {
		cleanExpiredPlans(planner, log)
	}
}

func cleanExpiredPlans(planner *services.TripPlannerService, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, err := planner.CleanExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Plan cleanup failed")
		return
	}
	if rows > 0 {
		log.Info().Int64("rows", rows).Msg("Cleaned expired plans")
	}
}
