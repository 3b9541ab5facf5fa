package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saferoads/assessment"
	"saferoads/common"
	"saferoads/config"
	"saferoads/database"
	"saferoads/gemini"
	"saferoads/handlers"
	"saferoads/llm"
	"saferoads/metrics"
	"saferoads/models"
	"saferoads/osm"
	"saferoads/portal"
	"saferoads/rabbitmq"
	"saferoads/service"
	"saferoads/stubllm"
	"saferoads/weather"
	"saferoads/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const cacheCleanupInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using environment")
	}

	// Load configuration
	cfg := config.Load()
	common.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.NewDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	assessor := assessment.NewAssessor(newLLMClient(cfg), nil)
	if !assessor.Configured() {
		log.Warn("GEMINI_API_KEY not configured: /scan will fail and the portal will simulate assessments")
	}

	// Nearby emergency services, cached by grid cell when a TTL is set
	var finder osm.EmergencyFinder = osm.NewClient(cfg.OverpassURL, cfg.HTTPTimeout)
	if cfg.EmergencyCacheTTL > 0 {
		cached := osm.NewCachedEmergencyService(finder, db.DB(), db.Driver(), cfg.EmergencyCacheTTL)
		if err := cached.CreateCacheTable(ctx); err != nil {
			log.Fatalf("Failed to create emergency cache table: %v", err)
		}
		go cleanCacheLoop(ctx, cached)
		finder = cached
	}

	weatherClient := weather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.HTTPTimeout)
	if !cfg.OpenWeatherConfigured() {
		log.Warn("OPENWEATHER_API_KEY not configured: visibility checks will be simulated")
	}

	hub := websocket.NewHub()
	go hub.Run()

	scans := service.NewScanService(assessor, db, cfg.DamageThreshold, cfg.ImageMaxDimension).
		WithBroadcaster(hub)

	if cfg.RabbitMQEnabled() {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQPURL(), cfg.RabbitMQExchange, cfg.RabbitMQEscalationRoutingKey)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to RabbitMQ, escalations will not be published")
		} else {
			defer publisher.Close()
			scans.WithPublisher(publisher)
		}
	}

	// HTTP API
	h := handlers.NewHandlers(cfg, scans, finder, weatherClient, hub)
	router := handlers.NewRouter(h, cfg.CORSAllowOrigins)

	// Citizen and authority portal
	store := portal.NewStore(cfg.DamageThreshold, models.Location{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
		portal.SampleReports(), portal.SampleProjects())
	app := portal.NewApp(store, assessor, finder,
		weather.NewMonitor(weatherClient, weather.NewSimulator(time.Now().UnixNano()), cfg.VisibilityThresholdKm),
		portal.Options{
			EmergencyRadiusMeters: cfg.EmergencyRadiusMeters,
			ImageMaxDimension:     cfg.ImageMaxDimension,
		}).WithBroadcaster(hub)
	portal.NewHandlers(app).Register(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	cancel()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func newLLMClient(cfg *config.Config) llm.Client {
	switch {
	case cfg.LLMProvider == config.ProviderStub:
		log.Info("Using stub inference client")
		return stubllm.NewClient()
	case cfg.GeminiConfigured():
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.HTTPTimeout)
	default:
		return nil
	}
}

func cleanCacheLoop(ctx context.Context, cache *osm.CachedEmergencyService) {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.CleanExpiredCache(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to clean emergency cache")
				continue
			}
			if n > 0 {
				log.Infof("Removed %d expired emergency cache entries", n)
			}
		}
	}
}
