package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/api"
	"github.com/outstaffer/content-finder/internal/cache"
	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/intelligence"
	"github.com/outstaffer/content-finder/internal/monitoring"
	"github.com/outstaffer/content-finder/internal/notifications"
	"github.com/outstaffer/content-finder/internal/providers"
	"github.com/outstaffer/content-finder/internal/research"
	"github.com/outstaffer/content-finder/internal/scheduler"
	"github.com/outstaffer/content-finder/internal/storage"
	"github.com/outstaffer/content-finder/internal/voc"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Content Finder API")

	ctx := context.Background()

	store, err := newStorage(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	var providerOpts []providers.Option
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logrus.Warnf("Response cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			providerOpts = append(providerOpts, providers.WithCache(redisCache, cfg.CacheTTL))
		}
	}

	firecrawl := providers.NewFirecrawl(cfg.FirecrawlAPIKey, providerOpts...)
	tavily := providers.NewTavily(cfg.TavilyAPIKey, providerOpts...)
	gemini := providers.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	reddit := providers.NewReddit(cfg.ScrapeCreatorsAPIKey)
	trends := providers.NewTrends(cfg.SerpAPIKey, providerOpts...)

	for _, p := range []providers.Provider{firecrawl, tavily, gemini, reddit, trends} {
		if !p.IsEnabled() {
			logrus.Warnf("%s is not configured, its endpoints will fail", p.GetName())
		}
	}

	segments := config.NewSegmentLoader(cfg.ConfigDir)

	// Sessions report 503 without an LLM instead of failing on the first call
	var sessionLLM providers.LLM
	if gemini.IsEnabled() {
		sessionLLM = gemini
	}

	researchService := research.NewService(firecrawl, firecrawl, gemini, store)
	intelligenceService := intelligence.NewService(sessionLLM, segments, tavily, firecrawl, store)
	vocService := voc.NewService(reddit, trends, gemini, cfg.GeminiProModel, segments, voc.NewHistory(store))

	notificationService := notifications.NewService(cfg)
	monitoringService := monitoring.NewService(segments, vocService, store, notificationService)

	schedulerService := scheduler.NewService(cfg, monitoringService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	apiServer := api.NewServer(api.Dependencies{
		Research:     researchService,
		Intelligence: intelligenceService,
		VOC:          vocService,
		Segments:     segments,
		Runner:       monitoringService,
		CORSOrigins:  cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.StorageInterface, error) {
	if cfg.StorageAccount == "" {
		logrus.Infof("AZURE_STORAGE_ACCOUNT not set, storing data under %s", cfg.LocalStorageDir)
		return storage.NewLocalStorage(cfg.LocalStorageDir)
	}
	return storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
}
