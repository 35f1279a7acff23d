package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/ecomdemo/cardsync/app/repository"
	"github.com/ecomdemo/cardsync/internal/pkg/accountupdater"
	"github.com/ecomdemo/cardsync/internal/pkg/cache"
	"github.com/ecomdemo/cardsync/internal/pkg/config"
	"github.com/ecomdemo/cardsync/internal/pkg/database"
	"github.com/ecomdemo/cardsync/internal/pkg/env"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics/counter"
	"github.com/ecomdemo/cardsync/internal/pkg/router"
)

// webhook bodies are small JSON documents
const bodyLimit = 1 << 20

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, redisClient := NewApplication(cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	if err := app.Listen(cfg.ListenAddr()); err != nil {
		log.Fatal(err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
}

func NewApplication(cfg *config.Config) (*fiber.App, *redis.Client) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Database unavailable: %v", err)
	}

	redisClient := cache.NewClient(cfg.Cache)
	limiterStorage, err := cache.NewLimiterStorage(cfg.Cache)
	if err != nil {
		// the limiter falls back to in-memory buckets
		log.Printf("Warning: %v", err)
	}

	if cfg.SkipSignatureVerification() {
		log.Println("Warning: webhook signature verification is disabled")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "cardsync",
		BodyLimit: bodyLimit,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if _, err := os.Stat(cfg.DocsPath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: cfg.DocsPath,
			Path:     "v1",
		}))
	} else {
		log.Printf("Warning: OpenAPI document not found at %s", cfg.DocsPath)
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Config:         cfg,
		DB:             db,
		Repositories:   repository.NewFactory(db),
		Reconciler:     accountupdater.NewServiceFromDB(db),
		Verifier:       accountupdater.NewSignatureVerifier(cfg.Webhook.Secret, cfg.SkipSignatureVerification()),
		Tracker:        counter.NewTracker(redisClient),
		Metrics:        metrics.NewWebhook(),
		LimiterStorage: limiterStorage,
	})

	return app, redisClient
}
