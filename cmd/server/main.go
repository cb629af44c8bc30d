// Package main is the entry point for the settlement API server. It wires
// the database, redis, the job queue, and the pipeline services, then
// serves the operator API and the webhook endpoint.
package main

import (
	"context"
	"log"
	"time"

	"recoup/internal/bankregistry"
	"recoup/internal/config"
	"recoup/internal/gateway"
	"recoup/internal/handlers"
	"recoup/internal/identity"
	"recoup/internal/jobqueue"
	"recoup/internal/jobs"
	"recoup/internal/locks"
	"recoup/internal/middleware"
	"recoup/internal/repositories"
	"recoup/internal/repositories/cache"
	"recoup/internal/services/auth"
	"recoup/internal/services/billing"
	"recoup/internal/services/chargeback"
	"recoup/internal/services/reconciliation"
	"recoup/internal/services/schedule"
	"recoup/internal/services/uploads"
	"recoup/internal/services/validation"
	"recoup/internal/services/verification"
	"recoup/internal/services/webhookingest"
	"recoup/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadEnv()
	settings := config.Load()

	db, err := repositories.Connect(settings.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	defer sqlDB.Close()
	log.Println("✅ Successfully connected to database with connection pooling")

	// Periodic connection pool stats.
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			stats := sqlDB.Stats()
			log.Printf("DB Stats: Open=%d, Idle=%d, InUse=%d, WaitCount=%d, WaitDuration=%s",
				stats.OpenConnections, stats.Idle, stats.InUse, stats.WaitCount, stats.WaitDuration)
		}
	}()

	redisClient := cache.NewRedisClient(settings.Redis)
	cacheService := cache.NewService(redisClient)
	defer cacheService.Close()
	if err := cacheService.HealthCheck(context.Background()); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	// Repositories.
	uploadRepo := repositories.NewUploadRepository(db)
	debtorRepo := repositories.NewDebtorRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	attemptRepo := repositories.NewBillingAttemptRepository(db)
	webhookRepo := repositories.NewWebhookEventRepository(db)
	chargebackRepo := repositories.NewChargebackEventRepository(db)
	blacklistRepo := repositories.NewBlacklistRepository(db)
	logRepo := repositories.NewVerificationLogRepository(db)
	creditRepo := repositories.NewCreditRepository(db)
	operatorRepo := repositories.NewOperatorRepository(db)

	// Shared infrastructure.
	locker := locks.NewManager(redisClient)
	queue := jobqueue.NewQueue(redisClient, settings.Queue)
	gatewayClient := gateway.NewClient(settings.Gateway)
	identityClient := identity.NewClient(settings.Identity)
	registry := bankregistry.New()

	objectStorage, err := storage.NewS3(context.Background(), settings.Storage)
	if err != nil {
		log.Printf("⚠️ Object storage unavailable, report export disabled: %v", err)
		objectStorage = nil
	}

	// Services.
	authService := auth.NewService(operatorRepo)
	uploadService := uploads.NewService(uploadRepo, debtorRepo, objectStorage)
	validationService := validation.NewService(debtorRepo, uploadRepo, locker, validation.Config{})
	verificationService := verification.NewService(
		debtorRepo, logRepo, uploadRepo, creditRepo, registry, identityClient, locker,
		verification.Config{EscalationSampleSize: settings.Identity.SampleSize},
	)
	billingService := billing.NewService(
		attemptRepo, debtorRepo, profileRepo, blacklistRepo, uploadRepo,
		verificationService, gatewayClient, locker,
		billing.Config{
			MinimumAmount: settings.Billing.MinimumAmount,
			Currency:      settings.Billing.Currency,
			Descriptor:    settings.Billing.Descriptor,
			LifetimeCap:   settings.Billing.LifetimeCap,
		},
	)
	reconciliationService := reconciliation.NewService(
		attemptRepo, billingService, gatewayClient, locker,
		reconciliation.Config{
			MinAge:      settings.Reconcile.MinAge,
			MaxAttempts: settings.Reconcile.MaxAttempts,
			BulkLimit:   settings.Reconcile.BulkLimit,
			LockTTL:     settings.Reconcile.LockTTL,
		},
	)
	chargebackService := chargeback.NewService(
		chargebackRepo, attemptRepo, debtorRepo, profileRepo, blacklistRepo,
		gatewayClient, objectStorage, locker,
		chargeback.Config{AutoBlacklistReasonCodes: settings.AutoBlacklistReasonCodes},
	)
	scheduleService := schedule.NewService(profileRepo, debtorRepo, billingService, locker, schedule.Config{})
	webhookService := webhookingest.NewService(
		webhookRepo, attemptRepo, billingService, cacheService, jobs.NewEnqueuer(queue),
		webhookingest.Config{
			Token:        settings.Webhook.Token,
			SharedSecret: settings.Gateway.SharedSecret,
			DedupTTL:     settings.Webhook.DedupTTL,
		},
	)

	jobs.Register(queue, jobs.Services{
		Validation:     validationService,
		Verification:   verificationService,
		Billing:        billingService,
		Reconciliation: reconciliationService,
		Chargeback:     chargebackService,
		Schedule:       scheduleService,
		Webhooks:       webhookService,
	})
	queue.Start()
	defer queue.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: settings.Webhook.MaxBodyBytes,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ORIGIN", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	authMw := middleware.NewAuthMiddleware(operatorRepo)
	handlers.SetupRoutes(app, handlers.Handlers{
		Health:     handlers.NewHealthHandler(cacheService),
		Auth:       handlers.NewAuthHandler(authService),
		Upload:     handlers.NewUploadHandler(uploadService),
		Webhook:    handlers.NewWebhookHandler(webhookService, settings.Webhook.MaxBodyBytes),
		Pipeline:   handlers.NewPipelineHandler(queue, uploadRepo, billingService),
		Chargeback: handlers.NewChargebackHandler(chargebackService),
		Blacklist:  handlers.NewBlacklistHandler(blacklistRepo),
		Credit:     handlers.NewCreditHandler(creditRepo),
		Profile:    handlers.NewProfileHandler(profileRepo, scheduleService, queue),
	}, authMw, handlers.WebhookLimit{
		Max:    settings.Webhook.RateLimitMax,
		Window: settings.Webhook.RateLimitWindow,
	})

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
