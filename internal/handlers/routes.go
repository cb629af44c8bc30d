package handlers

import (
	"time"

	"recoup/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers bundles every route handler for registration.
type Handlers struct {
	Health     *HealthHandler
	Auth       *AuthHandler
	Upload     *UploadHandler
	Webhook    *WebhookHandler
	Pipeline   *PipelineHandler
	Chargeback *ChargebackHandler
	Blacklist  *BlacklistHandler
	Credit     *CreditHandler
	Profile    *ProfileHandler
}

// WebhookLimit is the per-IP rate limit applied to the webhook endpoint.
type WebhookLimit struct {
	Max    int
	Window time.Duration
}

func SetupRoutes(app *fiber.App, h Handlers, authMw *middleware.AuthMiddleware, limit WebhookLimit) {
	app.Get("/health", h.Health.HealthCheck)

	// Gateway callbacks: token in path, per-IP rate limit, no JWT.
	webhooks := app.Group("/webhooks", limiter.New(limiter.Config{
		Max:        limit.Max,
		Expiration: limit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	webhooks.Post("/payment/:token", h.Webhook.Receive)

	api := app.Group("/api")
	api.Post("/login", h.Auth.Login)
	api.Post("/refresh", h.Auth.Refresh)

	authenticated := api.Group("/", authMw.Handler)
	authenticated.Post("/logout", h.Auth.Logout)
	authenticated.Post("/change-password", h.Auth.ChangePassword)

	uploads := authenticated.Group("/uploads")
	uploads.Post("/", h.Upload.Create)
	uploads.Delete("/:id", h.Upload.Delete)
	uploads.Get("/:id", h.Pipeline.GetUpload)
	uploads.Post("/:id/validate", h.Pipeline.RunValidation)
	uploads.Post("/:id/verify", h.Pipeline.RunVerification)
	uploads.Post("/:id/bill", h.Pipeline.RunBilling)

	authenticated.Post("/debtors/:id/dispatch", h.Pipeline.DispatchDebtor)
	authenticated.Post("/reconcile", h.Pipeline.RunBulkReconcile)
	authenticated.Get("/jobs/:jobId", h.Pipeline.GetJob)

	authenticated.Post("/chargebacks/sync", h.Chargeback.Sync)

	profiles := authenticated.Group("/profiles")
	profiles.Get("/:id", h.Profile.Get)
	profiles.Post("/:id/cadence", h.Profile.SwitchCadence)
	authenticated.Post("/billing-cycle/run", h.Profile.RunCycle)

	blacklist := authenticated.Group("/blacklist")
	blacklist.Get("/", h.Blacklist.List)
	blacklist.Post("/", h.Blacklist.Create)
	blacklist.Delete("/:id", h.Blacklist.Delete)

	credits := authenticated.Group("/credits")
	credits.Get("/", h.Credit.Balance)
	credits.Post("/topup", middleware.AdminOnly, h.Credit.TopUp)
}
