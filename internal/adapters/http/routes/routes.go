package routes

import (
	"assotessera/internal/adapters/http/handlers"
	"assotessera/internal/adapters/http/middleware"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/config"
	"assotessera/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	loginTokenRepo := repositories.NewLoginTokenRepository(db)
	adminRepo := repositories.NewAdminRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	paymentLogRepo := repositories.NewPaymentLogRepository(db)
	cardRangeRepo := repositories.NewCardRangeRepository(db)
	yearRepo := repositories.NewYearRepository(db)
	comuneRepo := repositories.NewComuneRepository(db)

	// Initialize provider clients
	paypalService := services.NewPayPalService(cfg.PayPal)
	emailService := services.NewEmailService(cfg.Resend)
	mailchimpService := services.NewMailchimpService(cfg.Mailchimp)

	// Initialize services
	authService := services.NewAuthService(userRepo, loginTokenRepo, adminRepo, emailService, cfg)
	profileService := services.NewProfileService(profileRepo, userRepo, comuneRepo, mailchimpService)
	membershipService := services.NewMembershipService(membershipRepo, profileRepo, yearRepo, paypalService, cfg)
	webhookService := services.NewWebhookService(membershipRepo, paymentLogRepo, paypalService, emailService)
	cardService := services.NewCardNumberService(cardRangeRepo, membershipRepo, yearRepo, emailService)
	exportService := services.NewExportService(membershipRepo, comuneRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	profileHandler := handlers.NewProfileHandler(profileService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	adminHandler := handlers.NewAdminHandler(cardService, membershipService, exportService, userRepo, yearRepo)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public)
	auth := apiV1.Group("/auth")
	auth.Post("/magic-link", middleware.MagicLinkLimiter(rdb, cfg), authHandler.RequestMagicLink)
	auth.Get("/verify", authHandler.VerifyMagicLink)
	auth.Post("/admin/login", authHandler.AdminLogin)
	auth.Post("/logout", authHandler.Logout)

	// Payment provider webhooks (authenticated by signature, not by session)
	apiV1.Post("/webhooks/paypal", webhookHandler.HandlePayPal)

	// Member routes (authenticated)
	me := apiV1.Group("/me", middleware.AuthMiddleware(cfg))
	me.Get("/profile", profileHandler.Get)
	me.Put("/profile", profileHandler.Upsert)

	memberships := apiV1.Group("/memberships", middleware.AuthMiddleware(cfg))
	memberships.Get("/status", membershipHandler.Status)
	memberships.Post("/checkout", membershipHandler.Checkout)

	// Admin routes
	admin := apiV1.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminOnly())
	admin.Get("/members", adminHandler.ListMembers)
	admin.Get("/years", adminHandler.ListYears)
	admin.Get("/years/:yearID/ranges", adminHandler.ListRanges)
	admin.Post("/years/:yearID/ranges", adminHandler.AddRange)
	admin.Get("/years/:yearID/ranges/available", adminHandler.AvailableNumbers)
	admin.Post("/years/:yearID/assignments", adminHandler.AutoAssign)
	admin.Delete("/ranges/:id", adminHandler.DeleteRange)
	admin.Post("/memberships/:id/number", adminHandler.AssignNumber)
	admin.Post("/memberships/:id/cancel", adminHandler.CancelMembership)
	admin.Post("/memberships/expire", adminHandler.RunExpiration)
	admin.Get("/export", adminHandler.Export)
}
