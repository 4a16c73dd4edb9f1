package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"assotessera/internal/adapters/http/middleware"
	"assotessera/internal/adapters/http/routes"
	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/config"
	"assotessera/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "assotessera/docs" // Swagger docs
)

// @title AssoTessera API
// @version 1.0
// @description API di tesseramento: accesso via magic link, profilo socio, pagamento PayPal, tessere ed export AICS

// @contact.name API Support
// @contact.email supporto@assotessera.org

// @host tesseramento.example.org
// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed municipality and name reference data when empty
	if err := config.SeedReferenceData(db, cfg); err != nil {
		log.Printf("⚠️ Warning: Failed to seed reference data: %v", err)
	}

	// Shared store for the magic-link rate limiter
	rdb := config.ConnectRedis(cfg)
	defer rdb.Close()

	// Start Cron Service for the nightly expiration sweep
	membershipService := services.NewMembershipService(
		repositories.NewMembershipRepository(db),
		repositories.NewProfileRepository(db),
		repositories.NewYearRepository(db),
		services.NewPayPalService(cfg.PayPal),
		cfg,
	)
	cronService := services.NewCronService(membershipService)
	cronService.Start()
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AssoTessera API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db, redis and cfg for dependency injection)
	routes.Setup(app, db, rdb, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
}
