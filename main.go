package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"wellnest/internal/config"
	"wellnest/internal/database"
	"wellnest/internal/handlers"
	"wellnest/internal/lock"
	"wellnest/internal/middleware"
	"wellnest/internal/models"
	"wellnest/internal/payment"
	"wellnest/internal/repositories"
	"wellnest/internal/services"
	"wellnest/internal/storage"
	"wellnest/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, cleanup, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer cleanup()

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// newApp wires repositories, services and handlers into a Fiber app. The returned
// cleanup releases the broker and Redis connections.
func newApp(cfg config.Config) (*fiber.App, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*fiber.App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fail(err)
	}
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, func() { sqlDB.Close() })
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	checkoutRepo := repositories.NewGORMCheckoutRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	prescriptionRepo := repositories.NewGORMPrescriptionRepository(db)

	// --- Cart locks: Redis when several replicas share carts, in-process otherwise ---
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			client.Close()
			return fail(fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err))
		}
		closers = append(closers, func() { client.Close() })
		locker = lock.NewRedisLocker(client, "wellnest:lock:", cfg.LockTTL)
		log.Printf("Using Redis cart locks at %s", cfg.RedisAddr)
	}

	// --- Events ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := mqClient.Close(); err != nil {
				log.Printf("Error closing RabbitMQ client: %v", err)
			}
		})
		events = mqClient
	} else {
		log.Println("RABBITMQ_URL not set, domain events are disabled")
	}

	// --- Payment gateway ---
	var gateway payment.Gateway
	var sandbox *payment.Sandbox
	switch cfg.PaymentProvider {
	case config.ProviderStripe:
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.GatewayTimeout)
	default:
		sandbox = payment.NewSandbox()
		gateway = sandbox
		log.Println("Using the sandbox payment gateway")
	}

	// --- Document storage ---
	docs, err := storage.NewDiskDocumentStore(cfg.StorageDir, cfg.StorageTimeout)
	if err != nil {
		return fail(err)
	}

	// --- Initialize Services ---
	gate := services.NewRoleGate()
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo, locker, gate)
	orderService := services.NewOrderService(orderRepo, gate, events)
	checkoutService := services.NewCheckoutService(cartService, productRepo, checkoutRepo, orderService, prescriptionRepo, gateway, gate,
		services.CheckoutConfig{
			Currency:        cfg.PaymentCurrency,
			GatewayTimeout:  cfg.GatewayTimeout,
			PersistAttempts: cfg.PersistAttempts,
			PersistBackoff:  200 * time.Millisecond,
		})
	prescriptionService := services.NewPrescriptionService(prescriptionRepo, docs, gate, events)

	// --- Seed data ---
	ctx := context.Background()
	if cfg.SeedCatalog {
		if _, err := productService.SeedIfEmpty(ctx, services.SampleCatalog()); err != nil {
			return fail(err)
		}
	}
	if cfg.AdminEmail != "" {
		_, err := authService.EnsureUser(ctx, services.RegisterInput{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Name:     "Administrator",
		}, models.RoleAdmin)
		if err != nil {
			return fail(fmt.Errorf("failed to seed admin user: %w", err))
		}
	}

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)
	prescriptionHandler := handlers.NewPrescriptionHandler(prescriptionService, int64(cfg.MaxUploadBytes))

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.MaxUploadBytes + 1<<20, // room for the multipart envelope
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": events != nil,
		})
	})

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")

	// Public routes
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1)
	if sandbox != nil {
		handlers.NewSandboxHandler(sandbox).RegisterRoutes(apiV1)
	}

	// Protected routes (require JWT authentication)
	protected := apiV1.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protected)
	cartHandler.RegisterRoutes(protected)
	checkoutHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)
	prescriptionHandler.RegisterRoutes(protected)

	reviewers := protected.Group("/pharmacist", middleware.RequireRole(models.RolePharmacist, models.RoleAdmin))
	prescriptionHandler.RegisterReviewRoutes(reviewers)

	admins := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	orderHandler.RegisterAdminRoutes(admins)
	authHandler.RegisterAdminRoutes(admins)

	return app, cleanup, nil
}
