package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/coasterpix/coasterpix-backend/internal/config"
	"github.com/coasterpix/coasterpix-backend/internal/handler"
	"github.com/coasterpix/coasterpix-backend/internal/middleware"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
	"github.com/coasterpix/coasterpix-backend/internal/service"
	"github.com/coasterpix/coasterpix-backend/pkg/database"
	"github.com/coasterpix/coasterpix-backend/pkg/email"
	"github.com/coasterpix/coasterpix-backend/pkg/payment"
	"github.com/coasterpix/coasterpix-backend/pkg/qrcode"
	"github.com/coasterpix/coasterpix-backend/pkg/storage"
	"github.com/coasterpix/coasterpix-backend/pkg/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.LoadConfig()

	zapLogger, err := zap.NewProduction()
	if os.Getenv("APP_ENV") == "development" {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	// Database (runs migrations and seeds the default park)
	db := database.NewDatabase(cfg.DatabaseURL)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	parkRepo := repository.NewParkRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	rideRepo := repository.NewRideRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	unlockRepo := repository.NewUnlockedPhotoRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)
	cartRepo := repository.NewCartRepository(db)
	customerRepo := repository.NewStripeCustomerRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Storage
	r2Storage, err := storage.NewCloudflareStorage(cfg)
	if err != nil {
		log.Fatal("Failed to initialize R2 storage:", err)
	}

	// Email
	emailService := email.NewEmailService(cfg.Email.ResendAPIKey, cfg.Email.FromAddress, cfg.Email.FromName)

	// Stripe
	stripeService := payment.NewStripeService(cfg.Stripe.SecretKey)

	// QR codes for ride galleries
	qrService := qrcode.NewQRService(cfg.FrontendURL)

	// Services
	authService := service.NewAuthService(userRepo, emailService)
	userService := service.NewUserService(userRepo, parkRepo)
	photoService := service.NewPhotoService(photoRepo, unlockRepo, r2Storage)
	rideService := service.NewRideService(rideRepo, parkRepo, photoService, qrService)
	cartService := service.NewCartService(cartRepo, photoRepo)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo)
	paymentService := service.NewPaymentService(stripeService, userRepo, customerRepo, purchaseRepo, zapLogger)
	fulfillmentService := service.NewFulfillmentService(
		purchaseRepo,
		photoRepo,
		unlockRepo,
		leaderboardRepo,
		cartRepo,
		customerRepo,
		userRepo,
		orderRepo,
		subscriptionRepo,
		stripeService,
		emailService,
		zapLogger,
		cfg.DefaultParkID,
	)

	validator := utils.NewValidator()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, validator)
	userHandler := handler.NewUserHandler(userService)
	photoHandler := handler.NewPhotoHandler(photoService, validator)
	rideHandler := handler.NewRideHandler(rideService, validator)
	cartHandler := handler.NewCartHandler(cartService, validator)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	paymentHandler := handler.NewPaymentHandler(paymentService, fulfillmentService, cfg.Stripe.WebhookSecret, validator, zapLogger)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "https://coasterpix.app, http://localhost:5173",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Stripe-Signature, X-Capture-Key",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	api := app.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	api.Get("/parks", userHandler.GetParks)
	api.Get("/leaderboard/:parkId", leaderboardHandler.GetDayLeaderboard)

	// Stripe webhook (public; signature is the authentication)
	api.Post("/payments/webhook", paymentHandler.HandleStripeWebhook)
	api.Options("/payments/webhook", paymentHandler.WebhookPreflight)

	// Capture-point ingest (shared-key protected)
	api.Post("/photos/ingest", middleware.CaptureKeyMiddleware(cfg.CaptureKey), photoHandler.IngestCapture)

	// Protected routes
	api.Use(middleware.AuthMiddleware())
	{
		user := api.Group("/user")
		user.Get("/profile", userHandler.GetMyProfile)
		user.Put("/profile", userHandler.UpdateProfile)

		rides := api.Group("/rides")
		rides.Post("/", rideHandler.LogRide)
		rides.Get("/", rideHandler.GetMyRides)
		rides.Get("/:id/photos", rideHandler.GetRidePhotos)
		rides.Get("/:id/qrcode", rideHandler.GetRideQR)

		photos := api.Group("/photos")
		photos.Get("/park/:parkId", photoHandler.BrowseDay)
		photos.Get("/unlocked", photoHandler.GetUnlockedPhotos)
		photos.Get("/:id/download", photoHandler.GetDownloadURL)

		cart := api.Group("/cart")
		cart.Get("/", cartHandler.GetCart)
		cart.Post("/", cartHandler.AddItem)
		cart.Delete("/:id", cartHandler.RemoveItem)
		cart.Delete("/", cartHandler.ClearCart)

		payments := api.Group("/payments")
		payments.Post("/checkout", paymentHandler.CreateCheckoutSession)
		payments.Get("/session/:sessionId/status", paymentHandler.GetSessionStatus)
		payments.Get("/history", paymentHandler.GetPurchaseHistory)
	}

	zapLogger.Info("starting server", zap.String("port", cfg.Port))
	log.Fatal(app.Listen(":" + cfg.Port))
}
