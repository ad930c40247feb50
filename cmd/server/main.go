package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/database"
	"github.com/quizroom/gachadb/internal/handlers"
	"github.com/quizroom/gachadb/internal/middleware"
	"github.com/quizroom/gachadb/internal/services"
	"github.com/quizroom/gachadb/internal/types"

	_ "github.com/quizroom/gachadb/docs/api" // Swagger docs
)

// @title GachaDB API
// @version 1.0.0
// @description Collectible reward (gacha) data service for the QuizRoom learning platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/quizroom/gachadb
// @contact.email dev@quizroom.app

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database (app pool)
	appDB, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to app database: %v", err)
	}
	defer database.Close(appDB)

	// Connect to database (user pool)
	userDB, err := database.ConnectUser(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to user database: %v", err)
	}
	defer database.Close(userDB)

	// Run auto-migrations
	if err := database.AutoMigrate(appDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("gachadb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Gacha routes
	gacha := api.Group("/gacha")

	// Seeded picker shared across requests
	picker, err := services.NewPicker()
	if err != nil {
		log.Fatalf("Failed to create item picker: %v", err)
	}

	// Create handlers
	gachaHandler := &handlers.GachaHandler{DB: userDB, Cfg: cfg, Picker: picker}
	collectionHandler := &handlers.CollectionHandler{DB: userDB, Cfg: cfg}
	adminHandler := &handlers.AdminHandler{DB: appDB, Cfg: cfg}

	// Inventory before :course so the literal segment wins
	gacha.Get("/inventory", middleware.AuthUser(), collectionHandler.GetInventory)

	// Roll and claim (all require user authentication)
	gacha.Post("/:course/roll", middleware.AuthUser(), gachaHandler.Roll)
	gacha.Post("/:course/claim", middleware.AuthUser(), gachaHandler.Claim)

	// Registry reads are public
	gacha.Get("/:course/items", collectionHandler.ListCourseItems)
	gacha.Get("/:course/items/:item", collectionHandler.GetItemDetail)

	// Item mutations (all require user authentication)
	gacha.Post("/:course/items/:item/name", middleware.AuthUser(), collectionHandler.RenameItem)
	gacha.Post("/:course/items/:item/equip", middleware.AuthUser(), collectionHandler.EquipItem)

	// Admin-only routes
	gacha.Post("/admin/experience", middleware.AuthAdmin(), adminHandler.CreditExperience)

	// Health
	api.Get("/health", adminHandler.GetHealth)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Initialize Authorizer up front; failures are retried by the operator,
	// auth routes keep returning 403 until the client exists.
	if err := services.InitAuthorizer(cfg, "http", "localhost:"+cfg.Port); err != nil {
		log.Printf("Authorizer initialization failed: %v", err)
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Auth middleware errors carry their own status and type
	if ce, ok := err.(*types.CustomError); ok {
		code = ce.Code
		message = ce.Message
		errorType = ce.Type
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
