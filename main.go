package main

import (
	"log"

	"flashtriv/config"
	"flashtriv/handlers"
	"flashtriv/middleware"
	"flashtriv/models"
	"flashtriv/routes"
	"flashtriv/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Set{},
		&models.Card{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	cardService := services.NewCardService(db)
	registry := services.NewGameRegistry(redisClient)
	gameService := services.NewGameService(cardService, registry)

	// Initialize WebSocket hub and coordinator
	hub := services.NewHub()
	coordinator := services.NewCoordinator(gameService, hub)
	hub.SetHandler(coordinator)
	go hub.Run()
	go registry.RunJanitor(hub)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	setHandler := handlers.NewSetHandler(cardService)
	gameHandler := handlers.NewGameHandler(gameService, authService, coordinator, cfg.PublicURL)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, setHandler, gameHandler, hub, gameService, authService, cfg.JWTSecret)

	// Start server
	addr := cfg.BindAddress + ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
