package routes

import (
	"log"
	"net/http"

	"flashtriv/handlers"
	"flashtriv/middleware"
	"flashtriv/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	setHandler *handlers.SetHandler,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	gameService *services.GameService,
	authService *services.AuthService,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Card set routes
			sets := protected.Group("/sets")
			{
				sets.GET("", setHandler.GetUserSets)
				sets.POST("", setHandler.CreateSet)
				sets.GET("/:id", setHandler.GetSetByID)
				sets.DELETE("/:id", setHandler.DeleteSet)
				sets.POST("/:id/cards", setHandler.AddCard)
				sets.DELETE("/:id/cards/:cardId", setHandler.DeleteCard)
			}

			// Game routes
			games := protected.Group("/games")
			{
				games.POST("", gameHandler.CreateGame)
				games.POST("/:id/join", gameHandler.JoinGame)
				games.POST("/:id/answer", gameHandler.SubmitAnswer)
				games.POST("/:id/next", gameHandler.NextQuestion)
				games.POST("/:id/end", gameHandler.EndGame)
			}
		}

		// Public game routes
		games := api.Group("/games")
		{
			games.GET("/:id", gameHandler.GetGame)
			games.GET("/:id/qr", gameHandler.JoinQR)
		}
	}

	// WebSocket endpoint for real-time game communication. Connections are
	// refused before the upgrade unless the caller is a verified participant
	// of the game; post-upgrade policy failures close with 1008.
	router.GET("/ws/:gameId/:username", func(c *gin.Context) {
		gameID := c.Param("gameId")
		username := c.Param("username")

		game, err := gameService.GetGame(gameID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found or has ended"})
			return
		}
		if game.Solo {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Solo games do not use the websocket endpoint"})
			return
		}

		if _, err := authService.GetUserByUsername(username); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for game %s, player %s: %v", gameID, username, err)
			return
		}

		if !game.IsPlayer(username) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a participant of this game"))
			conn.Close()
			return
		}

		hub.RegisterClient(conn, game.GameID, username)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
