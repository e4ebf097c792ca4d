package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"flashtriv/models"
	"flashtriv/services"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

type GameHandler struct {
	gameService *services.GameService
	authService *services.AuthService
	coordinator *services.Coordinator
	publicURL   string
}

func NewGameHandler(gameService *services.GameService, authService *services.AuthService, coordinator *services.Coordinator, publicURL string) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		authService: authService,
		coordinator: coordinator,
		publicURL:   strings.TrimRight(publicURL, "/"),
	}
}

type submitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// CreateGame starts a new session. Solo games come back with their first
// card already active; multiplayer games wait in the lobby for the creator
// to start them over the websocket.
func (h *GameHandler) CreateGame(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.CreateGame(user, &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"game": game.Snapshot()}
	if card := game.CurrentCard(); card != nil {
		response["card"] = gin.H{"front": card.Front, "question_number": 1, "total_questions": game.MaxQuestions}
	}
	c.JSON(http.StatusCreated, response)
}

// JoinGame adds the caller to a multiplayer game's roster.
func (h *GameHandler) JoinGame(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	game, err := h.gameService.JoinGame(c.Param("id"), user.Username)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, game.Snapshot())
}

// GetGame returns the public state of a game.
func (h *GameHandler) GetGame(c *gin.Context) {
	snap, err := h.gameService.GetState(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SubmitAnswer grades the caller's answer. Primarily the solo path; the
// multiplayer path normally answers over the websocket.
func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gameID := c.Param("id")
	result, correctAnswer, err := h.gameService.SubmitAnswer(gameID, user.Username, req.Answer)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.GetGame(gameID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"result":         result,
		"correct_answer": correctAnswer,
	}
	if game.Solo {
		response["score"] = game.SoloScore()
	} else {
		response["scores"] = game.Scores()
	}
	c.JSON(http.StatusOK, response)
}

// NextQuestion advances the game. Creator only; for multiplayer games the
// resulting card or finish notice is also pushed to all connections.
func (h *GameHandler) NextQuestion(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	gameID := c.Param("id")
	game, err := h.gameService.GetGame(gameID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.gameService.AdvanceQuestion(gameID, user.Username)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	if !game.Solo {
		h.coordinator.AnnounceAdvance(gameID, outcome)
	}

	if outcome.Finished {
		response := gin.H{"status": "finished"}
		if game.Solo {
			response["final_score"] = game.SoloScore()
		} else {
			response["scores"] = game.Scores()
		}
		c.JSON(http.StatusOK, response)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"card": gin.H{
			"front": outcome.Card.Front,
		},
		"question_number": outcome.QuestionNumber,
		"total_questions": outcome.TotalQuestions,
	})
}

// EndGame finishes a game early. Creator only.
func (h *GameHandler) EndGame(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	gameID := c.Param("id")
	if err := h.gameService.EndGame(gameID, user.Username); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.coordinator.AnnounceStatus(gameID, services.StatusFinished, "The game has been ended by the creator. Check the final leaderboard.")
	c.JSON(http.StatusOK, gin.H{"message": "Game ended"})
}

// JoinQR renders the game's join URL as a QR code PNG so players can hop in
// from a phone.
func (h *GameHandler) JoinQR(c *gin.Context) {
	gameID := c.Param("id")
	if _, err := h.gameService.GetGame(gameID); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	joinURL := fmt.Sprintf("%s/join/%s", h.publicURL, gameID)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *GameHandler) currentUser(c *gin.Context) (*models.User, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}

	user, err := h.authService.GetUserByID(userID.(uint))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return user, true
}
