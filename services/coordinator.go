package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Inbound messages are a tagged union: a type discriminator plus a payload
// decoded per type. Unknown types are rejected with an error reply rather
// than silently dropped.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type chatPayload struct {
	Message string `json:"message"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type controlPayload struct {
	Command string `json:"command"`
}

// Outbound events. Every event carries its type tag so clients can dispatch
// on a single field.

type ChatEvent struct {
	Type   string `json:"type"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type NewCardEvent struct {
	Type           string `json:"type"`
	Front          string `json:"front"`
	Back           string `json:"back"`
	QuestionNumber int    `json:"question_number"`
	TotalQuestions int    `json:"total_questions"`
}

type AnswerResultEvent struct {
	Type   string                 `json:"type"`
	Sender string                 `json:"sender"`
	Answer string                 `json:"answer"`
	Result GradeResult            `json:"result"`
	Scores map[string]PlayerScore `json:"scores"`
}

type GameStatusEvent struct {
	Type    string     `json:"type"`
	Status  GameStatus `json:"status"`
	Message string     `json:"message"`
}

type ScoreUpdateEvent struct {
	Type   string                 `json:"type"`
	Scores map[string]PlayerScore `json:"scores"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const systemSender = "SYSTEM"

// Coordinator interprets inbound game messages, drives the session state
// machine and pushes the resulting events back through the hub.
type Coordinator struct {
	games *GameService
	hub   *Hub
}

func NewCoordinator(games *GameService, hub *Hub) *Coordinator {
	return &Coordinator{
		games: games,
		hub:   hub,
	}
}

func (c *Coordinator) HandleConnect(client *Client) {
	c.hub.BroadcastToGame(client.gameID, ChatEvent{
		Type:   "chat_message",
		Sender: systemSender,
		Text:   fmt.Sprintf("%s joined the game.", client.username),
	})

	if game, err := c.games.GetGame(client.gameID); err == nil {
		c.hub.BroadcastToGame(client.gameID, ScoreUpdateEvent{
			Type:   "score_update",
			Scores: game.Scores(),
		})
	}
}

func (c *Coordinator) HandleDisconnect(client *Client) {
	c.hub.BroadcastToGame(client.gameID, ChatEvent{
		Type:   "chat_message",
		Sender: systemSender,
		Text:   fmt.Sprintf("%s disconnected.", client.username),
	})
}

func (c *Coordinator) HandleMessage(client *Client, data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(client, "malformed message")
		return
	}

	switch msg.Type {
	case "chat":
		c.handleChat(client, msg.Payload)
	case "answer_submission":
		c.handleAnswer(client, msg.Payload)
	case "game_control":
		c.handleControl(client, msg.Payload)
	case "score_request":
		c.handleScoreRequest(client)
	default:
		log.Printf("Unknown message type %q from player %s in game %s", msg.Type, client.username, client.gameID)
		c.sendError(client, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (c *Coordinator) handleChat(client *Client, payload json.RawMessage) {
	var chat chatPayload
	if err := json.Unmarshal(payload, &chat); err != nil || strings.TrimSpace(chat.Message) == "" {
		c.sendError(client, "chat message text required")
		return
	}

	c.hub.BroadcastToGame(client.gameID, ChatEvent{
		Type:   "chat_message",
		Sender: client.username,
		Text:   chat.Message,
	})
}

func (c *Coordinator) handleAnswer(client *Client, payload json.RawMessage) {
	var answer answerPayload
	if err := json.Unmarshal(payload, &answer); err != nil {
		c.sendError(client, "answer payload required")
		return
	}

	result, _, err := c.games.SubmitAnswer(client.gameID, client.username, answer.Answer)
	if err != nil {
		c.sendError(client, err.Error())
		return
	}

	game, err := c.games.GetGame(client.gameID)
	if err != nil {
		c.sendError(client, err.Error())
		return
	}

	c.hub.BroadcastToGame(client.gameID, AnswerResultEvent{
		Type:   "answer_result",
		Sender: client.username,
		Answer: answer.Answer,
		Result: result,
		Scores: game.Scores(),
	})
}

func (c *Coordinator) handleControl(client *Client, payload json.RawMessage) {
	var control controlPayload
	if err := json.Unmarshal(payload, &control); err != nil {
		c.sendError(client, "control payload required")
		return
	}

	switch control.Command {
	case "start_game":
		if err := c.games.StartGame(client.gameID, client.username); err != nil {
			c.sendError(client, err.Error())
			return
		}
		c.AnnounceStatus(client.gameID, StatusActive, "Game starting!")
		c.advance(client)

	case "request_next_card":
		c.advance(client)

	case "end_game":
		if err := c.games.EndGame(client.gameID, client.username); err != nil {
			c.sendError(client, err.Error())
			return
		}
		c.AnnounceStatus(client.gameID, StatusFinished, "The game has been ended by the creator. Check the final leaderboard.")

	default:
		c.sendError(client, fmt.Sprintf("unknown game_control command %q", control.Command))
	}
}

func (c *Coordinator) advance(client *Client) {
	outcome, err := c.games.AdvanceQuestion(client.gameID, client.username)
	if err != nil {
		c.sendError(client, err.Error())
		return
	}
	c.AnnounceAdvance(client.gameID, outcome)
}

// AnnounceAdvance publishes the outcome of a question advance: either the
// next card or the finish notice. Also used by the HTTP surface so creators
// pacing the game over REST reach the same connections.
func (c *Coordinator) AnnounceAdvance(gameID string, outcome *AdvanceOutcome) {
	if outcome.Finished {
		c.AnnounceStatus(gameID, StatusFinished, "Game finished! Displaying final leaderboard.")
		return
	}

	c.hub.BroadcastToGame(gameID, NewCardEvent{
		Type:           "new_card",
		Front:          outcome.Card.Front,
		Back:           outcome.Card.Back,
		QuestionNumber: outcome.QuestionNumber,
		TotalQuestions: outcome.TotalQuestions,
	})
}

// AnnounceStatus broadcasts a lifecycle change to every connection in the
// game.
func (c *Coordinator) AnnounceStatus(gameID string, status GameStatus, message string) {
	c.hub.BroadcastToGame(gameID, GameStatusEvent{
		Type:    "game_status_update",
		Status:  status,
		Message: message,
	})
}

func (c *Coordinator) handleScoreRequest(client *Client) {
	game, err := c.games.GetGame(client.gameID)
	if err != nil {
		c.sendError(client, err.Error())
		return
	}

	// Unicast: score requests go back to the requester only.
	c.hub.SendToClient(client, ScoreUpdateEvent{
		Type:   "score_update",
		Scores: game.Scores(),
	})
}

func (c *Coordinator) sendError(client *Client, message string) {
	c.hub.SendToClient(client, ErrorEvent{
		Type:    "error",
		Message: message,
	})
}
