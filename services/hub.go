package services

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageHandler consumes inbound traffic and connection lifecycle events.
// Implemented by the Coordinator.
type MessageHandler interface {
	HandleConnect(c *Client)
	HandleMessage(c *Client, data []byte)
	HandleDisconnect(c *Client)
}

// Hub owns every live websocket connection, keyed by game id and username.
// A player holds at most one connection per game; reconnecting replaces the
// previous handle without touching game state.
type Hub struct {
	mu         sync.RWMutex
	games      map[string]map[string]*Client
	register   chan *Client
	unregister chan *Client
	handler    MessageHandler
}

type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	gameID   string
	username string
}

func (c *Client) closeSocket() {
	if c.socket != nil {
		c.socket.Close()
	}
}

// GameID returns the game this connection is attached to.
func (c *Client) GameID() string { return c.gameID }

// Username returns the verified player identity behind this connection.
func (c *Client) Username() string { return c.username }

func NewHub() *Hub {
	return &Hub{
		games:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetHandler wires the coordinator in. Must be called before Run.
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handler = handler
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			log.Printf("Client %s connected: game %s, player %s", client.id, client.gameID, client.username)
			if h.handler != nil {
				h.handler.HandleConnect(client)
			}

		case client := <-h.unregister:
			if h.removeClient(client) {
				log.Printf("Client %s disconnected: game %s, player %s", client.id, client.gameID, client.username)
				if h.handler != nil {
					h.handler.HandleDisconnect(client)
				}
			}
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.games[client.gameID]
	if !ok {
		clients = make(map[string]*Client)
		h.games[client.gameID] = clients
	}

	// A reconnect replaces the old handle.
	if prev, ok := clients[client.username]; ok && prev != client {
		close(prev.send)
		prev.closeSocket()
	}
	clients[client.username] = client
}

// removeClient drops the client and reports whether it was still the
// registered handle for its player (false when a reconnect already replaced
// it).
func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.games[client.gameID]
	if !ok || clients[client.username] != client {
		return false
	}

	delete(clients, client.username)
	close(client.send)
	if len(clients) == 0 {
		delete(h.games, client.gameID)
	}
	return true
}

// dropLocked unregisters the client and closes its handle. Caller holds h.mu
// and must notify the handler after releasing it.
func (h *Hub) dropLocked(client *Client) {
	clients := h.games[client.gameID]
	delete(clients, client.username)
	if len(clients) == 0 {
		delete(h.games, client.gameID)
	}
	close(client.send)
	client.closeSocket()
}

// BroadcastToGame fans an event out to every connection in the game.
// Delivery is best effort per recipient: a client whose buffer is full is
// dropped so the rest of the game is not held up. Dropped clients get the
// same disconnect handling as a normal close.
func (h *Hub) BroadcastToGame(gameID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event for game %s: %v", gameID, err)
		return
	}

	h.mu.Lock()
	var dropped []*Client
	for username, client := range h.games[gameID] {
		select {
		case client.send <- data:
		default:
			log.Printf("Send buffer full for player %s in game %s, dropping connection", username, gameID)
			h.dropLocked(client)
			dropped = append(dropped, client)
		}
	}
	h.mu.Unlock()

	for _, client := range dropped {
		if h.handler != nil {
			h.handler.HandleDisconnect(client)
		}
	}
}

// SendToClient delivers an event to a single connection. Stale handles — a
// client already dropped or replaced by a reconnect — are ignored: their send
// channel is closed, so the registration check has to happen under the lock.
func (h *Hub) SendToClient(client *Client, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event for client %s: %v", client.id, err)
		return
	}

	h.mu.Lock()
	if h.games[client.gameID][client.username] != client {
		h.mu.Unlock()
		return
	}

	var dropped bool
	select {
	case client.send <- data:
	default:
		log.Printf("Send buffer full for client %s, dropping connection", client.id)
		h.dropLocked(client)
		dropped = true
	}
	h.mu.Unlock()

	if dropped && h.handler != nil {
		h.handler.HandleDisconnect(client)
	}
}

// GameConnectionCount reports how many players are connected to a game.
func (h *Hub) GameConnectionCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// ConnectedPlayers lists the usernames currently connected to a game.
func (h *Hub) ConnectedPlayers(gameID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	players := make([]string, 0, len(h.games[gameID]))
	for username := range h.games[gameID] {
		players = append(players, username)
	}
	return players
}

// RegisterClient attaches an upgraded connection to the hub and starts its
// pumps. The caller must have verified the player is a participant first.
func (h *Hub) RegisterClient(conn *websocket.Conn, gameID, username string) *Client {
	client := &Client{
		hub:      h,
		id:       uuid.NewString(),
		socket:   conn,
		send:     make(chan []byte, 256),
		gameID:   gameID,
		username: username,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		if c.hub.handler != nil {
			c.hub.handler.HandleMessage(c, message)
		}
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}
