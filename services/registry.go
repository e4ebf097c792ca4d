package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// maxActiveGames caps the registry so abandoned sessions cannot grow the
	// process without bound.
	maxActiveGames = 500

	// snapshotTTL matches how long a game may sit idle before eviction.
	snapshotTTL   = 2 * time.Hour
	idleTimeout   = 2 * time.Hour
	sweepInterval = time.Minute
)

// ConnectionCounter reports how many live connections a game has. Satisfied
// by the Hub; the janitor uses it to avoid evicting games people are still
// watching.
type ConnectionCounter interface {
	GameConnectionCount(gameID string) int
}

// GameRegistry is the process-wide owner of all live game sessions. Lookups
// are served from memory; a JSON snapshot of each session is mirrored to
// redis with a TTL for operational visibility, never read back as authority.
type GameRegistry struct {
	mu    sync.RWMutex
	games map[string]*GameSession
	redis *redis.Client
}

func NewGameRegistry(redisClient *redis.Client) *GameRegistry {
	return &GameRegistry{
		games: make(map[string]*GameSession),
		redis: redisClient,
	}
}

// Insert generates a unique game id, builds the session under the registry
// lock and registers it. Fails when the registry is at capacity.
func (r *GameRegistry) Insert(build func(gameID string) *GameSession) (*GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.games) >= maxActiveGames {
		return nil, ErrTooManyGames
	}

	gameID := r.newIDLocked()
	game := build(gameID)
	r.games[gameID] = game
	return game, nil
}

// Get looks up a live session by id.
func (r *GameRegistry) Get(gameID string) (*GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	game, ok := r.games[strings.ToUpper(gameID)]
	if !ok {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// Remove drops a session from the registry and deletes its redis snapshot.
func (r *GameRegistry) Remove(gameID string) {
	r.mu.Lock()
	delete(r.games, gameID)
	r.mu.Unlock()

	if r.redis != nil {
		if err := r.redis.Del(context.Background(), snapshotKey(gameID)).Err(); err != nil {
			log.Printf("Failed to delete snapshot for game %s: %v", gameID, err)
		}
	}
}

// Len reports the number of live sessions.
func (r *GameRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// newIDLocked draws 6 uppercase hex characters until the id is unused.
// Caller holds the registry lock.
func (r *GameRegistry) newIDLocked() string {
	for {
		bytes := make([]byte, 3)
		rand.Read(bytes)
		gameID := strings.ToUpper(hex.EncodeToString(bytes))
		if _, taken := r.games[gameID]; !taken {
			return gameID
		}
	}
}

// SaveSnapshot mirrors the session's public state to redis. Best effort: a
// failed or absent redis never fails the game action that triggered it.
func (r *GameRegistry) SaveSnapshot(game *GameSession) {
	if r.redis == nil {
		return
	}

	snap := game.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("Failed to marshal snapshot for game %s: %v", game.GameID, err)
		return
	}

	if err := r.redis.Set(context.Background(), snapshotKey(game.GameID), data, snapshotTTL).Err(); err != nil {
		log.Printf("Failed to store snapshot for game %s: %v", game.GameID, err)
	}
}

// LoadSnapshot reads a mirrored snapshot back from redis. Used by the state
// endpoint as a post-eviction fallback.
func (r *GameRegistry) LoadSnapshot(gameID string) (*GameSnapshot, error) {
	if r.redis == nil {
		return nil, ErrGameNotFound
	}

	data, err := r.redis.Get(context.Background(), snapshotKey(strings.ToUpper(gameID))).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error loading snapshot for game %s: %v", gameID, err)
		}
		return nil, ErrGameNotFound
	}

	var snap GameSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot for game %s: %w", gameID, err)
	}
	return &snap, nil
}

// RunJanitor periodically evicts finished games nobody is connected to and
// games idle past the timeout. Runs for the life of the process.
func (r *GameRegistry) RunJanitor(conns ConnectionCounter) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		if removed := r.Sweep(conns); removed > 0 {
			log.Printf("Janitor evicted %d game(s), %d remaining", removed, r.Len())
		}
	}
}

// Sweep applies the eviction policy once and returns how many sessions were
// removed.
func (r *GameRegistry) Sweep(conns ConnectionCounter) int {
	r.mu.RLock()
	var evict []string
	now := time.Now()
	for gameID, game := range r.games {
		finished := game.Status() == StatusFinished && conns.GameConnectionCount(gameID) == 0
		idle := now.Sub(game.LastActivity()) > idleTimeout
		if finished || idle {
			evict = append(evict, gameID)
		}
	}
	r.mu.RUnlock()

	for _, gameID := range evict {
		r.Remove(gameID)
	}
	return len(evict)
}

func snapshotKey(gameID string) string {
	return "game:" + gameID
}
