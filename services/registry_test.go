package services

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"flashtriv/models"
)

// fakeConnCounter stands in for the hub in janitor tests.
type fakeConnCounter map[string]int

func (f fakeConnCounter) GameConnectionCount(gameID string) int {
	return f[gameID]
}

type RegistrySuite struct {
	suite.Suite

	mr       *miniredis.Miniredis
	registry *GameRegistry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.registry = NewGameRegistry(client)
}

func (s *RegistrySuite) insertSession() *GameSession {
	creator := &models.User{ID: 1, Username: "host"}
	set := &models.Set{ID: 1, Name: "Geography", UserID: 1}

	game, err := s.registry.Insert(func(gameID string) *GameSession {
		return newGameSession(gameID, creator, set, 5, false, nil)
	})
	s.Require().NoError(err)
	return game
}

func (s *RegistrySuite) TestInsertAssignsUniqueIDs() {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		game := s.insertSession()
		s.Regexp(gameIDPattern, game.GameID)
		s.False(seen[game.GameID], "duplicate id %s", game.GameID)
		seen[game.GameID] = true
	}
	s.Equal(50, s.registry.Len())
}

func (s *RegistrySuite) TestGetUnknownGame() {
	_, err := s.registry.Get("ABCDEF")
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *RegistrySuite) TestInsertRejectedAtCapacity() {
	for i := 0; i < maxActiveGames; i++ {
		s.insertSession()
	}

	_, err := s.registry.Insert(func(gameID string) *GameSession {
		s.Fail("build should not be called at capacity")
		return nil
	})
	s.ErrorIs(err, ErrTooManyGames)
	s.Equal(maxActiveGames, s.registry.Len())
}

func (s *RegistrySuite) TestSnapshotRoundTrip() {
	game := s.insertSession()
	s.registry.SaveSnapshot(game)

	s.True(s.mr.Exists("game:" + game.GameID))

	ttl := s.mr.TTL("game:" + game.GameID)
	s.Equal(snapshotTTL, ttl)

	snap, err := s.registry.LoadSnapshot(game.GameID)
	s.Require().NoError(err)
	s.Equal(game.GameID, snap.GameID)
	s.Equal("Geography", snap.SetName)
	s.Equal("host", snap.Creator)
	s.Equal(StatusLobby, snap.Status)
	s.Equal(-1, snap.QuestionIndex)
	s.Contains(snap.Scores, "host")
}

func (s *RegistrySuite) TestRemoveDeletesSnapshot() {
	game := s.insertSession()
	s.registry.SaveSnapshot(game)

	s.registry.Remove(game.GameID)

	s.Equal(0, s.registry.Len())
	s.False(s.mr.Exists("game:" + game.GameID))
	_, err := s.registry.LoadSnapshot(game.GameID)
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *RegistrySuite) TestLoadSnapshotMissing() {
	_, err := s.registry.LoadSnapshot("ABCDEF")
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *RegistrySuite) TestSweepEvictsFinishedGamesNobodyWatches() {
	done := s.insertSession()
	s.Require().NoError(done.End("host"))

	watched := s.insertSession()
	s.Require().NoError(watched.End("host"))

	active := s.insertSession()

	conns := fakeConnCounter{watched.GameID: 2}
	removed := s.registry.Sweep(conns)

	s.Equal(1, removed)
	_, err := s.registry.Get(done.GameID)
	s.ErrorIs(err, ErrGameNotFound)

	_, err = s.registry.Get(watched.GameID)
	s.NoError(err)
	_, err = s.registry.Get(active.GameID)
	s.NoError(err)
}

func (s *RegistrySuite) TestSweepKeepsRecentActiveGames() {
	s.insertSession()
	s.insertSession()

	s.Equal(0, s.registry.Sweep(fakeConnCounter{}))
	s.Equal(2, s.registry.Len())
}

func TestRegistryToleratesMissingRedis(t *testing.T) {
	registry := NewGameRegistry(nil)

	creator := &models.User{ID: 1, Username: "host"}
	set := &models.Set{ID: 1, Name: "Geography"}
	game, err := registry.Insert(func(gameID string) *GameSession {
		return newGameSession(gameID, creator, set, 5, false, nil)
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	registry.SaveSnapshot(game)
	registry.Remove(game.GameID)

	if _, err := registry.LoadSnapshot(game.GameID); err != ErrGameNotFound {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}
