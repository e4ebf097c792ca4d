package services

import (
	"fmt"

	"flashtriv/models"
)

const defaultQuestionCount = 10

// GameService exposes the engine's boundary operations. It owns nothing
// itself: sessions live in the registry, cards in the card store, and every
// mutation is serialized inside the session it targets.
type GameService struct {
	cards    CardStore
	registry *GameRegistry
}

func NewGameService(cards CardStore, registry *GameRegistry) *GameService {
	return &GameService{
		cards:    cards,
		registry: registry,
	}
}

type CreateGameRequest struct {
	SetID        uint `json:"set_id" binding:"required"`
	MaxQuestions int  `json:"max_questions"`
	Solo         bool `json:"solo"`
}

// CreateGame validates the set, clamps the question count and registers a
// new session. Solo games fix their question sample up front and go straight
// to the first question; multiplayer games wait in the lobby.
func (s *GameService) CreateGame(creator *models.User, req *CreateGameRequest) (*GameSession, error) {
	if creator == nil {
		return nil, ErrNotAuthenticated
	}

	set, err := s.cards.GetSetByID(req.SetID)
	if err != nil {
		return nil, err
	}

	ids, err := s.cards.CardIDsInSet(set.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: set %q has no cards", ErrSetExhausted, set.Name)
	}

	maxQuestions := req.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = defaultQuestionCount
	}
	if maxQuestions > len(ids) {
		maxQuestions = len(ids)
	}
	if maxQuestions > hardQuestionCap {
		maxQuestions = hardQuestionCap
	}

	var sample []uint
	if req.Solo {
		sample, err = s.cards.SampleCardIDs(set.ID, maxQuestions)
		if err != nil {
			return nil, err
		}
	}

	game, err := s.registry.Insert(func(gameID string) *GameSession {
		return newGameSession(gameID, creator, set, maxQuestions, req.Solo, sample)
	})
	if err != nil {
		return nil, err
	}

	// Solo play is ACTIVE immediately; serve the first card now.
	if req.Solo {
		if _, err := game.Advance(creator.Username, s.cards); err != nil {
			s.registry.Remove(game.GameID)
			return nil, err
		}
	}

	s.registry.SaveSnapshot(game)
	return game, nil
}

// GetGame looks up a live session.
func (s *GameService) GetGame(gameID string) (*GameSession, error) {
	return s.registry.Get(gameID)
}

// GetState returns the public snapshot of a game, falling back to the redis
// mirror for recently evicted sessions.
func (s *GameService) GetState(gameID string) (*GameSnapshot, error) {
	game, err := s.registry.Get(gameID)
	if err == nil {
		snap := game.Snapshot()
		return &snap, nil
	}
	return s.registry.LoadSnapshot(gameID)
}

// JoinGame adds a player to a multiplayer game. Idempotent for players who
// already joined.
func (s *GameService) JoinGame(gameID, username string) (*GameSession, error) {
	game, err := s.registry.Get(gameID)
	if err != nil {
		return nil, err
	}
	if err := game.Join(username); err != nil {
		return nil, err
	}
	s.registry.SaveSnapshot(game)
	return game, nil
}

// StartGame moves a lobby game to ACTIVE. The caller is responsible for
// advancing to the first question afterwards.
func (s *GameService) StartGame(gameID, requester string) error {
	game, err := s.registry.Get(gameID)
	if err != nil {
		return err
	}
	if err := game.Start(requester); err != nil {
		return err
	}
	s.registry.SaveSnapshot(game)
	return nil
}

// AdvanceQuestion serves the next card or finishes the game.
func (s *GameService) AdvanceQuestion(gameID, requester string) (*AdvanceOutcome, error) {
	game, err := s.registry.Get(gameID)
	if err != nil {
		return nil, err
	}
	outcome, err := game.Advance(requester, s.cards)
	if err != nil {
		return nil, err
	}
	s.registry.SaveSnapshot(game)
	return outcome, nil
}

// SubmitAnswer grades and applies one player's answer to the current round.
func (s *GameService) SubmitAnswer(gameID, username, answer string) (GradeResult, string, error) {
	game, err := s.registry.Get(gameID)
	if err != nil {
		return "", "", err
	}
	result, correctAnswer, err := game.SubmitAnswer(username, answer)
	if err != nil {
		return "", "", err
	}
	s.registry.SaveSnapshot(game)
	return result, correctAnswer, nil
}

// EndGame finishes a game early. Creator only.
func (s *GameService) EndGame(gameID, requester string) error {
	game, err := s.registry.Get(gameID)
	if err != nil {
		return err
	}
	if err := game.End(requester); err != nil {
		return err
	}
	s.registry.SaveSnapshot(game)
	return nil
}
