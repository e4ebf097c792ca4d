package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"flashtriv/models"
)

type GameStatus string

const (
	StatusLobby    GameStatus = "LOBBY"
	StatusActive   GameStatus = "ACTIVE"
	StatusFinished GameStatus = "FINISHED"
)

// hardQuestionCap bounds the number of questions in any game regardless of
// set size.
const hardQuestionCap = 50

// GameSession is one live trivia match. All state transitions are serialized
// behind the session mutex; the registry owns the session for its lifetime.
type GameSession struct {
	mu sync.Mutex

	GameID       string
	CreatorID    uint
	CreatorName  string
	SetID        uint
	SetName      string
	MaxQuestions int
	Solo         bool

	status        GameStatus
	questionIndex int // -1 until the first card is served
	currentCard   *models.Card

	// Solo games fix their whole question list at creation (no repeats).
	// Multiplayer games draw one random card per round instead.
	cardIDs []uint

	board     Scoreboard
	answered  map[string]bool
	soloScore float64

	createdAt    time.Time
	lastActivity time.Time
}

// AdvanceOutcome is the result of a question advance: either the next card
// or the finished signal, never both.
type AdvanceOutcome struct {
	Finished       bool
	Card           *models.Card
	QuestionNumber int
	TotalQuestions int
}

// GameSnapshot is the public view of a session, safe to marshal and share
// after the session mutex is released.
type GameSnapshot struct {
	GameID         string                 `json:"game_id"`
	SetID          uint                   `json:"set_id"`
	SetName        string                 `json:"set_name"`
	Creator        string                 `json:"creator"`
	Solo           bool                   `json:"solo"`
	Status         GameStatus             `json:"status"`
	QuestionIndex  int                    `json:"current_question_index"`
	MaxQuestions   int                    `json:"max_questions"`
	Players        []string               `json:"players"`
	Scores         map[string]PlayerScore `json:"scores"`
	SoloScore      float64                `json:"solo_score"`
	CurrentCardID  uint                   `json:"current_card_id,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	LastActivityAt time.Time              `json:"last_activity_at"`
}

func newGameSession(gameID string, creator *models.User, set *models.Set, maxQuestions int, solo bool, cardIDs []uint) *GameSession {
	status := StatusLobby
	if solo {
		status = StatusActive
	}

	now := time.Now()
	game := &GameSession{
		GameID:        gameID,
		CreatorID:     creator.ID,
		CreatorName:   creator.Username,
		SetID:         set.ID,
		SetName:       set.Name,
		MaxQuestions:  maxQuestions,
		Solo:          solo,
		status:        status,
		questionIndex: -1,
		cardIDs:       cardIDs,
		board:         Scoreboard{creator.Username: &PlayerScore{}},
		answered:      make(map[string]bool),
		createdAt:     now,
		lastActivity:  now,
	}
	return game
}

// Join adds a player to the roster with a fresh zero score. Joining twice is
// a no-op; a finished or solo game cannot be joined.
func (g *GameSession) Join(username string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if username == "" {
		return ErrInvalidInput
	}
	if g.Solo {
		return fmt.Errorf("%w: solo games cannot be joined", ErrInvalidState)
	}
	if g.status == StatusFinished {
		return fmt.Errorf("%w: game already finished", ErrInvalidState)
	}

	if _, ok := g.board[username]; !ok {
		g.board[username] = &PlayerScore{}
	}
	g.touch()
	return nil
}

// Start moves a multiplayer game from LOBBY to ACTIVE. Creator only.
func (g *GameSession) Start(requester string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if requester != g.CreatorName {
		return fmt.Errorf("%w: only the creator can start the game", ErrNotAuthorized)
	}
	if g.status != StatusLobby {
		return fmt.Errorf("%w: game is not in the lobby", ErrInvalidState)
	}

	g.status = StatusActive
	g.touch()
	return nil
}

// Advance serves the next question or finishes the game. Creator only. Cards
// deleted from storage since selection are skipped; if no usable card
// remains the game finishes instead of serving a nil card.
func (g *GameSession) Advance(requester string, cards CardStore) (*AdvanceOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if requester != g.CreatorName {
		return nil, fmt.Errorf("%w: only the creator can advance the game", ErrNotAuthorized)
	}
	if g.status != StatusActive {
		return nil, fmt.Errorf("%w: game is not in progress", ErrInvalidState)
	}

	if g.questionIndex+1 >= g.MaxQuestions {
		return g.finishLocked(), nil
	}

	var (
		card      *models.Card
		nextIndex int
		err       error
	)
	if g.Solo {
		card, nextIndex, err = g.nextSoloCard(cards)
	} else {
		card, err = cards.RandomCardFromSet(g.SetID)
		nextIndex = g.questionIndex + 1
	}
	if err != nil {
		if errors.Is(err, ErrSetExhausted) {
			return g.finishLocked(), nil
		}
		return nil, err
	}

	g.questionIndex = nextIndex
	g.currentCard = card
	g.answered = make(map[string]bool)
	g.touch()

	return &AdvanceOutcome{
		Card:           card,
		QuestionNumber: g.questionIndex + 1,
		TotalQuestions: g.MaxQuestions,
	}, nil
}

// nextSoloCard scans forward through the fixed sample for the next card that
// still exists in storage.
func (g *GameSession) nextSoloCard(cards CardStore) (*models.Card, int, error) {
	for i := g.questionIndex + 1; i < len(g.cardIDs); i++ {
		card, err := cards.GetCardByID(g.cardIDs[i])
		if err == nil {
			return card, i, nil
		}
		if !errors.Is(err, ErrCardNotFound) {
			return nil, 0, err
		}
	}
	return nil, 0, ErrSetExhausted
}

func (g *GameSession) finishLocked() *AdvanceOutcome {
	g.status = StatusFinished
	g.currentCard = nil
	g.touch()
	return &AdvanceOutcome{Finished: true, TotalQuestions: g.MaxQuestions}
}

// SubmitAnswer grades an answer against the current card and applies the
// result. One answer per player per round; solo games accumulate a single
// running score instead of the per-player tally.
func (g *GameSession) SubmitAnswer(username, answer string) (GradeResult, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusActive {
		return "", "", fmt.Errorf("%w: game is not in progress", ErrInvalidState)
	}
	if _, ok := g.board[username]; !ok {
		return "", "", fmt.Errorf("%w: %s is not a player in this game", ErrNotAuthorized, username)
	}
	if strings.TrimSpace(answer) == "" {
		return "", "", fmt.Errorf("%w: answer text required", ErrInvalidInput)
	}
	if g.currentCard == nil {
		return "", "", fmt.Errorf("%w: no question is active", ErrInvalidState)
	}
	if g.answered[username] {
		return "", "", fmt.Errorf("%w: already answered this round", ErrInvalidState)
	}

	result := GradeAnswer(answer, g.currentCard.Back)
	if g.Solo {
		switch result {
		case ResultCorrect:
			g.soloScore += pointsCorrect
		case ResultHalf:
			g.soloScore += pointsHalf
		}
	} else {
		g.board.Apply(username, result)
	}
	g.answered[username] = true
	g.touch()

	return result, g.currentCard.Back, nil
}

// End finishes the game immediately. Creator only.
func (g *GameSession) End(requester string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if requester != g.CreatorName {
		return fmt.Errorf("%w: only the creator can end the game", ErrNotAuthorized)
	}
	if g.status == StatusFinished {
		return fmt.Errorf("%w: game already finished", ErrInvalidState)
	}

	g.status = StatusFinished
	g.currentCard = nil
	g.touch()
	return nil
}

// IsPlayer reports whether username is on the roster.
func (g *GameSession) IsPlayer(username string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.board[username]
	return ok
}

// Status returns the current lifecycle state.
func (g *GameSession) Status() GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Scores returns a copy of the scoreboard safe to marshal without holding
// the session mutex.
func (g *GameSession) Scores() map[string]PlayerScore {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scoresLocked()
}

func (g *GameSession) scoresLocked() map[string]PlayerScore {
	scores := make(map[string]PlayerScore, len(g.board))
	for name, entry := range g.board {
		scores[name] = *entry
	}
	return scores
}

// Snapshot returns the public view of the session.
func (g *GameSession) Snapshot() GameSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	players := make([]string, 0, len(g.board))
	for name := range g.board {
		players = append(players, name)
	}

	snap := GameSnapshot{
		GameID:         g.GameID,
		SetID:          g.SetID,
		SetName:        g.SetName,
		Creator:        g.CreatorName,
		Solo:           g.Solo,
		Status:         g.status,
		QuestionIndex:  g.questionIndex,
		MaxQuestions:   g.MaxQuestions,
		Players:        players,
		Scores:         g.scoresLocked(),
		SoloScore:      g.soloScore,
		CreatedAt:      g.createdAt,
		LastActivityAt: g.lastActivity,
	}
	if g.currentCard != nil {
		snap.CurrentCardID = g.currentCard.ID
	}
	return snap
}

// CurrentCard returns the active card, or nil when no question is live.
func (g *GameSession) CurrentCard() *models.Card {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentCard
}

// SoloScore returns the running score of a solo game.
func (g *GameSession) SoloScore() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.soloScore
}

// LastActivity reports when the session last accepted a mutation.
func (g *GameSession) LastActivity() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActivity
}

func (g *GameSession) touch() {
	g.lastActivity = time.Now()
}
