package services

const (
	pointsCorrect = 5.0
	pointsHalf    = 2.5
)

// PlayerScore holds one player's tally for a single game.
type PlayerScore struct {
	Correct int     `json:"correct"`
	Half    int     `json:"half"`
	Wrong   int     `json:"wrong"`
	Grade   float64 `json:"grade"`
}

// Scoreboard maps player usernames to their scores. The key set doubles as
// the game's player roster: a player is in the game iff they have an entry.
type Scoreboard map[string]*PlayerScore

// Apply increments the counter matching result and recomputes the grade from
// the counters. A zero entry is created for players not seen before.
func (b Scoreboard) Apply(username string, result GradeResult) *PlayerScore {
	entry, ok := b[username]
	if !ok {
		entry = &PlayerScore{}
		b[username] = entry
	}

	switch result {
	case ResultCorrect:
		entry.Correct++
	case ResultHalf:
		entry.Half++
	case ResultWrong:
		entry.Wrong++
	}

	// Grade is always derived from the counters, never adjusted in place.
	entry.Grade = float64(entry.Correct)*pointsCorrect + float64(entry.Half)*pointsHalf
	return entry
}
