package services

import "errors"

// Common errors used across the game engine
var (
	// Identity errors
	ErrNotAuthenticated = errors.New("no verified player identity")
	ErrNotAuthorized    = errors.New("not permitted to perform this action")
	ErrUserNotFound     = errors.New("user not found")

	// Lookup errors
	ErrGameNotFound = errors.New("game not found")
	ErrSetNotFound  = errors.New("card set not found")
	ErrCardNotFound = errors.New("card not found")

	// State errors
	ErrInvalidState = errors.New("action not valid in current game state")
	ErrInvalidInput = errors.New("missing or malformed input")
	ErrSetExhausted = errors.New("card set has no usable cards")

	// Registry errors
	ErrTooManyGames = errors.New("too many active games")
)
