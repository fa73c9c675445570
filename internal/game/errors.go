package game

import "errors"

var (
	// ErrRoomNotFound is returned when a room id (or a player's room) cannot be resolved.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPlayerNotFound is returned when a player id is not seated in the room.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrCardNotFound is returned when a card id is absent from the acting player's hand
	// or from an offered pool.
	ErrCardNotFound = errors.New("card not found")
	// ErrInvalidGameState covers wrong room state, wrong phase, and acting out of turn.
	ErrInvalidGameState = errors.New("invalid game state")
	// ErrInvalidTargets is returned when the supplied targets do not fit the card's arity.
	ErrInvalidTargets = errors.New("invalid targets")
	// ErrExecutionEngine signals an invariant violation inside the execution engine.
	ErrExecutionEngine = errors.New("execution engine error")
)

// ErrorCode maps an error to a stable code suitable for clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, ErrPlayerNotFound):
		return "PLAYER_NOT_FOUND"
	case errors.Is(err, ErrCardNotFound):
		return "CARD_NOT_FOUND"
	case errors.Is(err, ErrInvalidGameState):
		return "INVALID_GAME_STATE"
	case errors.Is(err, ErrInvalidTargets):
		return "INVALID_TARGETS"
	case errors.Is(err, ErrExecutionEngine):
		return "EXECUTION_ENGINE_ERROR"
	default:
		return "INTERNAL"
	}
}
