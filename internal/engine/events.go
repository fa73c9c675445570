package engine

import (
	"time"

	"github.com/duelhall/duelhall-server/internal/game"
)

// EventType names an outbound event.
type EventType string

const (
	EventCardExecutionStarted      EventType = "CardExecutionStarted"
	EventResponseRequired          EventType = "ResponseRequired"
	EventNullificationPhaseStarted EventType = "NullificationPhaseStarted"
	EventSpecialExecutionStarted   EventType = "SpecialExecutionStarted"
	EventSpecialExecutionUpdated   EventType = "SpecialExecutionUpdated"
	EventCardExecutionCompleted    EventType = "CardExecutionCompleted"
	EventGameStateUpdate           EventType = "GameStateUpdate"
	EventHandUpdate                EventType = "HandUpdate"
	EventError                     EventType = "Error"
	EventAck                       EventType = "Ack"
)

// ResponseKind tells a client what kind of answer a ResponseRequired expects.
type ResponseKind string

const (
	ResponseKindNullify ResponseKind = "NULLIFY"
	ResponseKindSelect  ResponseKind = "SELECT"
)

// Event is the envelope every outbound message travels in.
type Event struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"roomId,omitempty"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event for a room.
func NewEvent(eventType EventType, roomID string, payload any) Event {
	return Event{Type: eventType, RoomID: roomID, Payload: payload, Timestamp: time.Now()}
}

// Gateway delivers events to connected clients. Implementations must not
// block and must not take the room lock: the engine calls them while holding
// it.
type Gateway interface {
	// SendToPlayer is best effort; false means the player has no live session.
	SendToPlayer(playerID string, event Event) bool
	// BroadcastToRoom sends to every seated player and spectator with a live
	// session and returns how many received it.
	BroadcastToRoom(room *game.Room, event Event) int
}

type CardExecutionStarted struct {
	ExecutionID string   `json:"executionId"`
	CasterName  string   `json:"casterName"`
	CardName    string   `json:"cardName"`
	TargetNames []string `json:"targetNames"`
}

type ResponseRequired struct {
	ExecutionID      string       `json:"executionId"`
	TargetPlayerID   string       `json:"targetPlayerId"`
	ResponseKind     ResponseKind `json:"responseKind"`
	OriginalCard     game.Card    `json:"originalCard"`
	CasterName       string       `json:"casterName"`
	TimeoutMs        int64        `json:"timeoutMs"`
	AvailableOptions []game.Card  `json:"availableOptions,omitempty"`
}

type NullificationPhaseStarted struct {
	ExecutionID       string   `json:"executionId"`
	CardName          string   `json:"cardName"`
	CasterName        string   `json:"casterName"`
	EligiblePlayerIDs []string `json:"eligiblePlayerIds"`
}

type SpecialExecutionStarted struct {
	ExecutionID      string      `json:"executionId"`
	CardName         string      `json:"cardName"`
	CurrentPlayerID  string      `json:"currentPlayerId"`
	PickOrder        []string    `json:"pickOrder"`
	AvailableOptions []game.Card `json:"availableOptions"`
}

// SpecialExecutionUpdated follows each pick or forced abstention.
type SpecialExecutionUpdated struct {
	ExecutionID      string      `json:"executionId"`
	LastPlayerID     string      `json:"lastPlayerId"`
	LastPickID       string      `json:"lastPickId,omitempty"`
	CurrentPlayerID  string      `json:"currentPlayerId,omitempty"`
	AvailableOptions []game.Card `json:"availableOptions"`
}

type CardExecutionCompleted struct {
	ExecutionID string `json:"executionId"`
	Success     bool   `json:"success"`
	Blocked     bool   `json:"blocked"`
	Message     string `json:"message"`
}

type GameStateUpdate struct {
	Room game.RoomView `json:"room"`
}

// HandUpdate is sent privately to the hand's owner.
type HandUpdate struct {
	PlayerID string      `json:"playerId"`
	Cards    []game.Card `json:"cards"`
}

type ErrorPayload struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

type AckPayload struct {
	RequestID string `json:"requestId,omitempty"`
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
}
