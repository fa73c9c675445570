package game

import (
	"sync"
	"time"
)

// GameState represents the lifecycle state of a room's game.
type GameState string

const (
	StateWaiting  GameState = "WAITING"
	StatePlaying  GameState = "PLAYING"
	StateFinished GameState = "FINISHED"
)

// Phase is a step of the per-player turn cycle.
type Phase string

const (
	PhaseDraw    Phase = "DRAW"
	PhasePlay    Phase = "PLAY"
	PhaseDiscard Phase = "DISCARD"
)

// Shuffler permutes cards in place.
type Shuffler func(cards []Card)

// Room is the unit of isolation. All fields are guarded by the room lock;
// every method below expects the caller to hold it, except Lock and Unlock.
type Room struct {
	ID                 string
	Name               string
	Players            []*Player
	Spectators         []*Spectator
	State              GameState
	Phase              Phase
	CurrentPlayerIndex int
	Turn               int
	MaxSeats           int
	DrawPile           []Card
	DiscardPile        []Card
	PlayedThisTurn     []PlayedCard
	Winners            []string
	CreatedAt          time.Time
	StartedAt          time.Time

	activeExecution string
	shuffle         Shuffler
	mu              sync.Mutex
}

// NewRoom creates an empty waiting room.
func NewRoom(id, name string, maxSeats int, shuffle Shuffler) *Room {
	return &Room{
		ID:             id,
		Name:           name,
		Players:        make([]*Player, 0, maxSeats),
		Spectators:     make([]*Spectator, 0),
		State:          StateWaiting,
		Phase:          PhaseDraw,
		MaxSeats:       maxSeats,
		DrawPile:       make([]Card, 0),
		DiscardPile:    make([]Card, 0),
		PlayedThisTurn: make([]PlayedCard, 0),
		CreatedAt:      time.Now(),
		shuffle:        shuffle,
	}
}

// Lock acquires the room lock.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room lock.
func (r *Room) Unlock() { r.mu.Unlock() }

// Player returns a seated player by id.
func (r *Room) Player(playerID string) (*Player, bool) {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return nil, false
}

// PlayerByName returns a seated player by display name.
func (r *Room) PlayerByName(name string) (*Player, bool) {
	for _, p := range r.Players {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// SpectatorByName returns a spectator by display name.
func (r *Room) SpectatorByName(name string) (*Spectator, bool) {
	for _, s := range r.Spectators {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// HasMember reports whether the id belongs to a seated player or spectator.
func (r *Room) HasMember(id string) bool {
	if _, ok := r.Player(id); ok {
		return true
	}
	for _, s := range r.Spectators {
		if s.ID == id {
			return true
		}
	}
	return false
}

// MemberIDs returns seated player ids followed by spectator ids.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Players)+len(r.Spectators))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	for _, s := range r.Spectators {
		ids = append(ids, s.ID)
	}
	return ids
}

// SeatsFull reports whether every seat is taken.
func (r *Room) SeatsFull() bool {
	return r.MaxSeats > 0 && len(r.Players) >= r.MaxSeats
}

// LivingPlayers returns living seated players in seating order.
func (r *Room) LivingPlayers() []*Player {
	living := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.IsAlive() {
			living = append(living, p)
		}
	}
	return living
}

// LivingPlayerIDs returns ids of living seated players in seating order.
func (r *Room) LivingPlayerIDs() []string {
	living := r.LivingPlayers()
	ids := make([]string, len(living))
	for i, p := range living {
		ids[i] = p.ID
	}
	return ids
}

// CurrentPlayer returns the player whose turn it is.
func (r *Room) CurrentPlayer() (*Player, bool) {
	if r.CurrentPlayerIndex < 0 || r.CurrentPlayerIndex >= len(r.Players) {
		return nil, false
	}
	return r.Players[r.CurrentPlayerIndex], true
}

// ActiveExecution returns the id of the in-flight execution, if any.
func (r *Room) ActiveExecution() (string, bool) {
	return r.activeExecution, r.activeExecution != ""
}

// SetActiveExecution claims the room's single execution slot.
func (r *Room) SetActiveExecution(executionID string) bool {
	if r.activeExecution != "" {
		return false
	}
	r.activeExecution = executionID
	return true
}

// ClearActiveExecution releases the slot if it still holds executionID.
func (r *Room) ClearActiveExecution(executionID string) bool {
	if r.activeExecution != executionID {
		return false
	}
	r.activeExecution = ""
	return true
}

// ForceClearActiveExecution releases the slot unconditionally.
func (r *Room) ForceClearActiveExecution() string {
	prev := r.activeExecution
	r.activeExecution = ""
	return prev
}

// RecordPlay appends to the per-turn played log.
func (r *Room) RecordPlay(entry PlayedCard) {
	r.PlayedThisTurn = append(r.PlayedThisTurn, entry)
}

// FinishIfDecided ends the game when a seated player has reached zero health.
// The remaining living players become the winners.
func (r *Room) FinishIfDecided() bool {
	if r.State != StatePlaying {
		return false
	}
	someoneDown := false
	for _, p := range r.Players {
		if !p.IsAlive() {
			someoneDown = true
			break
		}
	}
	if !someoneDown {
		return false
	}
	r.State = StateFinished
	r.Winners = r.LivingPlayerIDs()
	return true
}
