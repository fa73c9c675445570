// Package match turns client intents into room, turn and engine operations.
// Every method resolves the room, takes its lock and leaves all event fan-out
// to the engine's gateway.
package match

import (
	"fmt"

	"github.com/duelhall/duelhall-server/internal/engine"
	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/duelhall/duelhall-server/internal/game/deck"
	"github.com/duelhall/duelhall-server/internal/game/rules"
	"github.com/duelhall/duelhall-server/internal/game/targeting"
	"github.com/duelhall/duelhall-server/internal/room"
	"go.uber.org/zap"
)

// Membership tells a client who it is after creating or joining a room.
type Membership struct {
	RoomID      string        `json:"roomId"`
	MemberID    string        `json:"playerId"`
	Spectator   bool          `json:"spectator"`
	Reconnected bool          `json:"reconnected"`
	Room        game.RoomView `json:"room"`
}

// Service applies intents. It is safe for concurrent use.
type Service struct {
	rooms   *room.Registry
	engine  *engine.Engine
	turns   *rules.Controller
	catalog *deck.Catalog
	logger  *zap.Logger
}

// NewService wires the intent service.
func NewService(rooms *room.Registry, eng *engine.Engine, turns *rules.Controller, catalog *deck.Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		rooms:   rooms,
		engine:  eng,
		turns:   turns,
		catalog: catalog,
		logger:  logger,
	}
}

// Rooms exposes the room registry.
func (s *Service) Rooms() *room.Registry {
	return s.rooms
}

// CreateRoom opens a room with the caller in seat 0.
func (s *Service) CreateRoom(roomName, playerName string) (Membership, error) {
	r, p, err := s.rooms.CreateRoom(roomName, playerName)
	if err != nil {
		return Membership{}, err
	}
	r.Lock()
	defer r.Unlock()
	return Membership{RoomID: r.ID, MemberID: p.ID, Room: r.View()}, nil
}

// JoinRoom seats the caller, makes them a spectator, or reconnects them by
// name.
func (s *Service) JoinRoom(roomID, playerName string, spectateOnly bool) (Membership, error) {
	res, err := s.rooms.JoinRoom(roomID, playerName, spectateOnly)
	if err != nil {
		return Membership{}, err
	}
	res.Room.Lock()
	defer res.Room.Unlock()
	return Membership{
		RoomID:      res.Room.ID,
		MemberID:    res.MemberID(),
		Spectator:   res.Spectator != nil,
		Reconnected: res.Reconnected,
		Room:        res.Room.View(),
	}, nil
}

// Welcome pushes the current room snapshot to everyone once a member's
// session is bound, plus the member's private hand if they hold a seat.
func (s *Service) Welcome(memberID string) error {
	r, err := s.rooms.RoomOf(memberID)
	if err != nil {
		return err
	}
	r.Lock()
	defer r.Unlock()

	s.engine.BroadcastState(r)
	if p, ok := r.Player(memberID); ok && r.State != game.StateWaiting {
		s.engine.SendHand(r, p)
	}
	return nil
}

// ListRooms summarizes every room.
func (s *Service) ListRooms() []game.RoomSummary {
	return s.rooms.ListRooms()
}

// StartGame deals a fresh deck and opens the first PLAY phase. Only a seated
// player of the room may start it.
func (s *Service) StartGame(memberID, roomID string) error {
	r, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return err
	}
	r.Lock()
	defer r.Unlock()

	if _, ok := r.Player(memberID); !ok {
		return fmt.Errorf("%s is not seated in room %s: %w", memberID, roomID, game.ErrPlayerNotFound)
	}
	hands, err := s.turns.StartGame(r, s.catalog.Build())
	if err != nil {
		return err
	}
	for _, p := range r.Players {
		if _, dealt := hands[p.ID]; dealt {
			s.engine.SendHand(r, p)
		}
	}
	s.engine.BroadcastState(r)
	return nil
}

// PlayCard validates and starts a card execution.
func (s *Service) PlayCard(playerID, cardID string, targetIDs []string) (engine.View, error) {
	r, err := s.rooms.RoomOf(playerID)
	if err != nil {
		return engine.View{}, err
	}
	r.Lock()
	defer r.Unlock()

	caster, ok := r.Player(playerID)
	if !ok {
		return engine.View{}, fmt.Errorf("spectators cannot play cards: %w", game.ErrPlayerNotFound)
	}
	card, ok := caster.HandCard(cardID)
	if !ok {
		return engine.View{}, fmt.Errorf("card %s not in %s's hand: %w", cardID, caster.Name, game.ErrCardNotFound)
	}
	if execID, active := r.ActiveExecution(); active {
		return engine.View{}, fmt.Errorf("execution %s is still resolving: %w", execID, game.ErrInvalidGameState)
	}
	targets, err := targeting.Resolve(card, caster, targetIDs, r)
	if err != nil {
		s.logger.Debug("play rejected",
			zap.String("room_id", r.ID),
			zap.String("player_id", playerID),
			zap.String("card_id", cardID),
			zap.Error(err),
		)
		return engine.View{}, err
	}
	return s.engine.Start(r, caster.ID, card.ID, targets)
}

// RespondToCard answers a nullification window.
func (s *Service) RespondToCard(playerID, executionID, responseCardID string, accept bool) (engine.View, error) {
	r, err := s.rooms.RoomOf(playerID)
	if err != nil {
		return engine.View{}, err
	}
	r.Lock()
	defer r.Unlock()
	return s.engine.Respond(r, playerID, executionID, responseCardID, accept)
}

// SelectFromOffer picks an item during a special execution.
func (s *Service) SelectFromOffer(playerID, executionID, itemID string) (engine.View, error) {
	r, err := s.rooms.RoomOf(playerID)
	if err != nil {
		return engine.View{}, err
	}
	r.Lock()
	defer r.Unlock()
	return s.engine.Select(r, playerID, executionID, itemID)
}

// EndTurn finishes the caller's turn and hands PLAY to the next living
// player. It returns the phase steps taken.
func (s *Service) EndTurn(playerID string) ([]rules.Transition, error) {
	r, err := s.rooms.RoomOf(playerID)
	if err != nil {
		return nil, err
	}
	r.Lock()
	defer r.Unlock()

	if r.State != game.StatePlaying {
		return nil, fmt.Errorf("room %s is %s: %w", r.ID, r.State, game.ErrInvalidGameState)
	}
	current, ok := r.CurrentPlayer()
	if !ok || current.ID != playerID {
		return nil, fmt.Errorf("only the current player can end the turn: %w", game.ErrInvalidGameState)
	}

	steps, err := s.turns.AdvanceToNextPlay(r)
	touched := make(map[string]bool)
	for _, t := range steps {
		if len(t.Drawn) > 0 || len(t.Discarded) > 0 {
			touched[t.PlayerID] = true
		}
	}
	for _, p := range r.Players {
		if touched[p.ID] {
			s.engine.SendHand(r, p)
		}
	}
	if len(steps) > 0 {
		s.engine.BroadcastState(r)
	}
	if err != nil {
		return steps, err
	}

	s.logger.Info("turn ended",
		zap.String("room_id", r.ID),
		zap.String("player_id", playerID),
		zap.Int("next_seat", r.CurrentPlayerIndex),
		zap.Int("turn", r.Turn),
	)
	return steps, nil
}

// Snapshot returns the public view of the member's room.
func (s *Service) Snapshot(memberID string) (game.RoomView, error) {
	r, err := s.rooms.RoomOf(memberID)
	if err != nil {
		return game.RoomView{}, err
	}
	r.Lock()
	defer r.Unlock()
	return r.View(), nil
}

// RoomView returns the public view of a room by id.
func (s *Service) RoomView(roomID string) (game.RoomView, error) {
	r, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return game.RoomView{}, err
	}
	r.Lock()
	defer r.Unlock()
	return r.View(), nil
}
