// Package room keeps every live room in memory and maps members back to
// their room.
package room

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure newly created rooms.
type Options struct {
	MaxSeats       int
	StartingHealth int
	Shuffle        game.Shuffler
}

// JoinResult reports who joined and how. Exactly one of Player or Spectator
// is set.
type JoinResult struct {
	Room        *game.Room
	Player      *game.Player
	Spectator   *game.Spectator
	Reconnected bool
}

// MemberID returns the id of whoever joined.
func (j JoinResult) MemberID() string {
	if j.Player != nil {
		return j.Player.ID
	}
	if j.Spectator != nil {
		return j.Spectator.ID
	}
	return ""
}

// Registry owns room id -> room and member id -> room id. Lock order is
// registry, then room.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*game.Room
	members map[string]string
	opts    Options
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxSeats < 2 {
		opts.MaxSeats = 2
	}
	if opts.StartingHealth < 1 {
		opts.StartingHealth = 4
	}
	return &Registry{
		rooms:   make(map[string]*game.Room),
		members: make(map[string]string),
		opts:    opts,
		logger:  logger,
	}
}

// CreateRoom creates a waiting room and seats its first player.
func (r *Registry) CreateRoom(name, firstPlayerName string) (*game.Room, *game.Player, error) {
	name = strings.TrimSpace(name)
	firstPlayerName = strings.TrimSpace(firstPlayerName)
	if firstPlayerName == "" {
		return nil, nil, fmt.Errorf("player name is required: %w", game.ErrInvalidGameState)
	}
	if name == "" {
		name = firstPlayerName + "'s table"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room := game.NewRoom(uuid.NewString(), name, r.opts.MaxSeats, r.opts.Shuffle)
	player := game.NewPlayer(uuid.NewString(), firstPlayerName, r.opts.StartingHealth)
	room.Players = append(room.Players, player)

	r.rooms[room.ID] = room
	r.members[player.ID] = room.ID

	r.logger.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("name", name),
		zap.String("player_id", player.ID),
	)
	return room, player, nil
}

// GetRoom returns a room by id.
func (r *Registry) GetRoom(roomID string) (*game.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, game.ErrRoomNotFound)
	}
	return room, nil
}

// ListRooms returns a summary of every room, oldest first.
func (r *Registry) ListRooms() []game.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]game.RoomSummary, 0, len(r.rooms))
	for _, room := range r.rooms {
		room.Lock()
		summaries = append(summaries, room.Summary())
		room.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].RoomID < summaries[j].RoomID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries
}

// JoinRoom seats or seats-as-spectator a member by name. A name already
// present in the room reconnects to that identity. Joiners become spectators
// when the game has started, the seats are full, or spectateOnly is set.
func (r *Registry) JoinRoom(roomID, name string, spectateOnly bool) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return JoinResult{}, fmt.Errorf("player name is required: %w", game.ErrInvalidGameState)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return JoinResult{}, fmt.Errorf("room %s: %w", roomID, game.ErrRoomNotFound)
	}
	room.Lock()
	defer room.Unlock()

	if p, ok := room.PlayerByName(name); ok {
		r.members[p.ID] = room.ID
		r.logger.Info("player reconnected",
			zap.String("room_id", room.ID),
			zap.String("player_id", p.ID),
		)
		return JoinResult{Room: room, Player: p, Reconnected: true}, nil
	}
	if s, ok := room.SpectatorByName(name); ok {
		r.members[s.ID] = room.ID
		r.logger.Info("spectator reconnected",
			zap.String("room_id", room.ID),
			zap.String("spectator_id", s.ID),
		)
		return JoinResult{Room: room, Spectator: s, Reconnected: true}, nil
	}

	if spectateOnly || room.State != game.StateWaiting || room.SeatsFull() {
		s := &game.Spectator{ID: uuid.NewString(), Name: name, JoinedAt: time.Now()}
		room.Spectators = append(room.Spectators, s)
		r.members[s.ID] = room.ID
		r.logger.Info("spectator joined",
			zap.String("room_id", room.ID),
			zap.String("spectator_id", s.ID),
			zap.Bool("requested", spectateOnly),
		)
		return JoinResult{Room: room, Spectator: s}, nil
	}

	p := game.NewPlayer(uuid.NewString(), name, r.opts.StartingHealth)
	room.Players = append(room.Players, p)
	r.members[p.ID] = room.ID
	r.logger.Info("player joined",
		zap.String("room_id", room.ID),
		zap.String("player_id", p.ID),
		zap.Int("seat", len(room.Players)-1),
	)
	return JoinResult{Room: room, Player: p}, nil
}

// RoomOf resolves the room a player or spectator belongs to.
func (r *Registry) RoomOf(memberID string) (*game.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.members[memberID]
	if !ok {
		return nil, fmt.Errorf("no room for member %s: %w", memberID, game.ErrRoomNotFound)
	}
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, game.ErrRoomNotFound)
	}
	return room, nil
}

// RemoveRoom drops a room and its member index entries.
func (r *Registry) RemoveRoom(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(roomID)
}

func (r *Registry) removeLocked(roomID string) bool {
	if _, ok := r.rooms[roomID]; !ok {
		return false
	}
	delete(r.rooms, roomID)
	for member, id := range r.members {
		if id == roomID {
			delete(r.members, member)
		}
	}
	r.logger.Info("room removed", zap.String("room_id", roomID))
	return true
}

// Count returns the number of rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// LiveFunc reports whether any of the given members has a live session.
type LiveFunc func(memberIDs []string) bool

// Reap removes rooms older than ttl that are waiting or finished and have no
// live sessions. It returns the removed room ids.
func (r *Registry) Reap(ttl time.Duration, live LiveFunc) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	var removed []string
	for id, room := range r.rooms {
		room.Lock()
		idle := room.State != game.StatePlaying && room.CreatedAt.Before(cutoff)
		members := room.MemberIDs()
		room.Unlock()
		if !idle || (live != nil && live(members)) {
			continue
		}
		if r.removeLocked(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

// RunReaper calls Reap every interval until ctx is done.
func (r *Registry) RunReaper(ctx context.Context, interval, ttl time.Duration, live LiveFunc) error {
	if interval <= 0 || ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := r.Reap(ttl, live); len(removed) > 0 {
				r.logger.Info("reaped idle rooms", zap.Int("count", len(removed)))
			}
		}
	}
}
