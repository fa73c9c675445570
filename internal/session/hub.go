package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/duelhall/duelhall-server/internal/engine"
	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options tune every session the hub opens.
type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	// RateLimit is inbound intents per second; zero disables limiting.
	RateLimit rate.Limit
	RateBurst int
}

// Hub maps sessions to the members they act for. It implements
// engine.Gateway.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	members  map[string]*Session
	opts     Options
	logger   *zap.Logger
}

var _ engine.Gateway = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	return &Hub{
		sessions: make(map[string]*Session),
		members:  make(map[string]*Session),
		opts:     opts,
		logger:   logger,
	}
}

// Open registers a new connection. conn may be nil for sessions that are
// drained through Outbound.
func (h *Hub) Open(conn *websocket.Conn) *Session {
	s := newSession(uuid.NewString(), conn, h.opts, h.logger)

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	h.logger.Debug("session opened", zap.String("session_id", s.ID))
	return s
}

// Bind attaches a session to a member id. A previous session for the same
// member is superseded and closed.
func (h *Hub) Bind(s *Session, memberID string) {
	h.mu.Lock()
	prev := h.members[memberID]
	if old := s.MemberID(); old != "" && old != memberID && h.members[old] == s {
		delete(h.members, old)
	}
	h.members[memberID] = s
	s.setMember(memberID)
	h.mu.Unlock()

	if prev != nil && prev != s {
		prev.setMember("")
		prev.Close()
		h.logger.Info("session superseded",
			zap.String("player_id", memberID),
			zap.String("session_id", prev.ID),
		)
	}
	h.logger.Debug("session bound",
		zap.String("session_id", s.ID),
		zap.String("player_id", memberID),
	)
}

// Close unregisters and closes a session.
func (h *Hub) Close(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID)
	if id := s.MemberID(); id != "" && h.members[id] == s {
		delete(h.members, id)
	}
	h.mu.Unlock()

	s.Close()
	h.logger.Debug("session closed", zap.String("session_id", s.ID))
}

// SendToPlayer queues an event for one member.
func (h *Hub) SendToPlayer(playerID string, event engine.Event) bool {
	h.mu.RLock()
	s, ok := h.members[playerID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return s.Send(event)
}

// BroadcastToRoom queues an event for every seated player and spectator with
// a live session. The caller holds the room lock.
func (h *Hub) BroadcastToRoom(room *game.Room, event engine.Event) int {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode broadcast",
			zap.String("room_id", room.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return 0
	}

	ids := room.MemberIDs()
	h.mu.RLock()
	targets := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := h.members[id]; ok {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.enqueue(data) {
			delivered++
		}
	}
	return delivered
}

// Live reports whether any of the members has a bound session.
func (h *Hub) Live(memberIDs []string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range memberIDs {
		if _, ok := h.members[id]; ok {
			return true
		}
	}
	return false
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[string]*Session)
	h.members = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	h.logger.Info("sessions closed", zap.Int("count", len(sessions)))
}
