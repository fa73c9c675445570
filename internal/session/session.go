// Package session tracks live WebSocket connections and delivers engine
// events to them.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/duelhall/duelhall-server/internal/engine"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Session is one client connection. Outbound frames are queued on a bounded
// buffer and written by WritePump; a client that cannot keep up is dropped.
type Session struct {
	ID string

	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter
	opts    Options
	logger  *zap.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	memberID  string
}

func newSession(id string, conn *websocket.Conn, opts Options, logger *zap.Logger) *Session {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, opts.RateBurst)
	}
	return &Session{
		ID:      id,
		conn:    conn,
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
		opts:    opts,
		logger:  logger.With(zap.String("session_id", id)),
	}
}

// MemberID returns the player or spectator this session acts for, or "" if
// it has not joined a room yet.
func (s *Session) MemberID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberID
}

func (s *Session) setMember(memberID string) {
	s.mu.Lock()
	s.memberID = memberID
	s.mu.Unlock()
}

// Allow reports whether another inbound intent fits the session's rate limit.
func (s *Session) Allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// Send encodes and queues an event. It never blocks.
func (s *Session) Send(event engine.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return false
	}
	return s.enqueue(data)
}

func (s *Session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		s.logger.Warn("send buffer full, dropping session")
		s.Close()
		return false
	}
}

// Outbound exposes the queued frames.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close ends the session. It is safe to call more than once. WritePump
// sends the close frame and releases the connection.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// WritePump writes queued frames and keepalive pings until the session is
// closed or a write fails.
func (s *Session) WritePump() {
	var tick <-chan time.Time
	if s.opts.PingInterval > 0 {
		ticker := time.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() {
		s.Close()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			err := s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.opts.WriteTimeout))
			if err != nil {
				s.logger.Debug("close frame failed", zap.Error(err))
			}
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-tick:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteTimeout)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
