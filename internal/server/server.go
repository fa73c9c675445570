// Package server exposes the match service over HTTP, WebSocket and gRPC.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/duelhall/duelhall-server/internal/match"
	"github.com/duelhall/duelhall-server/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrBadRequest marks a frame or body that could not be decoded.
	ErrBadRequest = errors.New("bad request")
	// ErrRateLimited is returned when a client sends intents too quickly.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Options configure the transports.
type Options struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	PingInterval    time.Duration
	// RateLimit is requests per second per client IP on the REST routes.
	RateLimit rate.Limit
	RateBurst int
}

// Server serves the REST routes and the WebSocket endpoint.
type Server struct {
	svc      *match.Service
	hub      *session.Hub
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New creates a transport server.
func New(svc *match.Service, hub *session.Hub, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 64 * 1024
	}
	s := &Server{
		svc:    svc,
		hub:    hub,
		opts:   opts,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// errorCode extends game.ErrorCode with transport-level failures.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "BAD_REQUEST"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	default:
		return game.ErrorCode(err)
	}
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, game.ErrInvalidTargets):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrPlayerNotFound), errors.Is(err, game.ErrCardNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidGameState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
