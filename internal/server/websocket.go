package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/duelhall/duelhall-server/internal/engine"
	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/duelhall/duelhall-server/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ServeWS upgrades the request and runs the session's read loop on the
// calling goroutine.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sess := s.hub.Open(conn)
	s.logger.Info("websocket connected",
		zap.String("session_id", sess.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)
	go sess.WritePump()
	s.readLoop(sess, conn)
}

// readLoop dispatches frames one at a time so a session's intents apply in
// arrival order.
func (s *Server) readLoop(sess *session.Session, conn *websocket.Conn) {
	defer func() {
		s.hub.Close(sess)
		s.logger.Info("websocket disconnected",
			zap.String("session_id", sess.ID),
			zap.String("player_id", sess.MemberID()),
		)
	}()

	conn.SetReadLimit(s.opts.MaxMessageSize)
	if s.opts.PingInterval > 0 {
		wait := 2 * s.opts.PingInterval
		conn.SetReadDeadline(time.Now().Add(wait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", zap.String("session_id", sess.ID), zap.Error(err))
			}
			return
		}
		s.dispatch(sess, data)
	}
}

// dispatch handles one frame. Every frame yields exactly one Ack or one
// Error to the sender.
func (s *Server) dispatch(sess *session.Session, data []byte) {
	var env Envelope
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling intent",
				zap.String("session_id", sess.ID),
				zap.String("type", env.Type),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			s.reject(sess, env.RequestID, fmt.Errorf("internal error: %w", game.ErrExecutionEngine))
		}
	}()

	if err := json.Unmarshal(data, &env); err != nil {
		s.reject(sess, "", fmt.Errorf("malformed frame: %v: %w", err, ErrBadRequest))
		return
	}
	if !sess.Allow() {
		s.reject(sess, env.RequestID, ErrRateLimited)
		return
	}

	result, after, err := s.handle(sess, env)
	if err != nil {
		s.reject(sess, env.RequestID, err)
		return
	}
	sess.Send(engine.NewEvent(engine.EventAck, "", engine.AckPayload{
		RequestID: env.RequestID,
		OK:        true,
		Data:      result,
	}))
	if after != nil {
		after()
	}
}

func (s *Server) reject(sess *session.Session, requestID string, err error) {
	s.logger.Debug("intent rejected",
		zap.String("session_id", sess.ID),
		zap.String("request_id", requestID),
		zap.String("code", errorCode(err)),
		zap.Error(err),
	)
	sess.Send(engine.NewEvent(engine.EventError, "", engine.ErrorPayload{
		Message:   err.Error(),
		Code:      errorCode(err),
		RequestID: requestID,
	}))
}

// handle applies an intent and returns the Ack data plus an optional step to
// run after the Ack is queued.
func (s *Server) handle(sess *session.Session, env Envelope) (any, func(), error) {
	switch env.Type {
	case IntentCreateRoom:
		var in CreateRoomIntent
		if err := decode(env.Payload, &in); err != nil {
			return nil, nil, err
		}
		m, err := s.svc.CreateRoom(in.RoomName, in.PlayerName)
		if err != nil {
			return nil, nil, err
		}
		return m, s.bind(sess, m.MemberID), nil

	case IntentJoinRoom:
		var in JoinRoomIntent
		if err := decode(env.Payload, &in); err != nil {
			return nil, nil, err
		}
		m, err := s.svc.JoinRoom(in.RoomID, in.PlayerName, in.SpectateOnly)
		if err != nil {
			return nil, nil, err
		}
		return m, s.bind(sess, m.MemberID), nil

	case IntentListRooms:
		return s.svc.ListRooms(), nil, nil

	case IntentStartGame:
		var in StartGameIntent
		if err := decode(env.Payload, &in); err != nil {
			return nil, nil, err
		}
		actor, err := actorOf(sess, "")
		if err != nil {
			return nil, nil, err
		}
		roomID := in.RoomID
		if roomID == "" {
			r, err := s.svc.Rooms().RoomOf(actor)
			if err != nil {
				return nil, nil, err
			}
			roomID = r.ID
		}
		return nil, nil, s.svc.StartGame(actor, roomID)

	case IntentPlayCard:
		var in PlayCardIntent
		if err := decode(env.Payload, &in); err != nil {
			return nil, nil, err
		}
		actor, err := actorOf(sess, in.PlayerID)
		if err != nil {
			return nil, nil, err
		}
		view, err := s.svc.PlayCard(actor, in.CardID, in.TargetIDs)
		return view, nil, err

	case IntentRespondToCard:
		var in RespondToCardIntent
		if err := decode(env.Payload, &in); err != nil {
			return nil, nil, err
		}
		actor, err := actorOf(sess, in.PlayerID)
		if err != nil {
			return nil, nil, err
		}
		view, err := s.svc.RespondToCard(actor, in.ExecutionID, in.ResponseCardID, in.Accept)
		return view, nil, err

	case IntentSelectFromOffer:
		var in SelectFromOfferIntent
		if err := decode(env.Payload, &in); err != nil {
			return nil, nil, err
		}
		actor, err := actorOf(sess, in.PlayerID)
		if err != nil {
			return nil, nil, err
		}
		view, err := s.svc.SelectFromOffer(actor, in.ExecutionID, in.SelectedItemID)
		return view, nil, err

	case IntentEndTurn:
		var in EndTurnIntent
		if err := decode(env.Payload, &in); err != nil {
			return nil, nil, err
		}
		actor, err := actorOf(sess, in.PlayerID)
		if err != nil {
			return nil, nil, err
		}
		_, err = s.svc.EndTurn(actor)
		return nil, nil, err

	default:
		return nil, nil, fmt.Errorf("unknown intent %q: %w", env.Type, ErrBadRequest)
	}
}

// bind attaches the session to its member and returns the welcome step.
func (s *Server) bind(sess *session.Session, memberID string) func() {
	s.hub.Bind(sess, memberID)
	return func() {
		if err := s.svc.Welcome(memberID); err != nil {
			s.logger.Warn("welcome failed", zap.String("player_id", memberID), zap.Error(err))
		}
	}
}

// actorOf returns the member a session acts for. A claimed id must match the
// session's own.
func actorOf(sess *session.Session, claimed string) (string, error) {
	bound := sess.MemberID()
	if bound == "" {
		return "", fmt.Errorf("join a room first: %w", game.ErrPlayerNotFound)
	}
	if claimed != "" && claimed != bound {
		return "", fmt.Errorf("session acts for %s, not %s: %w", bound, claimed, game.ErrPlayerNotFound)
	}
	return bound, nil
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("malformed payload: %v: %w", err, ErrBadRequest)
	}
	return nil
}
