// Package engine drives a played card through targeting, the nullification
// window, resolution and any special protocol until it completes.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/duelhall/duelhall-server/internal/game/targeting"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStaleResponse is returned for a response or selection that names an
// execution the room is no longer running.
var ErrStaleResponse = fmt.Errorf("stale response: %w", game.ErrExecutionEngine)

// EffectResolver applies a card's effect and reports the outcome. It runs
// under the room lock.
type EffectResolver interface {
	Resolve(card game.Card, caster *game.Player, targetIDs []string, room *game.Room) game.Outcome
}

// Options configure the engine.
type Options struct {
	// ResponseTimeout bounds every response window. Zero disables timers.
	ResponseTimeout time.Duration
}

// Engine is the card execution state machine. Every exported method except
// Close expects the caller to hold the room lock; timer callbacks take it
// themselves.
type Engine struct {
	registry *Registry
	resolver EffectResolver
	gateway  Gateway
	opts     Options
	logger   *zap.Logger
	closed   atomic.Bool
}

// New creates an engine.
func New(resolver EffectResolver, gateway Gateway, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gateway == nil {
		gateway = nopGateway{}
	}
	return &Engine{
		registry: NewRegistry(),
		resolver: resolver,
		gateway:  gateway,
		opts:     opts,
		logger:   logger,
	}
}

// Registry exposes the execution registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Close stops timers from acting. Pending callbacks become no-ops.
func (e *Engine) Close() {
	e.closed.Store(true)
}

// Active returns the room's in-flight execution.
func (e *Engine) Active(room *game.Room) (View, bool) {
	x, ok := e.registry.ForRoom(room.ID)
	if !ok {
		return View{}, false
	}
	return x.view(), true
}

// Start plays cardID from the caster's hand at targets and drives the
// execution as far as it can go without further input. Targets must already
// have passed the validity check.
func (e *Engine) Start(room *game.Room, casterID, cardID string, targets []string) (View, error) {
	if execID, active := room.ActiveExecution(); active {
		return View{}, fmt.Errorf("execution %s is still resolving: %w", execID, game.ErrInvalidGameState)
	}
	if x, ok := e.registry.ForRoom(room.ID); ok {
		e.logger.Error("registry holds an execution the room does not",
			zap.String("room_id", room.ID),
			zap.String("execution_id", x.ID),
		)
		e.forceComplete(room, x, fmt.Errorf("orphaned execution: %w", game.ErrExecutionEngine))
		return View{}, fmt.Errorf("orphaned execution %s cleared: %w", x.ID, game.ErrExecutionEngine)
	}
	caster, ok := room.Player(casterID)
	if !ok {
		return View{}, fmt.Errorf("caster %s: %w", casterID, game.ErrPlayerNotFound)
	}
	card, ok := caster.RemoveFromHand(cardID)
	if !ok {
		return View{}, fmt.Errorf("card %s not in %s's hand: %w", cardID, caster.Name, game.ErrCardNotFound)
	}

	x := &Execution{
		ID:               uuid.NewString(),
		RoomID:           room.ID,
		Card:             card,
		CasterID:         caster.ID,
		RequestedTargets: append([]string(nil), targets...),
		Targets:          append([]string(nil), targets...),
		StartedAt:        time.Now(),
		state:            &targetingState{},
	}
	if err := e.registry.Add(x); err != nil {
		caster.AddToHand(card)
		return View{}, err
	}
	if !room.SetActiveExecution(x.ID) {
		e.registry.Remove(x.ID)
		caster.AddToHand(card)
		return View{}, fmt.Errorf("room %s execution slot taken: %w", room.ID, game.ErrExecutionEngine)
	}

	e.logger.Info("card execution started",
		zap.String("room_id", room.ID),
		zap.String("execution_id", x.ID),
		zap.String("player_id", caster.ID),
		zap.String("card_id", card.ID),
		zap.String("targets", targeting.FormatTargets(x.Targets)),
	)
	e.broadcast(room, EventCardExecutionStarted, CardExecutionStarted{
		ExecutionID: x.ID,
		CasterName:  caster.Name,
		CardName:    card.Name,
		TargetNames: playerNames(room, x.Targets),
	})
	e.SendHand(room, caster)

	switch {
	case card.IsInstant():
		e.enterResolution(room, x)
	case card.IsTrick():
		e.enterNullification(room, x)
	default:
		e.enterResolution(room, x)
	}
	return x.view(), nil
}

// Respond applies a nullification response. accept with a negation card from
// the responder's hand blocks the execution; anything else is a decline.
// executionID may be empty to mean the room's active execution.
func (e *Engine) Respond(room *game.Room, playerID, executionID, responseCardID string, accept bool) (View, error) {
	x, err := e.lookup(room, executionID)
	if err != nil {
		return View{}, err
	}
	if _, ok := x.state.(*nullificationState); !ok {
		return View{}, fmt.Errorf("execution %s is in %s: %w", x.ID, x.Phase(), game.ErrInvalidGameState)
	}
	responder, ok := room.Player(playerID)
	if !ok {
		return View{}, fmt.Errorf("responder %s: %w", playerID, game.ErrPlayerNotFound)
	}
	if !e.isEligible(room, x, playerID) {
		return View{}, fmt.Errorf("%s cannot respond to execution %s: %w", responder.Name, x.ID, game.ErrInvalidGameState)
	}

	if accept {
		if responseCardID == "" {
			return View{}, fmt.Errorf("no negation card supplied: %w", game.ErrCardNotFound)
		}
		negation, ok := responder.HandCard(responseCardID)
		if !ok || !negation.Negates {
			return View{}, fmt.Errorf("%s holds no negation card %s: %w", responder.Name, responseCardID, game.ErrCardNotFound)
		}
		responder.RemoveFromHand(negation.ID)
		room.Discard(negation)
		x.record(responder.ID, negation.ID, ResponseNegate)
		x.Blocked = true
		e.disarm(x)

		e.logger.Info("card execution blocked",
			zap.String("room_id", room.ID),
			zap.String("execution_id", x.ID),
			zap.String("player_id", responder.ID),
			zap.String("card_id", negation.ID),
		)
		e.SendHand(room, responder)
		e.complete(room, x, Result{
			Success:   false,
			Blocked:   true,
			BlockedBy: responder.ID,
			Message:   fmt.Sprintf("%s was blocked by %s", x.Card.Name, responder.Name),
		})
		return x.view(), nil
	}

	x.record(responder.ID, "", ResponseDecline)
	e.logger.Debug("response declined",
		zap.String("room_id", room.ID),
		zap.String("execution_id", x.ID),
		zap.String("player_id", responder.ID),
	)
	if len(e.eligible(room, x)) == 0 {
		e.disarm(x)
		e.enterResolution(room, x)
	}
	return x.view(), nil
}

// Select picks an offered item during a special protocol. Only the player at
// the cursor may pick, and only an item still on offer.
func (e *Engine) Select(room *game.Room, playerID, executionID, itemID string) (View, error) {
	x, err := e.lookup(room, executionID)
	if err != nil {
		return View{}, err
	}
	st, ok := x.state.(*specialState)
	if !ok {
		return View{}, fmt.Errorf("execution %s is in %s: %w", x.ID, x.Phase(), game.ErrInvalidGameState)
	}
	picker, ok := room.Player(playerID)
	if !ok {
		return View{}, fmt.Errorf("picker %s: %w", playerID, game.ErrPlayerNotFound)
	}
	card, err := st.protocol.Select(playerID, itemID)
	if err != nil {
		return View{}, err
	}
	picker.AddToHand(card)
	x.record(picker.ID, card.ID, ResponseSelect)
	e.logger.Debug("item selected",
		zap.String("room_id", room.ID),
		zap.String("execution_id", x.ID),
		zap.String("player_id", picker.ID),
		zap.String("card_id", card.ID),
	)
	e.SendHand(room, picker)
	e.advanceSpecial(room, x, st, picker.ID, card.ID)
	return x.view(), nil
}

// ForceComplete ends the room's active execution with a failure. It is the
// recovery path for invariant violations and reports whether anything was
// cleared.
func (e *Engine) ForceComplete(room *game.Room, cause error) bool {
	if x, ok := e.registry.ForRoom(room.ID); ok {
		e.forceComplete(room, x, cause)
		return true
	}
	if prev := room.ForceClearActiveExecution(); prev != "" {
		e.logger.Error("cleared dangling execution slot",
			zap.String("room_id", room.ID),
			zap.String("execution_id", prev),
			zap.Error(cause),
		)
		return true
	}
	return false
}

func (e *Engine) lookup(room *game.Room, executionID string) (*Execution, error) {
	activeID, ok := room.ActiveExecution()
	if !ok {
		return nil, fmt.Errorf("no card is resolving in room %s: %w", room.ID, ErrStaleResponse)
	}
	if executionID != "" && executionID != activeID {
		return nil, fmt.Errorf("execution %s is not active: %w", executionID, ErrStaleResponse)
	}
	x, ok := e.registry.Get(activeID)
	if !ok {
		cause := fmt.Errorf("room %s points at unknown execution %s: %w", room.ID, activeID, game.ErrExecutionEngine)
		e.ForceComplete(room, cause)
		return nil, cause
	}
	return x, nil
}

func (e *Engine) eligible(room *game.Room, x *Execution) []string {
	ids := make([]string, 0, len(room.Players))
	for _, p := range room.LivingPlayers() {
		if p.ID == x.CasterID || x.hasResponded(p.ID) {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}

func (e *Engine) isEligible(room *game.Room, x *Execution, playerID string) bool {
	for _, id := range e.eligible(room, x) {
		if id == playerID {
			return true
		}
	}
	return false
}

func (e *Engine) enterNullification(room *game.Room, x *Execution) {
	eligible := e.eligible(room, x)
	if len(eligible) == 0 {
		e.logger.Debug("no eligible responders",
			zap.String("room_id", room.ID),
			zap.String("execution_id", x.ID),
		)
		e.enterResolution(room, x)
		return
	}
	x.state = &nullificationState{openedAt: time.Now()}

	casterName := playerName(room, x.CasterID)
	e.broadcast(room, EventNullificationPhaseStarted, NullificationPhaseStarted{
		ExecutionID:       x.ID,
		CardName:          x.Card.Name,
		CasterName:        casterName,
		EligiblePlayerIDs: eligible,
	})
	for _, id := range eligible {
		p, _ := room.Player(id)
		e.gateway.SendToPlayer(id, NewEvent(EventResponseRequired, room.ID, ResponseRequired{
			ExecutionID:      x.ID,
			TargetPlayerID:   id,
			ResponseKind:     ResponseKindNullify,
			OriginalCard:     x.Card,
			CasterName:       casterName,
			TimeoutMs:        e.opts.ResponseTimeout.Milliseconds(),
			AvailableOptions: negationCards(p),
		}))
	}
	e.arm(room, x)
}

func (e *Engine) enterResolution(room *game.Room, x *Execution) {
	x.state = &resolutionState{}
	if x.Blocked {
		e.complete(room, x, Result{Success: false, Blocked: true, Message: fmt.Sprintf("%s was blocked", x.Card.Name)})
		return
	}
	caster, ok := room.Player(x.CasterID)
	if !ok {
		e.forceComplete(room, x, fmt.Errorf("caster %s left the room: %w", x.CasterID, game.ErrExecutionEngine))
		return
	}

	// Targets may only narrow between play and resolution.
	final := x.Targets[:0:0]
	for _, id := range x.Targets {
		if p, ok := room.Player(id); ok && p.IsAlive() {
			final = append(final, id)
		}
	}
	x.Targets = final

	outcome, err := e.resolve(x, caster, room)
	if err != nil {
		e.forceComplete(room, x, err)
		return
	}
	x.outcome = outcome

	if !outcome.Special {
		e.complete(room, x, Result{Success: outcome.Success, Message: outcome.Message})
		return
	}

	protocol, err := newProtocol(x.Card.Protocol, room)
	if err != nil {
		e.forceComplete(room, x, err)
		return
	}
	st := &specialState{protocol: protocol}
	x.state = st
	actor, ok := protocol.CurrentActor()
	if !ok {
		room.Discard(protocol.Leftovers()...)
		e.complete(room, x, Result{Success: true, Message: outcome.Message})
		return
	}

	e.logger.Info("special execution started",
		zap.String("room_id", room.ID),
		zap.String("execution_id", x.ID),
		zap.String("protocol", string(protocol.Kind())),
		zap.Int("offered", len(protocol.Options())),
	)
	e.broadcast(room, EventSpecialExecutionStarted, SpecialExecutionStarted{
		ExecutionID:      x.ID,
		CardName:         x.Card.Name,
		CurrentPlayerID:  actor,
		PickOrder:        protocol.Order(),
		AvailableOptions: protocol.Options(),
	})
	e.requestSelection(room, x, protocol, actor)
	e.arm(room, x)
}

func (e *Engine) resolve(x *Execution, caster *game.Player, room *game.Room) (outcome game.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panic on %s: %v: %w", x.Card.ID, r, game.ErrExecutionEngine)
		}
	}()
	if e.resolver == nil {
		return game.Outcome{}, fmt.Errorf("no effect resolver: %w", game.ErrExecutionEngine)
	}
	return e.resolver.Resolve(x.Card, caster, x.Targets, room), nil
}

func (e *Engine) advanceSpecial(room *game.Room, x *Execution, st *specialState, lastPlayerID, lastPickID string) {
	e.disarm(x)
	actor, ok := st.protocol.CurrentActor()
	if !ok {
		if left := st.protocol.Leftovers(); len(left) > 0 {
			room.Discard(left...)
		}
		e.complete(room, x, Result{Success: true, Message: x.outcome.Message})
		return
	}
	e.broadcast(room, EventSpecialExecutionUpdated, SpecialExecutionUpdated{
		ExecutionID:      x.ID,
		LastPlayerID:     lastPlayerID,
		LastPickID:       lastPickID,
		CurrentPlayerID:  actor,
		AvailableOptions: st.protocol.Options(),
	})
	e.requestSelection(room, x, st.protocol, actor)
	e.arm(room, x)
}

func (e *Engine) requestSelection(room *game.Room, x *Execution, protocol SpecialProtocol, actor string) {
	e.gateway.SendToPlayer(actor, NewEvent(EventResponseRequired, room.ID, ResponseRequired{
		ExecutionID:      x.ID,
		TargetPlayerID:   actor,
		ResponseKind:     ResponseKindSelect,
		OriginalCard:     x.Card,
		CasterName:       playerName(room, x.CasterID),
		TimeoutMs:        e.opts.ResponseTimeout.Milliseconds(),
		AvailableOptions: protocol.Options(),
	}))
}

func (e *Engine) complete(room *game.Room, x *Execution, result Result) {
	e.disarm(x)
	if x.Phase() == PhaseCompleted {
		return
	}

	caster, casterSeated := room.Player(x.CasterID)
	drew := false
	if casterSeated && !x.Blocked && x.outcome.CardsToDraw > 0 {
		drawn := room.DrawTo(caster, x.outcome.CardsToDraw)
		result.CardsDrawn = len(drawn)
		drew = len(drawn) > 0
	}
	if x.Blocked || !x.outcome.Retain {
		room.Discard(x.Card)
	}

	x.Result = &result
	x.state = &completedState{result: result}

	entry := game.PlayedCard{
		Card:      x.Card,
		CasterID:  x.CasterID,
		TargetIDs: append([]string(nil), x.Targets...),
		Blocked:   x.Blocked,
		PlayedAt:  time.Now().UnixMilli(),
	}
	room.RecordPlay(entry)
	if casterSeated {
		caster.Played = append(caster.Played, entry)
	}
	e.registry.Remove(x.ID)
	room.ClearActiveExecution(x.ID)

	e.logger.Info("card execution completed",
		zap.String("room_id", room.ID),
		zap.String("execution_id", x.ID),
		zap.String("card_id", x.Card.ID),
		zap.Bool("success", result.Success),
		zap.Bool("blocked", result.Blocked),
		zap.Duration("elapsed", time.Since(x.StartedAt)),
	)
	e.broadcast(room, EventCardExecutionCompleted, CardExecutionCompleted{
		ExecutionID: x.ID,
		Success:     result.Success,
		Blocked:     result.Blocked,
		Message:     result.Message,
	})
	if room.FinishIfDecided() {
		e.logger.Info("game finished",
			zap.String("room_id", room.ID),
			zap.Strings("winners", room.Winners),
		)
	}
	e.BroadcastState(room)
	if drew {
		e.SendHand(room, caster)
	}
}

func (e *Engine) forceComplete(room *game.Room, x *Execution, cause error) {
	e.logger.Error("forcing execution to complete",
		zap.String("room_id", room.ID),
		zap.String("execution_id", x.ID),
		zap.String("phase", x.Phase().String()),
		zap.Error(cause),
	)
	if st, ok := x.state.(*specialState); ok {
		room.Discard(st.protocol.Leftovers()...)
	}
	msg := "card resolution failed"
	if !errors.Is(cause, game.ErrExecutionEngine) {
		msg = cause.Error()
	}
	e.complete(room, x, Result{Success: false, Message: msg})
	// complete is a no-op on an already completed execution; make sure the
	// slots are released either way.
	e.registry.Remove(x.ID)
	room.ClearActiveExecution(x.ID)
}

// arm starts the response window timer, stamped with the execution id and a
// fresh generation.
func (e *Engine) arm(room *game.Room, x *Execution) {
	if e.opts.ResponseTimeout <= 0 {
		return
	}
	x.generation++
	id, gen := x.ID, x.generation
	x.timer = time.AfterFunc(e.opts.ResponseTimeout, func() {
		e.expire(room, id, gen)
	})
}

// disarm stops the window timer and invalidates any callback already waiting
// on the room lock.
func (e *Engine) disarm(x *Execution) {
	if x.timer != nil {
		x.timer.Stop()
		x.timer = nil
	}
	x.generation++
}

func (e *Engine) expire(room *game.Room, executionID string, generation int) {
	if e.closed.Load() {
		return
	}
	room.Lock()
	defer room.Unlock()

	x, ok := e.registry.Get(executionID)
	if !ok || x.generation != generation {
		return
	}
	if active, _ := room.ActiveExecution(); active != executionID {
		return
	}
	x.timer = nil

	switch st := x.state.(type) {
	case *nullificationState:
		pending := e.eligible(room, x)
		for _, id := range pending {
			x.record(id, "", ResponseTimeout)
		}
		e.logger.Info("response window expired",
			zap.String("room_id", room.ID),
			zap.String("execution_id", x.ID),
			zap.Strings("declined", pending),
			zap.Duration("open_for", time.Since(st.openedAt)),
		)
		e.enterResolution(room, x)
	case *specialState:
		skipped, ok := st.protocol.Abstain()
		if ok {
			x.record(skipped, "", ResponseAbstain)
			e.logger.Info("selection timed out",
				zap.String("room_id", room.ID),
				zap.String("execution_id", x.ID),
				zap.String("player_id", skipped),
			)
		}
		e.advanceSpecial(room, x, st, skipped, "")
	}
}

// BroadcastState sends the room snapshot to everyone in it.
func (e *Engine) BroadcastState(room *game.Room) {
	e.broadcast(room, EventGameStateUpdate, GameStateUpdate{Room: room.View()})
}

// SendHand privately sends a player their current hand.
func (e *Engine) SendHand(room *game.Room, p *game.Player) bool {
	return e.gateway.SendToPlayer(p.ID, NewEvent(EventHandUpdate, room.ID, HandUpdate{
		PlayerID: p.ID,
		Cards:    append([]game.Card(nil), p.Hand...),
	}))
}

func (e *Engine) broadcast(room *game.Room, eventType EventType, payload any) {
	e.gateway.BroadcastToRoom(room, NewEvent(eventType, room.ID, payload))
}

func negationCards(p *game.Player) []game.Card {
	if p == nil {
		return nil
	}
	var cards []game.Card
	for _, c := range p.Hand {
		if c.Negates {
			cards = append(cards, c)
		}
	}
	return cards
}

func playerName(room *game.Room, playerID string) string {
	if p, ok := room.Player(playerID); ok {
		return p.Name
	}
	return playerID
}

func playerNames(room *game.Room, ids []string) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = playerName(room, id)
	}
	return names
}

type nopGateway struct{}

func (nopGateway) SendToPlayer(string, Event) bool       { return false }
func (nopGateway) BroadcastToRoom(*game.Room, Event) int { return 0 }
