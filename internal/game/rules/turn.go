package rules

import (
	"fmt"
	"time"

	"github.com/duelhall/duelhall-server/internal/game"
	"go.uber.org/zap"
)

const (
	RoleLord     = "lord"
	RoleLoyalist = "loyalist"
)

// phaseSequence is the per-player turn structure. The wrap from the last
// entry back to the first hands the turn to the next living player.
var phaseSequence = []game.Phase{
	game.PhaseDraw,
	game.PhasePlay,
	game.PhaseDiscard,
}

// Options tune the opening deal and the draw step.
type Options struct {
	StartingHealth int
	HandSize       int
	DrawPerTurn    int
}

// DefaultOptions returns the standard table settings.
func DefaultOptions() Options {
	return Options{StartingHealth: 4, HandSize: 4, DrawPerTurn: 2}
}

// Transition describes one phase step taken by Advance.
type Transition struct {
	From      game.Phase
	To        game.Phase
	PlayerID  string
	Turn      int
	Wrapped   bool
	Drawn     []game.Card
	Discarded []game.Card
}

// Controller drives the DRAW -> PLAY -> DISCARD cycle of a room.
type Controller struct {
	opts   Options
	logger *zap.Logger
}

// NewController creates a turn/phase controller.
func NewController(opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StartingHealth < 1 {
		opts.StartingHealth = DefaultOptions().StartingHealth
	}
	if opts.HandSize < 0 {
		opts.HandSize = 0
	}
	if opts.DrawPerTurn < 0 {
		opts.DrawPerTurn = 0
	}
	return &Controller{opts: opts, logger: logger}
}

// StartGame moves a waiting room into play. cards becomes the shuffled draw
// pile; seat 0 is the lord and opens the first PLAY phase. The returned map
// holds each player's opening hand keyed by player id. The caller must hold
// the room lock.
func (c *Controller) StartGame(room *game.Room, cards []game.Card) (map[string][]game.Card, error) {
	if room.State != game.StateWaiting {
		return nil, fmt.Errorf("room %s is %s: %w", room.ID, room.State, game.ErrInvalidGameState)
	}
	if len(room.Players) < 2 {
		return nil, fmt.Errorf("need at least 2 players, have %d: %w", len(room.Players), game.ErrInvalidGameState)
	}

	room.SetDrawPile(cards)
	room.DiscardPile = room.DiscardPile[:0]
	room.PlayedThisTurn = room.PlayedThisTurn[:0]
	room.Winners = nil

	hands := make(map[string][]game.Card, len(room.Players))
	for seat, p := range room.Players {
		maxHealth := c.opts.StartingHealth
		handSize := c.opts.HandSize
		p.Role = RoleLoyalist
		if seat == 0 {
			p.Role = RoleLord
			maxHealth++
			handSize++
		}
		p.SetMaxHealth(maxHealth)
		p.Health = p.MaxHealth
		p.Hand = p.Hand[:0]
		p.Played = p.Played[:0]
		p.Equipment = p.Equipment[:0]
		hands[p.ID] = room.DrawTo(p, handSize)
	}

	room.State = game.StatePlaying
	room.Phase = game.PhasePlay
	room.CurrentPlayerIndex = 0
	room.Turn = 1
	room.StartedAt = time.Now()

	c.logger.Info("game started",
		zap.String("room_id", room.ID),
		zap.Int("players", len(room.Players)),
		zap.Int("draw_pile", len(room.DrawPile)),
	)
	return hands, nil
}

// Advance steps the room to the next phase. It refuses while an execution is
// in flight or the game is not being played. The caller must hold the room
// lock.
func (c *Controller) Advance(room *game.Room) (Transition, error) {
	if room.State != game.StatePlaying {
		return Transition{}, fmt.Errorf("room %s is %s: %w", room.ID, room.State, game.ErrInvalidGameState)
	}
	if execID, active := room.ActiveExecution(); active {
		return Transition{}, fmt.Errorf("execution %s is still resolving: %w", execID, game.ErrInvalidGameState)
	}

	from := room.Phase
	idx := phaseIndex(from)
	if idx < 0 {
		return Transition{}, fmt.Errorf("unknown phase %q: %w", from, game.ErrInvalidGameState)
	}

	t := Transition{From: from}
	idx++
	if idx >= len(phaseSequence) {
		idx = 0
		next, ok := c.nextLivingSeat(room)
		if !ok {
			return Transition{}, fmt.Errorf("no living player to take the turn: %w", game.ErrInvalidGameState)
		}
		room.CurrentPlayerIndex = next
		room.Turn++
		room.PlayedThisTurn = room.PlayedThisTurn[:0]
		t.Wrapped = true
	}
	room.Phase = phaseSequence[idx]
	t.To = room.Phase
	t.Turn = room.Turn

	current, ok := room.CurrentPlayer()
	if !ok {
		return Transition{}, fmt.Errorf("current player index %d out of range: %w", room.CurrentPlayerIndex, game.ErrExecutionEngine)
	}
	t.PlayerID = current.ID

	switch room.Phase {
	case game.PhaseDraw:
		t.Drawn = room.DrawTo(current, c.opts.DrawPerTurn)
	case game.PhaseDiscard:
		t.Discarded = c.discardExcess(room, current)
	}

	c.logger.Debug("phase advanced",
		zap.String("room_id", room.ID),
		zap.String("player_id", current.ID),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.Int("turn", room.Turn),
	)
	return t, nil
}

// AdvanceToNextPlay ends the current player's turn and keeps advancing until
// the next player's PLAY phase.
func (c *Controller) AdvanceToNextPlay(room *game.Room) ([]Transition, error) {
	startTurn := room.Turn
	var steps []Transition
	for i := 0; i < 2*len(phaseSequence); i++ {
		t, err := c.Advance(room)
		if err != nil {
			return steps, err
		}
		steps = append(steps, t)
		if room.Turn != startTurn && room.Phase == game.PhasePlay {
			return steps, nil
		}
	}
	return steps, fmt.Errorf("turn did not reach %s: %w", game.PhasePlay, game.ErrExecutionEngine)
}

// discardExcess trims the hand down to the player's current health, dropping
// the most recently drawn cards first.
func (c *Controller) discardExcess(room *game.Room, p *game.Player) []game.Card {
	limit := p.Health
	if len(p.Hand) <= limit {
		return nil
	}
	excess := append([]game.Card(nil), p.Hand[limit:]...)
	p.Hand = p.Hand[:limit]
	room.Discard(excess...)
	return excess
}

func (c *Controller) nextLivingSeat(room *game.Room) (int, bool) {
	n := len(room.Players)
	for step := 1; step <= n; step++ {
		idx := (room.CurrentPlayerIndex + step) % n
		if room.Players[idx].IsAlive() {
			return idx, true
		}
	}
	return 0, false
}

func phaseIndex(p game.Phase) int {
	for i, candidate := range phaseSequence {
		if candidate == p {
			return i
		}
	}
	return -1
}
