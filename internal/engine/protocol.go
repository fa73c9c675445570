package engine

import (
	"fmt"

	"github.com/duelhall/duelhall-server/internal/game"
)

// SpecialProtocol is a player-choice sub-protocol opened during resolution.
// Implementations run under the room lock.
type SpecialProtocol interface {
	Kind() game.ProtocolKind
	// CurrentActor is the only player allowed to act next.
	CurrentActor() (string, bool)
	// Options are the items still on offer.
	Options() []game.Card
	// Order is the full acting sequence.
	Order() []string
	// Select takes an item for playerID and advances the protocol.
	Select(playerID, itemID string) (game.Card, error)
	// Abstain skips the current actor without granting anything.
	Abstain() (string, bool)
	Done() bool
	// Leftovers drains whatever is still on offer.
	Leftovers() []game.Card
}

// SequentialDraft offers a face-up pool that players pick from one at a time
// in a fixed order.
type SequentialDraft struct {
	pool   []game.Card
	order  []string
	cursor int
}

// NewSequentialDraft creates a draft over pool for the given player order.
func NewSequentialDraft(pool []game.Card, order []string) *SequentialDraft {
	return &SequentialDraft{
		pool:  append([]game.Card(nil), pool...),
		order: append([]string(nil), order...),
	}
}

func (d *SequentialDraft) Kind() game.ProtocolKind { return game.ProtocolSequentialDraft }

func (d *SequentialDraft) CurrentActor() (string, bool) {
	if d.Done() {
		return "", false
	}
	return d.order[d.cursor], true
}

func (d *SequentialDraft) Options() []game.Card {
	return append([]game.Card(nil), d.pool...)
}

func (d *SequentialDraft) Order() []string {
	return append([]string(nil), d.order...)
}

func (d *SequentialDraft) Select(playerID, itemID string) (game.Card, error) {
	actor, ok := d.CurrentActor()
	if !ok {
		return game.Card{}, fmt.Errorf("draft is over: %w", game.ErrInvalidGameState)
	}
	if actor != playerID {
		return game.Card{}, fmt.Errorf("waiting for %s to pick: %w", actor, game.ErrInvalidGameState)
	}
	for i, c := range d.pool {
		if c.ID == itemID {
			d.pool = append(d.pool[:i:i], d.pool[i+1:]...)
			d.cursor++
			return c, nil
		}
	}
	return game.Card{}, fmt.Errorf("card %s is not on offer: %w", itemID, game.ErrCardNotFound)
}

func (d *SequentialDraft) Abstain() (string, bool) {
	actor, ok := d.CurrentActor()
	if !ok {
		return "", false
	}
	d.cursor++
	return actor, true
}

func (d *SequentialDraft) Done() bool {
	return d.cursor >= len(d.order) || len(d.pool) == 0
}

func (d *SequentialDraft) Leftovers() []game.Card {
	left := d.pool
	d.pool = nil
	return left
}

// newProtocol builds the protocol a card asks for. The caller must hold the
// room lock.
func newProtocol(kind game.ProtocolKind, room *game.Room) (SpecialProtocol, error) {
	switch kind {
	case game.ProtocolSequentialDraft:
		order := room.LivingPlayerIDs()
		return NewSequentialDraft(room.Draw(len(order)), order), nil
	default:
		return nil, fmt.Errorf("unknown special protocol %q: %w", kind, game.ErrExecutionEngine)
	}
}
