// Package effects holds the default effect catalog: how a resolved card
// changes the room.
package effects

import (
	"fmt"
	"strings"
	"sync"

	"github.com/duelhall/duelhall-server/internal/game"
	"go.uber.org/zap"
)

// Handler applies one effect kind. It runs under the room lock.
type Handler func(card game.Card, caster *game.Player, targets []*game.Player, room *game.Room) game.Outcome

// Resolver dispatches a card to the handler registered for its effect kind.
type Resolver struct {
	mu       sync.RWMutex
	handlers map[game.EffectKind]Handler
	logger   *zap.Logger
}

// NewResolver creates a resolver with the standard handlers registered.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		handlers: make(map[game.EffectKind]Handler),
		logger:   logger,
	}
	r.Register(game.EffectNone, resolveNone)
	r.Register(game.EffectDamage, resolveDamage)
	r.Register(game.EffectHeal, resolveHeal)
	r.Register(game.EffectDraw, resolveDraw)
	r.Register(game.EffectDraft, resolveDraft)
	r.Register(game.EffectEquip, resolveEquip)
	return r
}

// Register installs or replaces the handler for an effect kind.
func (r *Resolver) Register(kind game.EffectKind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// Resolve applies card's effect. Unknown target ids are skipped; an
// unregistered effect kind resolves as a failure without touching the room.
func (r *Resolver) Resolve(card game.Card, caster *game.Player, targetIDs []string, room *game.Room) game.Outcome {
	r.mu.RLock()
	handler, ok := r.handlers[card.Effect]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("no handler for effect",
			zap.String("room_id", room.ID),
			zap.String("card_id", card.ID),
			zap.String("effect", string(card.Effect)),
		)
		return game.Outcome{Success: false, Message: fmt.Sprintf("%s has no effect", card.Name)}
	}

	targets := make([]*game.Player, 0, len(targetIDs))
	for _, id := range targetIDs {
		if p, found := room.Player(id); found {
			targets = append(targets, p)
		}
	}
	outcome := handler(card, caster, targets, room)
	r.logger.Debug("effect resolved",
		zap.String("room_id", room.ID),
		zap.String("card_id", card.ID),
		zap.String("caster_id", caster.ID),
		zap.Bool("success", outcome.Success),
		zap.Bool("special", outcome.Special),
	)
	return outcome
}

func resolveNone(card game.Card, caster *game.Player, _ []*game.Player, _ *game.Room) game.Outcome {
	return game.Outcome{Success: true, Message: fmt.Sprintf("%s played %s", caster.Name, card.Name)}
}

func resolveDamage(card game.Card, caster *game.Player, targets []*game.Player, _ *game.Room) game.Outcome {
	if len(targets) == 0 {
		return game.Outcome{Success: false, Message: fmt.Sprintf("%s found no target", card.Name)}
	}
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		lost := t.Damage(card.Damage)
		parts = append(parts, fmt.Sprintf("%s -%d", t.Name, lost))
	}
	return game.Outcome{
		Success: true,
		Message: fmt.Sprintf("%s hit with %s: %s", caster.Name, card.Name, strings.Join(parts, ", ")),
	}
}

func resolveHeal(card game.Card, caster *game.Player, targets []*game.Player, _ *game.Room) game.Outcome {
	if len(targets) == 0 {
		targets = []*game.Player{caster}
	}
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		gained := t.Heal(card.Heal)
		parts = append(parts, fmt.Sprintf("%s +%d", t.Name, gained))
	}
	return game.Outcome{
		Success: true,
		Message: fmt.Sprintf("%s played %s: %s", caster.Name, card.Name, strings.Join(parts, ", ")),
	}
}

func resolveDraw(card game.Card, caster *game.Player, _ []*game.Player, _ *game.Room) game.Outcome {
	return game.Outcome{
		Success:     true,
		Message:     fmt.Sprintf("%s draws %d", caster.Name, card.Draw),
		CardsToDraw: card.Draw,
	}
}

func resolveDraft(card game.Card, caster *game.Player, _ []*game.Player, _ *game.Room) game.Outcome {
	if card.Protocol == game.ProtocolNone {
		return game.Outcome{Success: false, Message: fmt.Sprintf("%s has no draft protocol", card.Name)}
	}
	return game.Outcome{
		Success: true,
		Message: fmt.Sprintf("%s opened %s", caster.Name, card.Name),
		Special: true,
	}
}

func resolveEquip(card game.Card, caster *game.Player, _ []*game.Player, _ *game.Room) game.Outcome {
	caster.Equipment = append(caster.Equipment, card)
	return game.Outcome{
		Success: true,
		Message: fmt.Sprintf("%s equipped %s", caster.Name, card.Name),
		Retain:  true,
	}
}
