// Package targeting decides whether a card may be played right now against a
// given set of targets.
package targeting

import (
	"fmt"

	"github.com/duelhall/duelhall-server/internal/game"
)

// IsValid reports whether caster may play card at targets in room. It never
// mutates the room. The caller must hold the room lock.
func IsValid(card game.Card, caster *game.Player, targets []string, room *game.Room) bool {
	return Check(card, caster, targets, room) == nil
}

// Check is IsValid with the reason for a rejection, wrapping one of the game
// sentinel errors.
func Check(card game.Card, caster *game.Player, targets []string, room *game.Room) error {
	if room == nil {
		return game.ErrRoomNotFound
	}
	if caster == nil {
		return game.ErrPlayerNotFound
	}
	if room.State != game.StatePlaying {
		return fmt.Errorf("room %s is %s: %w", room.ID, room.State, game.ErrInvalidGameState)
	}
	if room.Phase != game.PhasePlay {
		return fmt.Errorf("cards can only be played in %s phase, room is in %s: %w", game.PhasePlay, room.Phase, game.ErrInvalidGameState)
	}
	if _, seated := room.Player(caster.ID); !seated {
		return fmt.Errorf("caster %s: %w", caster.ID, game.ErrPlayerNotFound)
	}
	current, ok := room.CurrentPlayer()
	if !ok || current.ID != caster.ID {
		return fmt.Errorf("not %s's turn: %w", caster.Name, game.ErrInvalidGameState)
	}
	if !caster.IsAlive() {
		return fmt.Errorf("caster %s is out of the game: %w", caster.Name, game.ErrInvalidGameState)
	}
	if card.Negates {
		return fmt.Errorf("%s can only be played in response to a trick: %w", card.Name, game.ErrInvalidGameState)
	}

	living := room.LivingPlayerIDs()
	req := RequirementFor(card, len(living)-1, len(living))
	selection := &TargetSelection{Targets: targets, Requirement: req}
	if err := selection.Validate(); err != nil {
		return err
	}
	for _, id := range targets {
		p, seated := room.Player(id)
		if !seated {
			return fmt.Errorf("target %s is not seated: %w", id, game.ErrInvalidTargets)
		}
		if !p.IsAlive() {
			return fmt.Errorf("target %s is out of the game: %w", p.Name, game.ErrInvalidTargets)
		}
	}
	if req.ServerChosen {
		expected := Computed(card, caster, room)
		if !sameSet(expected, targets) {
			return fmt.Errorf("%s targets must be %v: %w", card.Arity, expected, game.ErrInvalidTargets)
		}
	}
	return nil
}

// Computed returns the server-chosen target set for ALL_OTHERS and
// ALL_PLAYERS cards in seating order, or nil for other arities.
func Computed(card game.Card, caster *game.Player, room *game.Room) []string {
	switch card.Arity {
	case game.ArityAllOthers:
		targets := make([]string, 0, len(room.Players))
		for _, p := range room.LivingPlayers() {
			if p.ID != caster.ID {
				targets = append(targets, p.ID)
			}
		}
		return targets
	case game.ArityAllPlayers:
		return room.LivingPlayerIDs()
	default:
		return nil
	}
}

// Resolve produces the final target list for a play. Server-chosen arities
// fill in an empty client list; a non-empty list must match the computed set
// as a set. Server-chosen results come back in seating order.
func Resolve(card game.Card, caster *game.Player, supplied []string, room *game.Room) ([]string, error) {
	var computed []string
	if caster != nil && room != nil {
		computed = Computed(card, caster, room)
	}
	targets := supplied
	if computed != nil && len(supplied) == 0 {
		targets = computed
	}
	if err := Check(card, caster, targets, room); err != nil {
		return nil, err
	}
	if computed != nil {
		return computed, nil
	}
	return append([]string{}, targets...), nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
