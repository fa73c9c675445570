package targeting

import (
	"fmt"
	"strings"

	"github.com/duelhall/duelhall-server/internal/game"
)

// TargetRequirement defines how many targets a card accepts and whether the
// server picks them.
type TargetRequirement struct {
	Arity game.TargetArity
	// MinTargets is the minimum number of targets required
	MinTargets int
	// MaxTargets is the maximum number of targets allowed; -1 means unbounded
	MaxTargets int
	// ServerChosen marks arities whose target set is computed from the room
	ServerChosen bool
}

// RequirementFor derives the target requirement of a card. livingOthers and
// livingAll are the counts of living players excluding and including the caster.
func RequirementFor(card game.Card, livingOthers, livingAll int) TargetRequirement {
	req := TargetRequirement{Arity: card.Arity}
	switch card.Arity {
	case game.AritySingle:
		req.MinTargets, req.MaxTargets = 1, 1
	case game.ArityMultiple:
		req.MinTargets, req.MaxTargets = 1, -1
	case game.ArityAllOthers:
		req.MinTargets, req.MaxTargets = livingOthers, livingOthers
		req.ServerChosen = true
	case game.ArityAllPlayers:
		req.MinTargets, req.MaxTargets = livingAll, livingAll
		req.ServerChosen = true
	default:
		req.MinTargets, req.MaxTargets = 0, 0
	}
	return req
}

// TargetSelection represents a player's target selection for a card.
type TargetSelection struct {
	Targets     []string
	Requirement TargetRequirement
}

// Validate checks the selection against its requirement's counts and rejects
// duplicates.
func (ts *TargetSelection) Validate() error {
	if ts == nil {
		return fmt.Errorf("target selection is nil: %w", game.ErrInvalidTargets)
	}
	count := len(ts.Targets)
	if count < ts.Requirement.MinTargets {
		return fmt.Errorf("not enough targets: need at least %d, got %d: %w", ts.Requirement.MinTargets, count, game.ErrInvalidTargets)
	}
	if ts.Requirement.MaxTargets >= 0 && count > ts.Requirement.MaxTargets {
		return fmt.Errorf("too many targets: need at most %d, got %d: %w", ts.Requirement.MaxTargets, count, game.ErrInvalidTargets)
	}
	seen := make(map[string]bool, count)
	for _, id := range ts.Targets {
		if seen[id] {
			return fmt.Errorf("duplicate target: %s: %w", id, game.ErrInvalidTargets)
		}
		seen[id] = true
	}
	return nil
}

// FormatTargets joins target ids for log fields.
func FormatTargets(targets []string) string {
	return strings.Join(targets, ",")
}
