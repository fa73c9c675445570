package effects

import (
	"testing"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T) (*Resolver, *game.Room, *game.Player, *game.Player) {
	t.Helper()
	room := game.NewRoom("room-1", "table", 4, nil)
	alice := game.NewPlayer("p1", "alice", 4)
	bob := game.NewPlayer("p2", "bob", 4)
	room.Players = append(room.Players, alice, bob)
	room.State = game.StatePlaying
	room.Phase = game.PhasePlay
	return NewResolver(zaptest.NewLogger(t)), room, alice, bob
}

func TestResolveDamage(t *testing.T) {
	r, room, alice, bob := setup(t)
	strike := game.Card{ID: "strike-1", Name: "Strike", Effect: game.EffectDamage, Damage: 1}

	out := r.Resolve(strike, alice, []string{bob.ID}, room)
	assert.True(t, out.Success)
	assert.Equal(t, 3, bob.Health)
	assert.Equal(t, 4, alice.Health)
	assert.Contains(t, out.Message, "bob -1")

	out = r.Resolve(strike, alice, []string{"ghost"}, room)
	assert.False(t, out.Success)
}

func TestResolveHeal(t *testing.T) {
	r, room, alice, bob := setup(t)
	alice.Damage(2)
	bob.Damage(1)

	tonic := game.Card{ID: "tonic-1", Name: "Tonic", Effect: game.EffectHeal, Heal: 1}
	out := r.Resolve(tonic, alice, nil, room)
	assert.True(t, out.Success)
	assert.Equal(t, 3, alice.Health)

	renewal := game.Card{ID: "renewal-1", Name: "Renewal", Effect: game.EffectHeal, Heal: 1}
	r.Resolve(renewal, alice, []string{alice.ID, bob.ID}, room)
	assert.Equal(t, 4, alice.Health)
	assert.Equal(t, 4, bob.Health)
}

func TestResolveDrawDraftEquip(t *testing.T) {
	r, room, alice, _ := setup(t)

	out := r.Resolve(game.Card{ID: "bounty-1", Name: "Bounty", Effect: game.EffectDraw, Draw: 2}, alice, nil, room)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.CardsToDraw)
	assert.Empty(t, alice.Hand, "drawing is left to the engine")

	out = r.Resolve(game.Card{ID: "harvest-1", Name: "Harvest", Effect: game.EffectDraft, Protocol: game.ProtocolSequentialDraft}, alice, nil, room)
	assert.True(t, out.Success)
	assert.True(t, out.Special)

	out = r.Resolve(game.Card{ID: "harvest-2", Name: "Harvest", Effect: game.EffectDraft}, alice, nil, room)
	assert.False(t, out.Special)

	longbow := game.Card{ID: "longbow-1", Name: "Longbow", Category: game.CategoryEquipment, Effect: game.EffectEquip}
	out = r.Resolve(longbow, alice, nil, room)
	assert.True(t, out.Retain)
	require.Len(t, alice.Equipment, 1)
	assert.Equal(t, "longbow-1", alice.Equipment[0].ID)
}

func TestResolveUnknownEffect(t *testing.T) {
	r, room, alice, bob := setup(t)
	out := r.Resolve(game.Card{ID: "x-1", Name: "Mystery", Effect: "CURSE"}, alice, []string{bob.ID}, room)
	assert.False(t, out.Success)
	assert.Equal(t, 4, bob.Health)

	r.Register("CURSE", func(card game.Card, caster *game.Player, targets []*game.Player, room *game.Room) game.Outcome {
		for _, p := range targets {
			p.Damage(2)
		}
		return game.Outcome{Success: true}
	})
	out = r.Resolve(game.Card{ID: "x-1", Name: "Mystery", Effect: "CURSE"}, alice, []string{bob.ID}, room)
	assert.True(t, out.Success)
	assert.Equal(t, 2, bob.Health)
}
