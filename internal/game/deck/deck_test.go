package deck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "standard", catalog.Name)

	cards := catalog.Build()
	assert.Len(t, cards, catalog.Size())
	assert.Equal(t, 54, len(cards))

	ids := make(map[string]bool, len(cards))
	var negators, drafts int
	for _, c := range cards {
		assert.False(t, ids[c.ID], "duplicate id %s", c.ID)
		ids[c.ID] = true
		if c.Negates {
			negators++
		}
		if c.Protocol == game.ProtocolSequentialDraft {
			drafts++
		}
	}
	assert.Equal(t, 6, negators)
	assert.Equal(t, 2, drafts)
	assert.True(t, ids["strike-1"])
	assert.True(t, ids["longbow-2"])
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty":         "name: x\ncards: []\n",
		"unknown arity": "cards:\n  - {name: A, category: BASIC, arity: SOME, copies: 1}\n",
		"zero copies":   "cards:\n  - {name: A, category: BASIC, arity: NONE, copies: 0}\n",
		"duplicate":     "cards:\n  - {name: A, category: BASIC, arity: NONE, copies: 1}\n  - {name: a, category: BASIC, arity: NONE, copies: 1}\n",
		"bad protocol":  "cards:\n  - {name: A, category: TRICK, arity: NONE, protocol: AUCTION, copies: 1}\n",
		"targeted ward": "cards:\n  - {name: A, category: TRICK, arity: SINGLE, negates: true, copies: 1}\n",
		"not yaml":      "cards: [",
		"bad category":  "cards:\n  - {name: A, category: SPELL, arity: NONE, copies: 1}\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsCollidingIDs(t *testing.T) {
	data := `name: clash
cards:
  - {name: Fire Ball, category: BASIC, arity: SINGLE, effect: DAMAGE, damage: 1, copies: 2}
  - {name: fire-ball, category: BASIC, arity: SINGLE, effect: DAMAGE, damage: 2, copies: 2}
`
	_, err := Parse([]byte(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fire-ball")

	catalog, err := Parse([]byte(`name: ok
cards:
  - {name: Fire Ball, category: BASIC, arity: SINGLE, effect: DAMAGE, damage: 1, copies: 2}
  - {name: Fireball, category: BASIC, arity: SINGLE, effect: DAMAGE, damage: 2, copies: 2}
`))
	require.NoError(t, err)
	ids := make(map[string]int)
	for _, c := range catalog.Build() {
		ids[c.ID]++
	}
	assert.Len(t, ids, 4)
	for id, n := range ids {
		assert.Equal(t, 1, n, "card id %s", id)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	data := "name: tiny\ncards:\n  - name: Quick Shot\n    category: BASIC\n    arity: SINGLE\n    effect: DAMAGE\n    damage: 2\n    copies: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	catalog, err := LoadFile(path)
	require.NoError(t, err)
	cards := catalog.Build()
	require.Len(t, cards, 2)
	assert.Equal(t, "quick-shot-1", cards[0].ID)
	assert.Equal(t, 2, cards[0].Damage)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	catalog, err = LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "standard", catalog.Name)
}

func TestShuffleIsPermutation(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)
	cards := catalog.Build()
	shuffled := append([]game.Card(nil), cards...)
	Shuffle(shuffled)

	assert.ElementsMatch(t, cards, shuffled)

	ordered := append([]game.Card(nil), cards...)
	NoShuffle(ordered)
	assert.Equal(t, cards, ordered)
}
