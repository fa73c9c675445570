package deck

import (
	"bytes"
	"strings"
	"testing"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `name,category,arity,effect,damage,heal,draw,negates,alwaysResolves,protocol,copies
Strike,basic,single,damage,1,,,,,,3
Ward,trick,,,,,,yes,,,2
Harvest,trick,all_players,draft,,,,,,sequential_draft,1
Tonic,basic,none,heal,,1,,,x,,2
`

func TestFromCSV(t *testing.T) {
	catalog, err := FromCSV(strings.NewReader(sampleCSV), "imported")
	require.NoError(t, err)
	assert.Equal(t, "imported", catalog.Name)
	require.Len(t, catalog.Cards, 4)
	assert.Equal(t, 8, catalog.Size())

	strike := catalog.Cards[0]
	assert.Equal(t, game.CategoryBasic, strike.Category)
	assert.Equal(t, game.AritySingle, strike.Arity)
	assert.Equal(t, game.EffectDamage, strike.Effect)
	assert.Equal(t, 1, strike.Damage)

	ward := catalog.Cards[1]
	assert.True(t, ward.Negates)
	assert.Equal(t, game.ArityNone, ward.Arity)

	assert.Equal(t, game.ProtocolSequentialDraft, catalog.Cards[2].Protocol)
	assert.True(t, catalog.Cards[3].AlwaysResolves)
}

func TestFromCSVRoundTripsThroughYAML(t *testing.T) {
	catalog, err := FromCSV(strings.NewReader(sampleCSV), "imported")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, catalog.Encode(&buf))

	parsed, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, catalog, parsed)
}

func TestFromCSVRejects(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"header only", "name,category,copies\n", "no data rows"},
		{"missing copies", "name,category\nStrike,basic\n", `missing "copies"`},
		{"unknown column", "name,category,copies,colour\nStrike,basic,1,red\n", `unknown column "colour"`},
		{"bad number", "name,category,copies\nStrike,basic,many\n", `copies "many" is not a number`},
		{"bad boolean", "name,category,copies,negates\nWard,trick,1,maybe\n", "not a boolean"},
		{"bad category", "name,category,copies\nStrike,spell,1\n", "unknown category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromCSV(strings.NewReader(tt.csv), "bad")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
