package deck

import (
	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/valyala/fastrand"
)

// Shuffle permutes cards in place with a Fisher-Yates pass.
func Shuffle(cards []game.Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(fastrand.Uint32n(uint32(i + 1)))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// NoShuffle leaves cards in definition order. Tests use it for
// deterministic deals.
func NoShuffle([]game.Card) {}

var _ game.Shuffler = Shuffle
