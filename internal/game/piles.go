package game

// Draw removes up to n cards from the top of the draw pile. When the draw
// pile runs dry the discard pile is shuffled into it in one step. Fewer than
// n cards are returned only when both piles are exhausted.
func (r *Room) Draw(n int) []Card {
	if n <= 0 {
		return nil
	}
	drawn := make([]Card, 0, n)
	for len(drawn) < n {
		if len(r.DrawPile) == 0 && !r.reshuffle() {
			break
		}
		take := n - len(drawn)
		if take > len(r.DrawPile) {
			take = len(r.DrawPile)
		}
		drawn = append(drawn, r.DrawPile[:take]...)
		r.DrawPile = r.DrawPile[take:]
	}
	return drawn
}

// DrawTo draws n cards into a player's hand and returns them.
func (r *Room) DrawTo(p *Player, n int) []Card {
	cards := r.Draw(n)
	p.AddToHand(cards...)
	return cards
}

// Discard places cards on the discard pile.
func (r *Room) Discard(cards ...Card) {
	r.DiscardPile = append(r.DiscardPile, cards...)
}

// SetDrawPile replaces the draw pile, shuffling it first.
func (r *Room) SetDrawPile(cards []Card) {
	pile := make([]Card, len(cards))
	copy(pile, cards)
	if r.shuffle != nil {
		r.shuffle(pile)
	}
	r.DrawPile = pile
}

func (r *Room) reshuffle() bool {
	if len(r.DiscardPile) == 0 {
		return false
	}
	pile := r.DiscardPile
	r.DiscardPile = make([]Card, 0, len(pile))
	if r.shuffle != nil {
		r.shuffle(pile)
	}
	r.DrawPile = pile
	return true
}
