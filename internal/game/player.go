package game

import "time"

// Player represents a seated participant.
type Player struct {
	ID        string
	Name      string
	Health    int
	MaxHealth int
	Hand      []Card
	Played    []PlayedCard
	Equipment []Card
	Role      string
	JoinedAt  time.Time
}

// Spectator watches a room without a seat.
type Spectator struct {
	ID       string
	Name     string
	JoinedAt time.Time
}

// NewPlayer creates a player at full health.
func NewPlayer(id, name string, maxHealth int) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Hand:      make([]Card, 0),
		Played:    make([]PlayedCard, 0),
		Equipment: make([]Card, 0),
		JoinedAt:  time.Now(),
	}
}

// IsAlive reports whether the player still has health.
func (p *Player) IsAlive() bool {
	return p.Health > 0
}

// AddToHand appends cards to the player's hand.
func (p *Player) AddToHand(cards ...Card) {
	p.Hand = append(p.Hand, cards...)
}

// RemoveFromHand removes a card by id.
func (p *Player) RemoveFromHand(cardID string) (Card, bool) {
	hand, card, ok := removeCard(p.Hand, cardID)
	if ok {
		p.Hand = hand
	}
	return card, ok
}

// HandCard looks a card up in the hand without removing it.
func (p *Player) HandCard(cardID string) (Card, bool) {
	return findCard(p.Hand, cardID)
}

// Damage lowers health, clamped at zero, and returns the amount actually lost.
func (p *Player) Damage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := p.Health
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
	return before - p.Health
}

// Heal raises health, clamped at max health, and returns the amount actually gained.
func (p *Player) Heal(amount int) int {
	if amount <= 0 || !p.IsAlive() {
		return 0
	}
	before := p.Health
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
	return p.Health - before
}

// SetMaxHealth changes max health and clamps current health to it.
func (p *Player) SetMaxHealth(maxHealth int) {
	if maxHealth < 1 {
		maxHealth = 1
	}
	p.MaxHealth = maxHealth
	if p.Health > maxHealth {
		p.Health = maxHealth
	}
}
