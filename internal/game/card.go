package game

// CardCategory is the broad kind of a card.
type CardCategory string

const (
	CategoryBasic     CardCategory = "BASIC"
	CategoryTrick     CardCategory = "TRICK"
	CategoryEquipment CardCategory = "EQUIPMENT"
)

// TargetArity describes how many targets a card takes.
type TargetArity string

const (
	// ArityNone takes no targets.
	ArityNone TargetArity = "NONE"
	// AritySingle takes exactly one target.
	AritySingle TargetArity = "SINGLE"
	// ArityMultiple takes one or more targets.
	ArityMultiple TargetArity = "MULTIPLE"
	// ArityAllOthers targets every living player except the caster.
	ArityAllOthers TargetArity = "ALL_OTHERS"
	// ArityAllPlayers targets every living player.
	ArityAllPlayers TargetArity = "ALL_PLAYERS"
)

// EffectKind selects the resolver behaviour for a card. The execution engine
// never inspects it; only the effect resolver does.
type EffectKind string

const (
	EffectNone   EffectKind = "NONE"
	EffectDamage EffectKind = "DAMAGE"
	EffectHeal   EffectKind = "HEAL"
	EffectDraw   EffectKind = "DRAW"
	EffectDraft  EffectKind = "DRAFT"
	EffectEquip  EffectKind = "EQUIP"
)

// ProtocolKind selects the special execution sub-protocol a card opens when
// its effect asks for one.
type ProtocolKind string

const (
	ProtocolNone            ProtocolKind = ""
	ProtocolSequentialDraft ProtocolKind = "SEQUENTIAL_DRAFT"
)

// Card is a single physical card.
type Card struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Category CardCategory `json:"category"`
	Arity    TargetArity  `json:"arity"`
	Effect   EffectKind   `json:"effect"`
	Damage   int          `json:"damage,omitempty"`
	Heal     int          `json:"heal,omitempty"`
	Draw     int          `json:"draw,omitempty"`

	// Negates marks the card that cancels an in-flight trick during nullification.
	Negates bool `json:"negates,omitempty"`
	// AlwaysResolves marks a basic card that skips the nullification window.
	AlwaysResolves bool         `json:"alwaysResolves,omitempty"`
	Protocol       ProtocolKind `json:"protocol,omitempty"`
}

// IsInstant reports whether the card goes straight to resolution.
func (c Card) IsInstant() bool {
	return c.Category == CategoryEquipment || (c.Category == CategoryBasic && c.AlwaysResolves)
}

// IsTrick reports whether the card belongs to the trick category.
func (c Card) IsTrick() bool {
	return c.Category == CategoryTrick
}

// PlayedCard is an entry in the per-turn played-card log.
type PlayedCard struct {
	Card      Card     `json:"card"`
	CasterID  string   `json:"casterId"`
	TargetIDs []string `json:"targetIds"`
	Blocked   bool     `json:"blocked"`
	PlayedAt  int64    `json:"playedAt"`
}

func removeCard(cards []Card, cardID string) ([]Card, Card, bool) {
	for i, c := range cards {
		if c.ID == cardID {
			out := append(cards[:i:i], cards[i+1:]...)
			return out, c, true
		}
	}
	return cards, Card{}, false
}

func findCard(cards []Card, cardID string) (Card, bool) {
	for _, c := range cards {
		if c.ID == cardID {
			return c, true
		}
	}
	return Card{}, false
}
