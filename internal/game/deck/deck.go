// Package deck loads card catalogs and builds shuffled draw piles.
package deck

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/duelhall/duelhall-server/internal/game"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Definition describes one card design and how many copies the deck holds.
type Definition struct {
	Name           string            `yaml:"name"`
	Category       game.CardCategory `yaml:"category"`
	Arity          game.TargetArity  `yaml:"arity"`
	Effect         game.EffectKind   `yaml:"effect"`
	Damage         int               `yaml:"damage"`
	Heal           int               `yaml:"heal"`
	Draw           int               `yaml:"draw"`
	Negates        bool              `yaml:"negates"`
	AlwaysResolves bool              `yaml:"alwaysResolves"`
	Protocol       game.ProtocolKind `yaml:"protocol"`
	Copies         int               `yaml:"copies"`
}

// Catalog is a named list of card definitions.
type Catalog struct {
	Name  string       `yaml:"name"`
	Cards []Definition `yaml:"cards"`
}

// Default returns the embedded standard catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file. An empty path selects the
// embedded default.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck %s: %w", path, err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse deck %s: %w", path, err)
	}
	return catalog, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks every definition for known enum values and sane counts.
func (c *Catalog) Validate() error {
	if len(c.Cards) == 0 {
		return fmt.Errorf("catalog %q has no cards", c.Name)
	}
	seen := make(map[string]bool, len(c.Cards))
	for i, def := range c.Cards {
		if def.Name == "" {
			return fmt.Errorf("card %d: name is required", i)
		}
		key := slug(def.Name)
		if seen[key] {
			return fmt.Errorf("card %q: duplicate definition, ids %q-<n> are already taken", def.Name, key)
		}
		seen[key] = true
		if def.Copies < 1 {
			return fmt.Errorf("card %q: copies must be at least 1", def.Name)
		}
		switch def.Category {
		case game.CategoryBasic, game.CategoryTrick, game.CategoryEquipment:
		default:
			return fmt.Errorf("card %q: unknown category %q", def.Name, def.Category)
		}
		switch def.Arity {
		case game.ArityNone, game.AritySingle, game.ArityMultiple, game.ArityAllOthers, game.ArityAllPlayers:
		default:
			return fmt.Errorf("card %q: unknown arity %q", def.Name, def.Arity)
		}
		switch def.Protocol {
		case game.ProtocolNone, game.ProtocolSequentialDraft:
		default:
			return fmt.Errorf("card %q: unknown protocol %q", def.Name, def.Protocol)
		}
		if def.Negates && def.Arity != game.ArityNone {
			return fmt.Errorf("card %q: negation cards take no targets", def.Name)
		}
	}
	return nil
}

// Size returns the total number of physical cards.
func (c *Catalog) Size() int {
	n := 0
	for _, def := range c.Cards {
		n += def.Copies
	}
	return n
}

// Build expands the catalog into physical cards with ids of the form
// "<name>-<n>", in definition order.
func (c *Catalog) Build() []game.Card {
	cards := make([]game.Card, 0, c.Size())
	for _, def := range c.Cards {
		prefix := slug(def.Name)
		effect := def.Effect
		if effect == "" {
			effect = game.EffectNone
		}
		for n := 1; n <= def.Copies; n++ {
			cards = append(cards, game.Card{
				ID:             fmt.Sprintf("%s-%d", prefix, n),
				Name:           def.Name,
				Category:       def.Category,
				Arity:          def.Arity,
				Effect:         effect,
				Damage:         def.Damage,
				Heal:           def.Heal,
				Draw:           def.Draw,
				Negates:        def.Negates,
				AlwaysResolves: def.AlwaysResolves,
				Protocol:       def.Protocol,
			})
		}
	}
	return cards
}

// slug is the card id prefix for a definition name.
func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}
