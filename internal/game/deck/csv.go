package deck

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/duelhall/duelhall-server/internal/game"
	"gopkg.in/yaml.v3"
)

// csvColumns are the recognised header names. Only name, category and
// copies are required.
var csvColumns = []string{
	"name", "category", "arity", "effect", "damage", "heal", "draw",
	"negates", "alwaysresolves", "protocol", "copies",
}

// FromCSV reads card definitions from a CSV export with a header row and
// returns a validated catalog.
func FromCSV(r io.Reader, name string) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("csv has no data rows")
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "category", "copies"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", required)
		}
	}
	for h := range index {
		if !knownColumn(h) {
			return nil, fmt.Errorf("csv header has unknown column %q", h)
		}
	}

	catalog := &Catalog{Name: name}
	for i, record := range records[1:] {
		row := i + 2
		get := func(col string) string {
			if at, ok := index[col]; ok && at < len(record) {
				return strings.TrimSpace(record[at])
			}
			return ""
		}
		def := Definition{
			Name:     get("name"),
			Category: game.CardCategory(strings.ToUpper(get("category"))),
			Arity:    game.TargetArity(strings.ToUpper(get("arity"))),
			Effect:   game.EffectKind(strings.ToUpper(get("effect"))),
			Protocol: game.ProtocolKind(strings.ToUpper(get("protocol"))),
		}
		if def.Arity == "" {
			def.Arity = game.ArityNone
		}
		if def.Effect == "" {
			def.Effect = game.EffectNone
		}
		ints := []struct {
			col string
			dst *int
		}{
			{"damage", &def.Damage},
			{"heal", &def.Heal},
			{"draw", &def.Draw},
			{"copies", &def.Copies},
		}
		for _, f := range ints {
			if v := get(f.col); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("row %d: %s %q is not a number", row, f.col, v)
				}
				*f.dst = n
			}
		}
		if def.Negates, err = parseBool(get("negates")); err != nil {
			return nil, fmt.Errorf("row %d: negates: %w", row, err)
		}
		if def.AlwaysResolves, err = parseBool(get("alwaysresolves")); err != nil {
			return nil, fmt.Errorf("row %d: alwaysResolves: %w", row, err)
		}
		catalog.Cards = append(catalog.Cards, def)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Encode writes the catalog as YAML in the format Parse reads.
func (c *Catalog) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}

func knownColumn(h string) bool {
	for _, c := range csvColumns {
		if c == h {
			return true
		}
	}
	return false
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y", "x":
		return true, nil
	default:
		return false, fmt.Errorf("%q is not a boolean", s)
	}
}
