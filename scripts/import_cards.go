package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/duelhall/duelhall-server/internal/game/deck"
)

// Converts a spreadsheet export of card definitions into a deck YAML file
// the server can load through game.deckFile.
//
//	go run ./scripts/import_cards.go data/cards.csv config/decks/custom.yaml
func main() {
	csvPath := "data/cards.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	outPath := ""
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Fprintln(os.Stderr, "=== Duelhall Deck Import ===")
	fmt.Fprintf(os.Stderr, "CSV file: %s\n", absPath)

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	catalog, err := deck.FromCSV(file, name)
	if err != nil {
		log.Fatalf("Failed to import cards: %v", err)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", outPath, err)
		}
		defer f.Close()
		out = f
	}

	if err := catalog.Encode(out); err != nil {
		log.Fatalf("Failed to write deck: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Imported %d definitions (%d cards) into deck %q\n",
		len(catalog.Cards), catalog.Size(), catalog.Name)
}
