package game

// Outcome is what an effect resolver reports back to the execution engine.
type Outcome struct {
	Success bool
	Message string
	// CardsToDraw is applied to the caster when the execution completes.
	CardsToDraw int
	// Special asks the engine to open the card's special protocol.
	Special bool
	// Retain keeps the played card out of the discard pile.
	Retain bool
}
