package engine

import (
	"fmt"
	"time"

	"github.com/duelhall/duelhall-server/internal/game"
)

// Phase is a step of one card's resolution.
type Phase int

const (
	PhaseTargeting Phase = iota
	PhaseNullification
	PhaseResolution
	PhaseSpecialExecution
	PhaseCompleted
)

var phaseNames = map[Phase]string{
	PhaseTargeting:        "TARGETING",
	PhaseNullification:    "NULLIFICATION",
	PhaseResolution:       "RESOLUTION",
	PhaseSpecialExecution: "SPECIAL_EXECUTION",
	PhaseCompleted:        "COMPLETED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// MarshalText renders the phase name on the wire.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// phaseState carries the data that only exists in one phase. Mutators
// type-assert the variant they need.
type phaseState interface {
	phase() Phase
}

type targetingState struct{}

type nullificationState struct {
	openedAt time.Time
}

type resolutionState struct{}

type specialState struct {
	protocol SpecialProtocol
}

type completedState struct {
	result Result
}

func (targetingState) phase() Phase     { return PhaseTargeting }
func (nullificationState) phase() Phase { return PhaseNullification }
func (resolutionState) phase() Phase    { return PhaseResolution }
func (specialState) phase() Phase       { return PhaseSpecialExecution }
func (completedState) phase() Phase     { return PhaseCompleted }

// ResponseType classifies an entry in an execution's response log.
type ResponseType string

const (
	ResponseNegate  ResponseType = "NEGATE"
	ResponseDecline ResponseType = "DECLINE"
	ResponseTimeout ResponseType = "TIMEOUT"
	ResponseSelect  ResponseType = "SELECT"
	ResponseAbstain ResponseType = "ABSTAIN"
)

// Response is one entry in the ordered response log.
type Response struct {
	PlayerID string       `json:"playerId"`
	CardID   string       `json:"cardId,omitempty"`
	Type     ResponseType `json:"type"`
	At       time.Time    `json:"at"`
}

// Result is the terminal outcome of an execution.
type Result struct {
	Success    bool   `json:"success"`
	Blocked    bool   `json:"blocked"`
	BlockedBy  string `json:"blockedBy,omitempty"`
	Message    string `json:"message"`
	CardsDrawn int    `json:"cardsDrawn"`
}

// Execution tracks one card from play to completion. It is owned by the
// engine and only touched under the room lock.
type Execution struct {
	ID               string
	RoomID           string
	Card             game.Card
	CasterID         string
	RequestedTargets []string
	Targets          []string
	Responses        []Response
	Blocked          bool
	Result           *Result
	StartedAt        time.Time

	state      phaseState
	outcome    game.Outcome
	generation int
	timer      *time.Timer
}

// Phase returns the execution's current phase.
func (x *Execution) Phase() Phase {
	if x.state == nil {
		return PhaseTargeting
	}
	return x.state.phase()
}

func (x *Execution) hasResponded(playerID string) bool {
	for _, r := range x.Responses {
		if r.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (x *Execution) record(playerID, cardID string, kind ResponseType) {
	x.Responses = append(x.Responses, Response{PlayerID: playerID, CardID: cardID, Type: kind, At: time.Now()})
}

// View is a read-only copy of an execution for callers outside the engine.
type View struct {
	ExecutionID      string      `json:"executionId"`
	RoomID           string      `json:"roomId"`
	Card             game.Card   `json:"card"`
	CasterID         string      `json:"casterId"`
	Targets          []string    `json:"targets"`
	Phase            Phase       `json:"phase"`
	Blocked          bool        `json:"blocked"`
	Responses        []Response  `json:"responses"`
	Result           *Result     `json:"result,omitempty"`
	CurrentPlayerID  string      `json:"currentPlayerId,omitempty"`
	AvailableOptions []game.Card `json:"availableOptions,omitempty"`
}

func (x *Execution) view() View {
	v := View{
		ExecutionID: x.ID,
		RoomID:      x.RoomID,
		Card:        x.Card,
		CasterID:    x.CasterID,
		Targets:     append([]string(nil), x.Targets...),
		Phase:       x.Phase(),
		Blocked:     x.Blocked,
		Responses:   append([]Response(nil), x.Responses...),
	}
	if x.Result != nil {
		result := *x.Result
		v.Result = &result
	}
	if st, ok := x.state.(*specialState); ok {
		if actor, ok := st.protocol.CurrentActor(); ok {
			v.CurrentPlayerID = actor
		}
		v.AvailableOptions = st.protocol.Options()
	}
	return v
}
