package server

import "encoding/json"

// Intent types accepted on the WebSocket.
const (
	IntentCreateRoom      = "CreateRoom"
	IntentJoinRoom        = "JoinRoom"
	IntentListRooms       = "ListRooms"
	IntentStartGame       = "StartGame"
	IntentPlayCard        = "PlayCard"
	IntentRespondToCard   = "RespondToCard"
	IntentSelectFromOffer = "SelectFromOffer"
	IntentEndTurn         = "EndTurn"
)

// Envelope is one inbound frame.
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type CreateRoomIntent struct {
	RoomName   string `json:"roomName"`
	PlayerName string `json:"playerName"`
}

type JoinRoomIntent struct {
	RoomID       string `json:"roomId"`
	PlayerName   string `json:"playerName"`
	SpectateOnly bool   `json:"spectateOnly"`
}

type StartGameIntent struct {
	RoomID string `json:"roomId"`
}

type PlayCardIntent struct {
	PlayerID  string   `json:"playerId"`
	CardID    string   `json:"cardId"`
	TargetIDs []string `json:"targetIds"`
}

// RespondToCardIntent answers a nullification window. An empty ExecutionID
// means the room's active execution.
type RespondToCardIntent struct {
	PlayerID       string `json:"playerId"`
	ExecutionID    string `json:"executionId,omitempty"`
	ResponseCardID string `json:"responseCardId,omitempty"`
	Accept         bool   `json:"accept"`
}

type SelectFromOfferIntent struct {
	PlayerID       string `json:"playerId"`
	ExecutionID    string `json:"executionId,omitempty"`
	SelectedItemID string `json:"selectedItemId"`
}

type EndTurnIntent struct {
	PlayerID string `json:"playerId"`
}
