package game

import "time"

// RoomView is the public snapshot of a room broadcast in GameStateUpdate.
// Hands are reported as counts; each player receives its own cards privately.
type RoomView struct {
	RoomID             string          `json:"roomId"`
	Name               string          `json:"name"`
	State              GameState       `json:"state"`
	Phase              Phase           `json:"phase"`
	Turn               int             `json:"turn"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	CurrentPlayerID    string          `json:"currentPlayerId,omitempty"`
	Players            []PlayerView    `json:"players"`
	Spectators         []SpectatorView `json:"spectators"`
	DrawPileCount      int             `json:"drawPileCount"`
	DiscardPileCount   int             `json:"discardPileCount"`
	PlayedThisTurn     []PlayedCard    `json:"playedThisTurn"`
	ActiveExecutionID  string          `json:"activeExecutionId,omitempty"`
	MaxSeats           int             `json:"maxSeats"`
	Winners            []string        `json:"winners,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// PlayerView is the public view of a seated player.
type PlayerView struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"maxHealth"`
	HandCount int    `json:"handCount"`
	Equipment []Card `json:"equipment"`
	Role      string `json:"role,omitempty"`
	Alive     bool   `json:"alive"`
}

// SpectatorView is the public view of a spectator.
type SpectatorView struct {
	SpectatorID string `json:"spectatorId"`
	Name        string `json:"name"`
}

// RoomSummary is the compact listing entry returned by ListRooms.
type RoomSummary struct {
	RoomID         string    `json:"roomId"`
	Name           string    `json:"name"`
	State          GameState `json:"state"`
	PlayerCount    int       `json:"playerCount"`
	SpectatorCount int       `json:"spectatorCount"`
	MaxSeats       int       `json:"maxSeats"`
	CreatedAt      time.Time `json:"createdAt"`
}

// View builds a snapshot. The caller must hold the room lock.
func (r *Room) View() RoomView {
	view := RoomView{
		RoomID:             r.ID,
		Name:               r.Name,
		State:              r.State,
		Phase:              r.Phase,
		Turn:               r.Turn,
		CurrentPlayerIndex: r.CurrentPlayerIndex,
		Players:            make([]PlayerView, 0, len(r.Players)),
		Spectators:         make([]SpectatorView, 0, len(r.Spectators)),
		DrawPileCount:      len(r.DrawPile),
		DiscardPileCount:   len(r.DiscardPile),
		PlayedThisTurn:     append([]PlayedCard(nil), r.PlayedThisTurn...),
		ActiveExecutionID:  r.activeExecution,
		MaxSeats:           r.MaxSeats,
		Winners:            append([]string(nil), r.Winners...),
		CreatedAt:          r.CreatedAt,
	}
	if r.State == StatePlaying {
		if current, ok := r.CurrentPlayer(); ok {
			view.CurrentPlayerID = current.ID
		}
	}
	for _, p := range r.Players {
		view.Players = append(view.Players, PlayerView{
			PlayerID:  p.ID,
			Name:      p.Name,
			Health:    p.Health,
			MaxHealth: p.MaxHealth,
			HandCount: len(p.Hand),
			Equipment: append([]Card(nil), p.Equipment...),
			Role:      p.Role,
			Alive:     p.IsAlive(),
		})
	}
	for _, s := range r.Spectators {
		view.Spectators = append(view.Spectators, SpectatorView{SpectatorID: s.ID, Name: s.Name})
	}
	return view
}

// Summary builds a listing entry. The caller must hold the room lock.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		RoomID:         r.ID,
		Name:           r.Name,
		State:          r.State,
		PlayerCount:    len(r.Players),
		SpectatorCount: len(r.Spectators),
		MaxSeats:       r.MaxSeats,
		CreatedAt:      r.CreatedAt,
	}
}
