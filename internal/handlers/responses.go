package handlers

import "github.com/parlaywatch/parlaywatch/internal/models"

// StatusResponse is the body of actions without a result
type StatusResponse struct {
	Status string `json:"status"`
}

// SessionResponse is returned when a player creates or joins a room
type SessionResponse struct {
	Room    *models.Room   `json:"room"`
	Player  *models.Player `json:"player"`
	Token   string         `json:"token"`
	JoinURL string         `json:"join_url,omitempty"`
}

// DismissResponse lists the players penalized by a dismissal
type DismissResponse struct {
	Penalized []string `json:"penalized"`
}

// LoserResponse names the round's loser, if any
type LoserResponse struct {
	PlayerID string `json:"player_id,omitempty"`
	Found    bool   `json:"found"`
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	Status string `json:"status"`
}
