package handlers

import "github.com/parlaywatch/parlaywatch/internal/models"

// RoomCreateRequest represents a request to create a room
type RoomCreateRequest struct {
	Name     string `json:"name"`
	HostName string `json:"host_name"`
}

// JoinRequest represents a request to join a room
type JoinRequest struct {
	Name string `json:"name"`
}

// SettingsUpdateRequest represents a request to replace a room's settings
type SettingsUpdateRequest = models.RoomSettings

// RoundCreateRequest represents a request to start a round
type RoundCreateRequest struct {
	VideoRef string `json:"video_ref"`
}

// ParlaySubmitRequest represents a request to submit a parlay
type ParlaySubmitRequest struct {
	Text       string `json:"text"`
	Punishment string `json:"punishment"`
}

// CallSubmitRequest represents a call from a player. Text defaults to the
// player's own parlay.
type CallSubmitRequest struct {
	Text      string  `json:"text"`
	VideoTime float64 `json:"video_time"`
	LatencyMs float64 `json:"latency_ms"`
}

// VoteResponseRequest represents a verification verdict
type VoteResponseRequest struct {
	Approve bool `json:"approve"`
}

// TextAtRequest represents a host confirmation or dismissal of text at a time
type TextAtRequest struct {
	Text      string  `json:"text"`
	VideoTime float64 `json:"video_time"`
}

// MarkerCreateRequest represents a host bookmark
type MarkerCreateRequest struct {
	VideoTime float64 `json:"video_time"`
	Note      string  `json:"note"`
}

// MarkerConfirmRequest represents the text confirmed at a marker
type MarkerConfirmRequest struct {
	Text string `json:"text"`
}

// VideoRequest represents a host playback action
type VideoRequest struct {
	Action    string  `json:"action"`
	VideoTime float64 `json:"video_time"`
}
