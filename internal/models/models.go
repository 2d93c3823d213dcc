package models

import "time"

// Room is a game room. Rooms own their settings; everything else about the
// roster lives in the players table.
type Room struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	HostID    string       `json:"host_id"`
	Settings  RoomSettings `json:"settings"`
	CreatedAt time.Time    `json:"created_at"`
}

// Player is a member of a room. The host is stored as a player with IsHost set
// and never counts toward consensus quorums.
type Player struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"is_host"`
	Score    float64   `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// Round is one video played in a room
type Round struct {
	ID        string      `json:"id"`
	RoomID    string      `json:"room_id"`
	Index     int         `json:"index"`
	VideoRef  string      `json:"video_ref"`
	Status    RoundStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Parlay is a player's standing prediction for a round
type Parlay struct {
	ID             string     `json:"id"`
	RoundID        string     `json:"round_id"`
	PlayerID       string     `json:"player_id"`
	Text           string     `json:"text"`
	NormalizedText string     `json:"normalized_text"`
	Punishment     string     `json:"punishment"`
	ScoreFinal     float64    `json:"score_final"`
	LegsHit        int        `json:"legs_hit"`
	Accuracy       float64    `json:"accuracy"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Call is a player's claim that their predicted event just happened.
// VideoTime is latency-corrected seconds into the video.
type Call struct {
	ID             string    `json:"id"`
	RoundID        string    `json:"round_id"`
	PlayerID       string    `json:"player_id"`
	NormalizedText string    `json:"normalized_text"`
	VideoTime      float64   `json:"video_time"`
	CreatedAt      time.Time `json:"created_at"`
}

// VoteCluster is a derived group of calls referring to the same event.
// It is never persisted.
type VoteCluster struct {
	NormalizedText string   `json:"normalized_text"`
	Voters         []string `json:"voters"`
	TMin           float64  `json:"t_min"`
	TMax           float64  `json:"t_max"`
	TCenter        float64  `json:"t_center"`
	Count          int      `json:"count"`
}

// EventSource records which path confirmed an event
type EventSource string

const (
	SourceConsensus  EventSource = "consensus"
	SourceHostReview EventSource = "host_review"
)

// ConfirmedEvent is an accepted occurrence of a predicted event
type ConfirmedEvent struct {
	ID               string      `json:"id"`
	RoundID          string      `json:"round_id"`
	NormalizedText   string      `json:"normalized_text"`
	VideoTime        float64     `json:"video_time"`
	Source           EventSource `json:"source"`
	AwardedPlayerIDs []string    `json:"awarded_player_ids"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Marker is a host bookmark for deferred review
type Marker struct {
	ID        string    `json:"id"`
	RoundID   string    `json:"round_id"`
	HostID    string    `json:"host_id"`
	VideoTime float64   `json:"video_time"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// EventStat is the per-round hit statistic for one normalized text
type EventStat struct {
	Hits          int `json:"hits"`
	UniquePlayers int `json:"unique_players"`
}

// ScoreboardEntry is one line of a room scoreboard
type ScoreboardEntry struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Broadcast message types
const (
	MsgEventConfirmed = "event:confirmed"
	MsgPauseAuto      = "video:pause_auto"
	MsgResume         = "video:resume"
	MsgVideoPlay      = "video:play"
	MsgVideoPause     = "video:pause"
	MsgVideoSeek      = "video:seek"
	MsgVoteVerify     = "vote:verify"
	MsgVoteResolved   = "vote:resolved"
	MsgVoteExpired    = "vote:expired"
	MsgScoreboard     = "scoreboard:update"
	MsgRoundStatus    = "round:status"
	MsgRoundParlays   = "round:parlays"
	MsgMarkerCreated  = "marker:created"
	MsgPenaltyApplied = "penalty:applied"
	MsgError          = "error"
)
