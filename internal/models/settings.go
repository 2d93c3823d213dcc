package models

import (
	"time"

	apperrors "github.com/parlaywatch/parlaywatch/internal/errors"
)

// RoomSettings are the per-room knobs the consensus and scoring rules read
type RoomSettings struct {
	ConsensusThreshold float64       `json:"consensus_threshold"`
	MinVotes           int           `json:"min_votes"`
	PauseSeconds       float64       `json:"pause_seconds"`
	VoteWindowSeconds  float64       `json:"vote_window_seconds"`
	FastTapSeconds     float64       `json:"fast_tap_seconds"`
	ScoreMultiplier    float64       `json:"score_multiplier"`
	TwoPlayerMode      TwoPlayerMode `json:"two_player_mode"`
}

// DefaultRoomSettings returns the settings a room starts with
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		ConsensusThreshold: 0.5,
		MinVotes:           2,
		PauseSeconds:       3,
		VoteWindowSeconds:  2.5,
		FastTapSeconds:     0.5,
		ScoreMultiplier:    1,
		TwoPlayerMode:      ModeUnanimous,
	}
}

// PauseDuration is how long an auto-pause lasts before play resumes
func (s RoomSettings) PauseDuration() time.Duration {
	return time.Duration(s.PauseSeconds * float64(time.Second))
}

// Validate rejects settings the consensus and scoring rules cannot work with
func (s RoomSettings) Validate() error {
	switch {
	case s.ConsensusThreshold < 0 || s.ConsensusThreshold > 1:
		return apperrors.Validation("consensus threshold must be between 0 and 1")
	case s.MinVotes < 1:
		return apperrors.Validation("min votes must be at least 1")
	case s.PauseSeconds < 0:
		return apperrors.Validation("pause seconds must not be negative")
	case s.VoteWindowSeconds <= 0:
		return apperrors.Validation("vote window must be positive")
	case s.FastTapSeconds < 0:
		return apperrors.Validation("fast tap window must not be negative")
	case s.ScoreMultiplier < 1:
		return apperrors.Validation("score multiplier must be at least 1")
	case !s.TwoPlayerMode.Valid():
		return apperrors.Validationf("invalid two player mode %q", s.TwoPlayerMode)
	}
	return nil
}
