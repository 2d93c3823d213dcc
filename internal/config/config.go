// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

// Config is the server configuration
type Config struct {
	Port        int    `env:"PARLAYWATCH_PORT" envDefault:"8080"`
	DBPath      string `env:"PARLAYWATCH_DB" envDefault:"parlaywatch.db"`
	BaseURL     string `env:"PARLAYWATCH_BASE_URL"`
	LogLevel    string `env:"PARLAYWATCH_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"PARLAYWATCH_LOG_FORMAT" envDefault:"text"`
	HTTPLogging bool   `env:"PARLAYWATCH_HTTP_LOGGING" envDefault:"false"`

	// Defaults applied to new rooms
	Room RoomDefaults `envPrefix:"PARLAYWATCH_ROOM_"`
}

// RoomDefaults are the environment overrides for new room settings
type RoomDefaults struct {
	ConsensusThreshold float64 `env:"CONSENSUS_THRESHOLD" envDefault:"0.5"`
	MinVotes           int     `env:"MIN_VOTES" envDefault:"2"`
	PauseSeconds       float64 `env:"PAUSE_SECONDS" envDefault:"3"`
	VoteWindowSeconds  float64 `env:"VOTE_WINDOW_SECONDS" envDefault:"2.5"`
	FastTapSeconds     float64 `env:"FAST_TAP_SECONDS" envDefault:"0.5"`
	ScoreMultiplier    float64 `env:"SCORE_MULTIPLIER" envDefault:"1"`
	TwoPlayerMode      string  `env:"TWO_PLAYER_MODE" envDefault:"unanimous"`
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load parses the environment into a Config
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.RoomSettings(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RoomSettings converts the room defaults into validated room settings
func (c Config) RoomSettings() (models.RoomSettings, error) {
	mode, ok := models.ParseTwoPlayerMode(c.Room.TwoPlayerMode)
	if !ok {
		return models.RoomSettings{}, fmt.Errorf("invalid two player mode %q", c.Room.TwoPlayerMode)
	}
	s := models.RoomSettings{
		ConsensusThreshold: c.Room.ConsensusThreshold,
		MinVotes:           c.Room.MinVotes,
		PauseSeconds:       c.Room.PauseSeconds,
		VoteWindowSeconds:  c.Room.VoteWindowSeconds,
		FastTapSeconds:     c.Room.FastTapSeconds,
		ScoreMultiplier:    c.Room.ScoreMultiplier,
		TwoPlayerMode:      mode,
	}
	if err := s.Validate(); err != nil {
		return models.RoomSettings{}, err
	}
	return s, nil
}
