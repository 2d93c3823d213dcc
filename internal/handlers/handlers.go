package handlers

import (
	"context"
	"net/http"

	"github.com/parlaywatch/parlaywatch/internal/auth"
	"github.com/parlaywatch/parlaywatch/internal/services"
	"github.com/parlaywatch/parlaywatch/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Rooms     services.RoomServicer
	Rounds    services.RoundServicer
	Consensus services.ConsensusServicer
	Auth      *auth.Auth
	Hub       *websocket.Hub
	Metrics   http.Handler
	Health    HealthChecker
	BaseURL   string
	Log       HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// HealthChecker reports whether storage is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// New creates a new Handlers instance with all dependencies
func New(
	rooms services.RoomServicer,
	rounds services.RoundServicer,
	consensus services.ConsensusServicer,
	playerAuth *auth.Auth,
	hub *websocket.Hub,
	metrics http.Handler,
	health HealthChecker,
	baseURL string,
	log HTTPLogger,
) *Handlers {
	return &Handlers{
		Rooms:     rooms,
		Rounds:    rounds,
		Consensus: consensus,
		Auth:      playerAuth,
		Hub:       hub,
		Metrics:   metrics,
		Health:    health,
		BaseURL:   baseURL,
		Log:       log,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without a hub, metrics or health check
func NewForTesting(rooms services.RoomServicer, rounds services.RoundServicer, consensus services.ConsensusServicer) *Handlers {
	return &Handlers{
		Rooms:     rooms,
		Rounds:    rounds,
		Consensus: consensus,
		Auth:      auth.New(),
		BaseURL:   "http://localhost:8080",
		Log:       NoopHTTPLogger{},
	}
}

// session returns the player session RequirePlayer placed on the request
func session(r *http.Request) auth.Session {
	s, _ := auth.SessionFromContext(r.Context())
	return s
}
