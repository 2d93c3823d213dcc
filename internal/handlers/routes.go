package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// Operations
	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	// WebSocket (token checked by the hub, no request timeout)
	if h.Hub != nil {
		r.Get("/ws/rooms/{roomID}", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Rooms (public)
		r.Post("/api/rooms", h.handleCreateRoom)
		r.Get("/api/rooms/{roomID}", h.handleGetRoom)
		r.Post("/api/rooms/{roomID}/join", h.handleJoinRoom)
		r.Get("/api/rooms/{roomID}/qr", h.handleRoomQR)
		r.Get("/api/rooms/{roomID}/scoreboard", h.handleScoreboard)

		// Player API (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequirePlayer)

			// Room management
			r.Put("/api/rooms/{roomID}/settings", h.handleUpdateSettings)
			r.Get("/api/rooms/{roomID}/rounds", h.handleListRounds)
			r.Post("/api/rooms/{roomID}/rounds", h.handleStartRound)

			// Round views
			r.Get("/api/rounds/{roundID}", h.handleSnapshot)
			r.Get("/api/rounds/{roundID}/clusters", h.handleClusters)
			r.Get("/api/rounds/{roundID}/loser", h.handleLoser)

			// Player actions
			r.Post("/api/rounds/{roundID}/parlay", h.handleSubmitParlay)
			r.Post("/api/rounds/{roundID}/calls", h.handleSubmitCall)
			r.Post("/api/calls/{callID}/responses", h.handleVoteResponse)

			// Host actions
			r.Post("/api/rounds/{roundID}/lock", h.handleLock)
			r.Post("/api/rounds/{roundID}/confirm", h.handleConfirm)
			r.Post("/api/rounds/{roundID}/dismiss", h.handleDismiss)
			r.Post("/api/rounds/{roundID}/video", h.handleVideo)
			r.Post("/api/rounds/{roundID}/markers", h.handleMark)
			r.Post("/api/rounds/{roundID}/markers/{markerID}/confirm", h.handleConfirmMarker)
			r.Post("/api/rounds/{roundID}/markers/{markerID}/skip", h.handleSkipMarker)
			r.Post("/api/rounds/{roundID}/end", h.handleEndRound)
			r.Post("/api/rounds/{roundID}/finish-review", h.handleFinishReview)
			r.Post("/api/rounds/{roundID}/complete", h.handleComplete)
		})
	})

	return r
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	respondOK(w, HealthResponse{Status: "ok"})
}
