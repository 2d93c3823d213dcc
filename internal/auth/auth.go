package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	SessionExpiry = 12 * time.Hour
	// TokenParam carries the token on websocket upgrades, where browsers
	// cannot set headers
	TokenParam = "token"
)

// Session identifies the player behind a token
type Session struct {
	PlayerID string
	RoomID   string
	IsHost   bool
	Expires  time.Time
}

type contextKey struct{}

// Auth issues and validates player session tokens
type Auth struct {
	sessions map[string]Session
	mu       sync.RWMutex
	now      func() time.Time
}

// New creates a new Auth instance
func New() *Auth {
	return &Auth{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Issue creates a session token for a player who joined a room
func (a *Auth) Issue(playerID, roomID string, isHost bool) string {
	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = Session{
		PlayerID: playerID,
		RoomID:   roomID,
		IsHost:   isHost,
		Expires:  a.now().Add(SessionExpiry),
	}
	a.mu.Unlock()

	return token
}

// Revoke invalidates a session token
func (a *Auth) Revoke(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// Validate returns the session for a token if it is known and unexpired
func (a *Auth) Validate(token string) (Session, bool) {
	a.mu.RLock()
	session, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return Session{}, false
	}

	if a.now().After(session.Expires) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return Session{}, false
	}

	return session, true
}

// TokenFromRequest reads a bearer token, falling back to the token query parameter
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get(TokenParam)
}

// SessionFromRequest extracts and validates the session from a request
func (a *Auth) SessionFromRequest(r *http.Request) (Session, bool) {
	token := TokenFromRequest(r)
	if token == "" {
		return Session{}, false
	}
	return a.Validate(token)
}

// RequirePlayer middleware for API endpoints (returns 401)
func (a *Auth) RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, ok := a.SessionFromRequest(r); ok {
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - join the room first"}`))
	})
}

// WithSession returns a context carrying the session
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFromContext returns the session placed by RequirePlayer
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
