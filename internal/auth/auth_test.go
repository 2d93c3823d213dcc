package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	a := New()

	if a == nil {
		t.Fatal("expected auth to be created")
	}
	if a.sessions == nil {
		t.Error("expected sessions map to be initialized")
	}
}

func TestIssue_ReturnsToken(t *testing.T) {
	a := New()

	token := a.Issue("p1", "room1", false)

	if len(token) != 64 { // 32 bytes = 64 hex chars
		t.Errorf("expected 64-char token, got %d chars", len(token))
	}
	if other := a.Issue("p1", "room1", false); other == token {
		t.Error("expected a fresh token per issue")
	}
}

func TestValidate(t *testing.T) {
	a := New()
	token := a.Issue("p1", "room1", true)

	session, ok := a.Validate(token)
	if !ok {
		t.Fatal("expected token to be valid")
	}
	if session.PlayerID != "p1" || session.RoomID != "room1" || !session.IsHost {
		t.Errorf("unexpected session %+v", session)
	}

	if _, ok := a.Validate("made-up"); ok {
		t.Error("expected unknown token to be invalid")
	}
}

func TestValidate_Expired(t *testing.T) {
	a := New()
	now := time.Now()
	a.now = func() time.Time { return now }
	token := a.Issue("p1", "room1", false)

	a.now = func() time.Time { return now.Add(SessionExpiry + time.Second) }
	if _, ok := a.Validate(token); ok {
		t.Error("expected expired token to be invalid")
	}

	a.mu.RLock()
	_, exists := a.sessions[token]
	a.mu.RUnlock()
	if exists {
		t.Error("expected expired session to be removed")
	}
}

func TestRevoke(t *testing.T) {
	a := New()
	token := a.Issue("p1", "room1", false)

	a.Revoke(token)

	if _, ok := a.Validate(token); ok {
		t.Error("expected revoked token to be invalid")
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws/rooms/abc?token=from-query", nil)
	if got := TokenFromRequest(r); got != "from-query" {
		t.Errorf("expected query token, got %q", got)
	}

	r.Header.Set("Authorization", "Bearer from-header")
	if got := TokenFromRequest(r); got != "from-header" {
		t.Errorf("expected header token to win, got %q", got)
	}
}

func TestRequirePlayer_Unauthorized(t *testing.T) {
	a := New()
	handler := a.RequirePlayer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/rounds/r1/calls", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestRequirePlayer_PutsSessionOnContext(t *testing.T) {
	a := New()
	token := a.Issue("p1", "room1", false)

	var got Session
	handler := a.RequirePlayer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok {
			t.Error("expected session on context")
		}
		got = s
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/rounds/r1/calls", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if got.PlayerID != "p1" {
		t.Errorf("expected player p1, got %+v", got)
	}
}
