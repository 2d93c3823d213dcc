package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parlaywatch/parlaywatch/internal/handlers"
	"github.com/parlaywatch/parlaywatch/internal/metrics"
	"github.com/parlaywatch/parlaywatch/internal/models"
)

type failingChecker struct{}

func (failingChecker) Ping(context.Context) error { return errors.New("database is locked") }

func TestNewForTesting(t *testing.T) {
	h := handlers.NewForTesting(nil, nil, nil)

	if h.Auth == nil {
		t.Fatal("expected auth to be set")
	}
	if h.Hub != nil || h.Metrics != nil {
		t.Error("expected no hub or metrics")
	}
	if h.Router() == nil {
		t.Error("expected router")
	}
}

func TestHealth(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/healthz", "", nil)

	expectStatus(t, rec, http.StatusOK)
	if resp := decode[handlers.HealthResponse](t, rec); resp.Status != "ok" {
		t.Errorf("expected ok, got %q", resp.Status)
	}
}

func TestHealth_StorageDown(t *testing.T) {
	setup := newTestSetup(t)
	setup.handlers.Health = failingChecker{}
	router := setup.handlers.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusServiceUnavailable)
}

func TestMetricsEndpoint(t *testing.T) {
	setup := newTestSetup(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ActionDropped("host:lock")
	setup.handlers.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	router := setup.handlers.Router()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "actions_dropped_total") {
		t.Errorf("expected dropped action counter in output, got %q", rec.Body.String())
	}
}

func TestMetricsEndpoint_NotMountedWithoutHandler(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/metrics", "", nil)

	expectStatus(t, rec, http.StatusNotFound)
}

// ==================== Rooms ====================

func TestCreateRoom(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/rooms", "", handlers.RoomCreateRequest{Name: " game night ", HostName: "sam"})

	expectStatus(t, rec, http.StatusCreated)
	resp := decode[handlers.SessionResponse](t, rec)
	if resp.Token == "" {
		t.Error("expected a host token")
	}
	if resp.Room.Name != "game night" {
		t.Errorf("expected trimmed room name, got %q", resp.Room.Name)
	}
	if !resp.Player.IsHost || resp.Room.HostID != resp.Player.ID {
		t.Errorf("expected creator to be host, got %+v", resp.Player)
	}
	want := "http://localhost:8080/rooms/" + resp.Room.ID + "/join"
	if resp.JoinURL != want {
		t.Errorf("expected join url %q, got %q", want, resp.JoinURL)
	}
}

func TestCreateRoom_NameRequired(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/rooms", "", handlers.RoomCreateRequest{Name: "  ", HostName: "sam"})

	expectStatus(t, rec, http.StatusBadRequest)
}

func TestGetRoom(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)

	rec := setup.do(t, http.MethodGet, "/api/rooms/"+host.RoomID, "", nil)

	expectStatus(t, rec, http.StatusOK)
	room := decode[models.Room](t, rec)
	if room.Settings != models.DefaultRoomSettings() {
		t.Errorf("expected default settings, got %+v", room.Settings)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/api/rooms/nope", "", nil)

	expectStatus(t, rec, http.StatusNotFound)
}

func TestJoinRoom(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)

	alice := setup.join(t, host.RoomID, "alice")

	if alice.Token == "" || alice.Token == host.Token {
		t.Errorf("expected a fresh player token, got %q", alice.Token)
	}
	if alice.PlayerID == host.PlayerID {
		t.Error("expected a new player")
	}
}

func TestJoinRoom_UnknownRoom(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/rooms/nope/join", "", handlers.JoinRequest{Name: "alice"})

	expectStatus(t, rec, http.StatusNotFound)
}

func TestJoinRoom_NameRequired(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)

	rec := setup.do(t, http.MethodPost, "/api/rooms/"+host.RoomID+"/join", "", handlers.JoinRequest{})

	expectStatus(t, rec, http.StatusBadRequest)
}

func TestRoomQR(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)

	rec := setup.do(t, http.MethodGet, "/api/rooms/"+host.RoomID+"/qr", "", nil)

	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("expected PNG signature")
	}
}

func TestRoomQR_UnknownRoom(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/api/rooms/nope/qr", "", nil)

	expectStatus(t, rec, http.StatusNotFound)
}

func TestScoreboard_ExcludesHost(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)
	setup.join(t, host.RoomID, "alice")
	setup.join(t, host.RoomID, "bob")

	rec := setup.do(t, http.MethodGet, "/api/rooms/"+host.RoomID+"/scoreboard", "", nil)

	expectStatus(t, rec, http.StatusOK)
	board := decode[[]models.ScoreboardEntry](t, rec)
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	for _, e := range board {
		if e.PlayerID == host.PlayerID {
			t.Error("host should not be on the scoreboard")
		}
	}
}

// ==================== Auth ====================

func TestProtectedRoutes_RequireToken(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"no token", http.MethodGet, "/api/rooms/" + host.RoomID + "/rounds", ""},
		{"unknown token", http.MethodGet, "/api/rooms/" + host.RoomID + "/rounds", "forged"},
		{"settings", http.MethodPut, "/api/rooms/" + host.RoomID + "/settings", ""},
		{"call", http.MethodPost, "/api/rounds/r1/calls", ""},
		{"vote", http.MethodPost, "/api/calls/c1/responses", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := setup.do(t, tt.method, tt.path, tt.token, nil)
			expectStatus(t, rec, http.StatusUnauthorized)
		})
	}
}

func TestRoomRoutes_OtherRoomToken(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)
	other := setup.createRoom(t)

	rec := setup.do(t, http.MethodGet, "/api/rooms/"+host.RoomID+"/rounds", other.Token, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = setup.do(t, http.MethodPost, "/api/rooms/"+host.RoomID+"/rounds", other.Token, nil)
	expectStatus(t, rec, http.StatusForbidden)
}

// ==================== Settings ====================

func TestUpdateSettings(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)
	settings := models.DefaultRoomSettings()
	settings.TwoPlayerMode = models.ModeSpeedCall
	settings.PauseSeconds = 5

	rec := setup.do(t, http.MethodPut, "/api/rooms/"+host.RoomID+"/settings", host.Token, settings)

	expectStatus(t, rec, http.StatusOK)
	room := decode[models.Room](t, rec)
	if room.Settings != settings {
		t.Errorf("expected %+v, got %+v", settings, room.Settings)
	}

	rec = setup.do(t, http.MethodGet, "/api/rooms/"+host.RoomID, "", nil)
	if got := decode[models.Room](t, rec).Settings; got != settings {
		t.Errorf("expected stored settings %+v, got %+v", settings, got)
	}
}

func TestUpdateSettings_NotHost(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)
	alice := setup.join(t, host.RoomID, "alice")

	rec := setup.do(t, http.MethodPut, "/api/rooms/"+host.RoomID+"/settings", alice.Token, models.DefaultRoomSettings())

	expectStatus(t, rec, http.StatusForbidden)
}

func TestUpdateSettings_Invalid(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)
	settings := models.DefaultRoomSettings()
	settings.ConsensusThreshold = 2

	rec := setup.do(t, http.MethodPut, "/api/rooms/"+host.RoomID+"/settings", host.Token, settings)

	expectStatus(t, rec, http.StatusBadRequest)
	if resp := decode[handlers.APIError](t, rec); resp.Code != handlers.ErrCodeValidation {
		t.Errorf("expected validation code, got %q", resp.Code)
	}
}
