package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/parlaywatch/parlaywatch/internal/cache"
	"github.com/parlaywatch/parlaywatch/internal/handlers"
	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
	"github.com/parlaywatch/parlaywatch/internal/scheduler"
	"github.com/parlaywatch/parlaywatch/internal/services"
	"github.com/parlaywatch/parlaywatch/internal/testutil"
)

type testSetup struct {
	repo     *repository.Repository
	handlers *handlers.Handlers
	router   chi.Router
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	log := logger.New()
	sched := scheduler.New()
	t.Cleanup(sched.Stop)

	consensus := services.NewConsensusService(log, repo, cache.NewTallies(), sched, nil)
	rounds := services.NewRoundService(log, repo, consensus, cache.NewEventStats(), sched, nil)
	rooms := services.NewRoomService(log, repo, models.DefaultRoomSettings())

	h := handlers.NewForTesting(rooms, rounds, consensus)
	h.Health = repo
	return &testSetup{repo: repo, handlers: h, router: h.Router()}
}

// do sends a JSON request, authenticated when token is set
func (s *testSetup) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

// session is a player's view of a room
type session struct {
	RoomID   string
	PlayerID string
	Token    string
}

// createRoom creates a room and returns the host session
func (s *testSetup) createRoom(t *testing.T) session {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/rooms", "", handlers.RoomCreateRequest{Name: "game night", HostName: "sam"})
	expectStatus(t, rec, http.StatusCreated)
	resp := decode[handlers.SessionResponse](t, rec)
	return session{RoomID: resp.Room.ID, PlayerID: resp.Player.ID, Token: resp.Token}
}

func (s *testSetup) join(t *testing.T, roomID, name string) session {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/rooms/"+roomID+"/join", "", handlers.JoinRequest{Name: name})
	expectStatus(t, rec, http.StatusCreated)
	resp := decode[handlers.SessionResponse](t, rec)
	return session{RoomID: roomID, PlayerID: resp.Player.ID, Token: resp.Token}
}

// videoRound starts a round, submits one parlay per player and locks it
func (s *testSetup) videoRound(t *testing.T, host session, players []session, texts []string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/rooms/"+host.RoomID+"/rounds", host.Token, handlers.RoundCreateRequest{VideoRef: "clip.mp4"})
	expectStatus(t, rec, http.StatusCreated)
	round := decode[models.Round](t, rec)

	for i, text := range texts {
		rec := s.do(t, http.MethodPost, "/api/rounds/"+round.ID+"/parlay", players[i].Token,
			handlers.ParlaySubmitRequest{Text: text, Punishment: "sing"})
		expectStatus(t, rec, http.StatusOK)
	}

	rec = s.do(t, http.MethodPost, "/api/rounds/"+round.ID+"/lock", host.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	return round.ID
}
