package handlers

import (
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the edge length in pixels of join QR codes
const qrSize = 256

// joinURL is where a player's browser goes to join a room
func (h *Handlers) joinURL(roomID string) string {
	return strings.TrimRight(h.BaseURL, "/") + "/rooms/" + roomID + "/join"
}

// ==================== Rooms ====================

func (h *Handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req RoomCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	room, host, err := h.Rooms.CreateRoom(r.Context(), req.Name, req.HostName)
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, SessionResponse{
		Room:    room,
		Player:  host,
		Token:   h.Auth.Issue(host.ID, room.ID, true),
		JoinURL: h.joinURL(room.ID),
	})
}

func (h *Handlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	room, err := h.Rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, room)
}

func (h *Handlers) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req JoinRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	player, err := h.Rooms.JoinRoom(r.Context(), roomID, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	room, err := h.Rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, SessionResponse{
		Room:   room,
		Player: player,
		Token:  h.Auth.Issue(player.ID, roomID, false),
	})
}

func (h *Handlers) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := h.Rooms.GetRoom(r.Context(), roomID); err != nil {
		respondError(w, err)
		return
	}

	png, err := qrcode.Encode(h.joinURL(roomID), qrcode.Medium, qrSize)
	if err != nil {
		respondError(w, InternalError(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Handlers) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	board, err := h.Rooms.Scoreboard(r.Context(), roomID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, board)
}

// memberRoom returns the room in the path when the session belongs to it
func memberRoom(r *http.Request) (string, error) {
	roomID, err := pathParam(r, "roomID")
	if err != nil {
		return "", err
	}
	if session(r).RoomID != roomID {
		return "", Forbidden("Not a member of this room")
	}
	return roomID, nil
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	roomID, err := memberRoom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	room, err := h.Rooms.UpdateSettings(r.Context(), roomID, session(r).PlayerID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, room)
}

func (h *Handlers) handleListRounds(w http.ResponseWriter, r *http.Request) {
	roomID, err := memberRoom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	rounds, err := h.Rounds.Rounds(r.Context(), roomID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, rounds)
}

func (h *Handlers) handleStartRound(w http.ResponseWriter, r *http.Request) {
	roomID, err := memberRoom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req RoundCreateRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	round, err := h.Rounds.StartRound(r.Context(), roomID, session(r).PlayerID, req.VideoRef)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, round)
}
