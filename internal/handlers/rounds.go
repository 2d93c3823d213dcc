package handlers

import (
	"net/http"

	"github.com/parlaywatch/parlaywatch/internal/services"
)

// ==================== Round Views ====================

func (h *Handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}

	snap, err := h.Rounds.Snapshot(r.Context(), roundID)
	if err != nil {
		respondError(w, err)
		return
	}
	if snap.Round.RoomID != session(r).RoomID {
		respondError(w, Forbidden("Not a member of this room"))
		return
	}
	respondOK(w, snap)
}

// roundInSession loads the round and checks it belongs to the caller's room
func (h *Handlers) roundInSession(r *http.Request, roundID string) error {
	round, err := h.Rounds.Round(r.Context(), roundID)
	if err != nil {
		return err
	}
	if round.RoomID != session(r).RoomID {
		return Forbidden("Not a member of this room")
	}
	return nil
}

func (h *Handlers) handleClusters(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.roundInSession(r, roundID); err != nil {
		respondError(w, err)
		return
	}
	if !session(r).IsHost {
		respondError(w, Forbidden("Only the host can view clusters"))
		return
	}

	clusters, err := h.Rounds.Clusters(r.Context(), roundID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, clusters)
}

func (h *Handlers) handleLoser(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.roundInSession(r, roundID); err != nil {
		respondError(w, err)
		return
	}

	playerID, ok, err := h.Rounds.Loser(r.Context(), roundID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, LoserResponse{PlayerID: playerID, Found: ok})
}

// ==================== Player Actions ====================

func (h *Handlers) handleSubmitParlay(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ParlaySubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	parlay, err := h.Rounds.SubmitParlay(r.Context(), roundID, session(r).PlayerID, req.Text, req.Punishment)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, parlay)
}

func (h *Handlers) handleSubmitCall(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CallSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	res, err := h.Rounds.SubmitCall(r.Context(), services.CallInput{
		RoundID:   roundID,
		PlayerID:  session(r).PlayerID,
		Text:      req.Text,
		VideoTime: req.VideoTime,
		LatencyMs: req.LatencyMs,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, res)
}

func (h *Handlers) handleVoteResponse(w http.ResponseWriter, r *http.Request) {
	callID, err := pathParam(r, "callID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req VoteResponseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	res, err := h.Consensus.Respond(r.Context(), callID, session(r).PlayerID, req.Approve)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, res)
}

// ==================== Host Actions ====================

// hostAction runs a host action that returns nothing
func (h *Handlers) hostAction(w http.ResponseWriter, r *http.Request, fn func(roundID, hostID string) error) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := fn(roundID, session(r).PlayerID); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w)
}

func (h *Handlers) handleLock(w http.ResponseWriter, r *http.Request) {
	h.hostAction(w, r, func(roundID, hostID string) error {
		return h.Rounds.Lock(r.Context(), roundID, hostID)
	})
}

func (h *Handlers) handleEndRound(w http.ResponseWriter, r *http.Request) {
	h.hostAction(w, r, func(roundID, hostID string) error {
		return h.Rounds.EndRound(r.Context(), roundID, hostID)
	})
}

func (h *Handlers) handleFinishReview(w http.ResponseWriter, r *http.Request) {
	h.hostAction(w, r, func(roundID, hostID string) error {
		return h.Rounds.FinishReview(r.Context(), roundID, hostID)
	})
}

func (h *Handlers) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.hostAction(w, r, func(roundID, hostID string) error {
		return h.Rounds.Complete(r.Context(), roundID, hostID)
	})
}

func (h *Handlers) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req VideoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.hostAction(w, r, func(roundID, hostID string) error {
		return h.Rounds.Video(r.Context(), roundID, hostID, req.Action, req.VideoTime)
	})
}

func (h *Handlers) handleConfirm(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req TextAtRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	info, err := h.Rounds.Confirm(r.Context(), roundID, session(r).PlayerID, req.Text, req.VideoTime)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, info)
}

func (h *Handlers) handleDismiss(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req TextAtRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	penalized, err := h.Rounds.Dismiss(r.Context(), roundID, session(r).PlayerID, req.Text, req.VideoTime)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, DismissResponse{Penalized: penalized})
}

func (h *Handlers) handleMark(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req MarkerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	marker, err := h.Rounds.Mark(r.Context(), roundID, session(r).PlayerID, req.VideoTime, req.Note)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, marker)
}

func (h *Handlers) handleConfirmMarker(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathParam(r, "roundID")
	if err != nil {
		respondError(w, err)
		return
	}
	markerID, err := pathParam(r, "markerID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req MarkerConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	info, err := h.Rounds.ConfirmMarker(r.Context(), roundID, session(r).PlayerID, markerID, req.Text)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, info)
}

func (h *Handlers) handleSkipMarker(w http.ResponseWriter, r *http.Request) {
	markerID, err := pathParam(r, "markerID")
	if err != nil {
		respondError(w, err)
		return
	}
	h.hostAction(w, r, func(roundID, hostID string) error {
		return h.Rounds.SkipMarker(r.Context(), roundID, hostID, markerID)
	})
}
