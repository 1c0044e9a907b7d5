package handlers

import (
	"net/http"

	"github.com/abrezinsky/tabulator/internal/services"
	"github.com/abrezinsky/tabulator/internal/websocket"
)

// ==================== Rankings ====================

func (h *Handlers) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	segmentID, err := parseOptionalIntQuery(r, "segment_id")
	if err != nil {
		respondError(w, err)
		return
	}
	ranking, err := h.Ranking.GetRanking(r.Context(), eventID, services.RankScope{SegmentID: segmentID})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, RankingResponse{EventID: eventID, SegmentID: segmentID, Rankings: ranking})
}

func (h *Handlers) handleGetPreliminary(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	ranking, err := h.Ranking.GetPreliminaryRankings(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, RankingResponse{EventID: eventID, Rankings: ranking})
}

func (h *Handlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	board, err := h.Ranking.Leaderboard(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, board)
}

func (h *Handlers) handlePageantMatrix(w http.ResponseWriter, r *http.Request) {
	segmentID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	m, err := h.Ranking.PageantMatrix(r.Context(), segmentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, m)
}

func (h *Handlers) handleQuizMatrix(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	m, err := h.Ranking.QuizMatrix(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, m)
}

// ==================== Round control ====================

func (h *Handlers) handleActivateSegment(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ActivateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Rounds.ActivateSegment(r.Context(), eventID, req.SegmentID); err != nil {
		respondError(w, err)
		return
	}
	payload := map[string]*int{"segment_id": req.SegmentID}
	h.broadcast(eventID, websocket.MessageRoundChange, payload)
	h.refresh(eventID)

	msg := "Segment activated"
	if req.SegmentID == nil {
		msg = "All segments deactivated"
	}
	respondResult(w, http.StatusOK, msg, payload)
}

func (h *Handlers) handleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req AdvanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	next, err := h.Rounds.AdvanceRound(r.Context(), eventID, req.CurrentRoundID, req.QualifiedIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	h.broadcast(eventID, websocket.MessageRoundChange, map[string]int{"segment_id": next.ID})
	h.refresh(eventID)
	respondResult(w, http.StatusOK, "Advanced to "+next.Name, next)
}

func (h *Handlers) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	report, err := h.Rounds.EvaluateAndAdvance(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	h.broadcast(eventID, websocket.MessageRoundChange, report)
	h.refresh(eventID)
	respondResult(w, http.StatusOK, report.Message, report)
}

func (h *Handlers) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	segmentID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	seg, err := h.Rounds.AddQuestion(r.Context(), segmentID)
	if err != nil {
		respondError(w, err)
		return
	}
	h.refresh(seg.EventID)
	respondResult(w, http.StatusOK, "Question added", seg)
}

func (h *Handlers) handleEliminate(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req EliminateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	result, err := h.Rounds.Eliminate(r.Context(), eventID, req.Limit, services.RankScope{SegmentID: req.SegmentID})
	if err != nil {
		respondError(w, err)
		return
	}
	h.refresh(eventID)
	respondResult(w, http.StatusOK, "Elimination applied", result)
}
