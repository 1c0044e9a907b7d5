package handlers

import (
	"net/http"
)

// Scoring devices identify themselves with their access code; the judge id is
// never taken from the request body.

func (h *Handlers) handleSubmitCriterionScore(w http.ResponseWriter, r *http.Request) {
	judge, err := h.judgeFromCode(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req CriterionScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Scoring.SubmitCriterionScore(r.Context(), judge.ID, req.ContestantID, req.CriteriaID, req.Value); err != nil {
		respondError(w, err)
		return
	}
	h.refresh(judge.EventID)
	respondResult(w, http.StatusOK, "Score saved", nil)
}

func (h *Handlers) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	judge, err := h.judgeFromCode(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req AnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	err = h.Scoring.SubmitAnswer(r.Context(), judge.ID, req.ContestantID, req.SegmentID, req.QuestionNumber, req.IsCorrect)
	if err != nil {
		respondError(w, err)
		return
	}
	h.refresh(judge.EventID)
	respondResult(w, http.StatusOK, "Answer saved", nil)
}

func (h *Handlers) handleMarkProgress(w http.ResponseWriter, r *http.Request) {
	judge, err := h.judgeFromCode(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req ProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Scoring.MarkJudgeFinished(r.Context(), judge.ID, req.SegmentID, req.Finished); err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusOK, "Progress saved", nil)
}

func (h *Handlers) handleListProgress(w http.ResponseWriter, r *http.Request) {
	segmentID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	progress, err := h.Scoring.ListJudgeProgress(r.Context(), segmentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, progress)
}
