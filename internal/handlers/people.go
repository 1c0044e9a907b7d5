package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/services"
)

// ==================== Contestants ====================

func (h *Handlers) handleListContestants(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	contestants, err := h.Contestant.ListContestants(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, contestants)
}

func (h *Handlers) handleCreateContestant(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ContestantRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	c, err := h.Contestant.CreateContestant(r.Context(), services.Contestant{
		EventID:         eventID,
		CandidateNumber: req.CandidateNumber,
		Name:            req.Name,
		Division:        req.Division,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	h.refresh(eventID)
	respondResult(w, http.StatusCreated, "Contestant created", c)
}

func (h *Handlers) handleGetContestant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	c, err := h.Contestant.GetContestant(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, c)
}

func (h *Handlers) handleUpdateContestant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ContestantRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	c, err := h.Contestant.UpdateContestant(r.Context(), id, services.Contestant{
		CandidateNumber: req.CandidateNumber,
		Name:            req.Name,
		Division:        req.Division,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	h.refresh(c.EventID)
	respondResult(w, http.StatusOK, "Contestant updated", c)
}

func (h *Handlers) handleDeleteContestant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	c, err := h.Contestant.GetContestant(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Contestant.DeleteContestant(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	h.refresh(c.EventID)
	respondResult(w, http.StatusOK, "Contestant deleted", nil)
}

func (h *Handlers) handleAssignTabulator(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req TabulatorAssignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Contestant.AssignTabulator(r.Context(), id, req.TabulatorID); err != nil {
		respondError(w, err)
		return
	}
	msg := "Tabulator assigned"
	if req.TabulatorID == nil {
		msg = "Tabulator cleared"
	}
	respondResult(w, http.StatusOK, msg, nil)
}

// ==================== Judges ====================

func (h *Handlers) handleListJudges(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	judges, err := h.Judge.ListJudges(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, judges)
}

func (h *Handlers) handleCreateJudge(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req JudgeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	j, err := h.Judge.CreateJudge(r.Context(), eventID, req.Name, req.Role)
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusCreated, "Judge created", j)
}

func (h *Handlers) handleDeleteJudge(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Judge.DeleteJudge(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusOK, "Judge deleted", nil)
}

func (h *Handlers) handleJudgeLink(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	url, err := h.Judge.ScoringURL(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, JudgeLinkResponse{JudgeID: id, URL: url})
}

func (h *Handlers) handleJudgeQR(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	png, err := h.Judge.GenerateQRImage(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// handleAccess resolves an access code to the judge and what they may score right now
func (h *Handlers) handleAccess(w http.ResponseWriter, r *http.Request) {
	judge, err := h.judgeFromCode(r)
	if err != nil {
		respondError(w, err)
		return
	}
	ctx := r.Context()
	ev, err := h.Event.GetEvent(ctx, judge.EventID)
	if err != nil {
		respondError(w, err)
		return
	}
	contestants, err := h.Contestant.ListContestants(ctx, judge.EventID)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := AccessResponse{Judge: judge, Event: ev, Contestants: contestants}
	if ev.ActiveSegmentID != nil {
		seg, err := h.Event.GetSegment(ctx, *ev.ActiveSegmentID)
		if err != nil {
			respondError(w, err)
			return
		}
		resp.ActiveSegment = seg
		if ev.Type == models.EventPageant {
			if resp.Criteria, err = h.Event.ListCriteria(ctx, seg.ID); err != nil {
				respondError(w, err)
				return
			}
		}
		resp.Contestants = visibleTo(*seg, judge, contestants)
	}
	respondOK(w, resp)
}

func (h *Handlers) judgeFromCode(r *http.Request) (*models.Judge, error) {
	code := chi.URLParam(r, "code")
	if code == "" {
		return nil, BadRequest("Missing access code")
	}
	return h.Judge.GetJudgeByAccessCode(r.Context(), code)
}

// visibleTo narrows the list to the round's participants and, for tabulators,
// to the contestants assigned to them or to nobody
func visibleTo(seg models.Segment, judge *models.Judge, contestants []models.Contestant) []models.Contestant {
	out := make([]models.Contestant, 0, len(contestants))
	for _, c := range contestants {
		if !seg.Allows(c.ID) {
			continue
		}
		if judge.Role == models.RoleTabulator && c.AssignedTabulatorID != nil && *c.AssignedTabulatorID != judge.ID {
			continue
		}
		out = append(out, c)
	}
	return out
}
