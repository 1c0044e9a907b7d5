package handlers

import (
	"net/http"
)

// ==================== Events ====================

func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Event.ListEvents(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, events)
}

func (h *Handlers) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	ev, err := h.Event.CreateEvent(r.Context(), req.Name, req.Type)
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusCreated, "Event created", ev)
}

func (h *Handlers) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	ev, err := h.Event.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	segments, err := h.Event.ListSegments(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, EventDetailResponse{Event: ev, Segments: segments})
}

func (h *Handlers) handleSetLocked(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req LockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Event.SetLocked(r.Context(), id, req.Locked); err != nil {
		respondError(w, err)
		return
	}
	msg := "Event unlocked"
	if req.Locked {
		msg = "Event locked"
	}
	respondResult(w, http.StatusOK, msg, nil)
}

// ==================== Segments ====================

func (h *Handlers) handleListSegments(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	segments, err := h.Event.ListSegments(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, segments)
}

func (h *Handlers) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req SegmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	seg, err := h.Event.CreateSegment(r.Context(), eventID, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusCreated, "Segment created", seg)
}

func (h *Handlers) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	seg, err := h.Event.GetSegment(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, seg)
}

func (h *Handlers) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req SegmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	seg, err := h.Event.UpdateSegment(r.Context(), id, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	h.refresh(seg.EventID)
	respondResult(w, http.StatusOK, "Segment updated", seg)
}

func (h *Handlers) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	seg, err := h.Event.GetSegment(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Event.DeleteSegment(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	h.refresh(seg.EventID)
	respondResult(w, http.StatusOK, "Segment deleted", nil)
}

// ==================== Criteria ====================

func (h *Handlers) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	segmentID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	criteria, err := h.Event.ListCriteria(r.Context(), segmentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, criteria)
}

func (h *Handlers) handleCreateCriteria(w http.ResponseWriter, r *http.Request) {
	segmentID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CriteriaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	c, err := h.Event.CreateCriteria(r.Context(), segmentID, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusCreated, "Criteria created", c)
}

func (h *Handlers) handleUpdateCriteria(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CriteriaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	c, err := h.Event.UpdateCriteria(r.Context(), id, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusOK, "Criteria updated", c)
}

func (h *Handlers) handleDeleteCriteria(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Event.DeleteCriteria(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusOK, "Criteria deleted", nil)
}
