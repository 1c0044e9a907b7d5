package handlers

import (
	"net/http"
)

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.AllSettings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, settings)
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	ctx := r.Context()
	if req.BaseURL != nil {
		if err := h.Settings.SetBaseURL(ctx, *req.BaseURL); err != nil {
			respondError(w, err)
			return
		}
	}
	for key, value := range req.Values {
		if err := h.Settings.SetSetting(ctx, key, value); err != nil {
			respondError(w, err)
			return
		}
	}
	respondResult(w, http.StatusOK, "Settings updated", nil)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}
