package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// instrument records request counts and latency by route pattern
func (h *Handlers) instrument(next http.Handler) http.Handler {
	if h.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.Metrics.ObserveHTTP(route, r.Method, status, time.Since(start))
	})
}

func (h *Handlers) handleLiveView(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if h.Hub == nil {
		respondError(w, NewAPIError(http.StatusServiceUnavailable, ErrCodeInternalServer, "Live views are disabled"))
		return
	}
	if _, err := h.Event.GetEvent(r.Context(), eventID); err != nil {
		respondError(w, err)
		return
	}
	h.Hub.ServeWs(w, r, eventID)
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(h.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// Live leaderboard stream; long-lived, so outside the request timeout
	r.Get("/ws/events/{id}", h.handleLiveView)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Events
		r.Get("/api/events", h.handleListEvents)
		r.Post("/api/events", h.handleCreateEvent)
		r.Get("/api/events/{id}", h.handleGetEvent)
		r.Post("/api/events/{id}/lock", h.handleSetLocked)

		// Segments and criteria
		r.Get("/api/events/{id}/segments", h.handleListSegments)
		r.Post("/api/events/{id}/segments", h.handleCreateSegment)
		r.Get("/api/segments/{id}", h.handleGetSegment)
		r.Put("/api/segments/{id}", h.handleUpdateSegment)
		r.Delete("/api/segments/{id}", h.handleDeleteSegment)
		r.Get("/api/segments/{id}/criteria", h.handleListCriteria)
		r.Post("/api/segments/{id}/criteria", h.handleCreateCriteria)
		r.Put("/api/criteria/{id}", h.handleUpdateCriteria)
		r.Delete("/api/criteria/{id}", h.handleDeleteCriteria)

		// Contestants
		r.Get("/api/events/{id}/contestants", h.handleListContestants)
		r.Post("/api/events/{id}/contestants", h.handleCreateContestant)
		r.Get("/api/contestants/{id}", h.handleGetContestant)
		r.Put("/api/contestants/{id}", h.handleUpdateContestant)
		r.Delete("/api/contestants/{id}", h.handleDeleteContestant)
		r.Put("/api/contestants/{id}/tabulator", h.handleAssignTabulator)

		// Judges and tabulators
		r.Get("/api/events/{id}/judges", h.handleListJudges)
		r.Post("/api/events/{id}/judges", h.handleCreateJudge)
		r.Delete("/api/judges/{id}", h.handleDeleteJudge)
		r.Get("/api/judges/{id}/link", h.handleJudgeLink)
		r.Get("/api/judges/{id}/qr", h.handleJudgeQR)

		// Scoring devices
		r.Get("/api/access/{code}", h.handleAccess)
		r.Post("/api/access/{code}/scores", h.handleSubmitCriterionScore)
		r.Post("/api/access/{code}/answers", h.handleSubmitAnswer)
		r.Post("/api/access/{code}/progress", h.handleMarkProgress)
		r.Get("/api/segments/{id}/progress", h.handleListProgress)

		// Rankings and tabulation
		r.Get("/api/events/{id}/rankings", h.handleGetRanking)
		r.Get("/api/events/{id}/rankings/preliminary", h.handleGetPreliminary)
		r.Get("/api/events/{id}/leaderboard", h.handleLeaderboard)
		r.Get("/api/events/{id}/matrix", h.handleQuizMatrix)
		r.Get("/api/segments/{id}/matrix", h.handlePageantMatrix)

		// Round control
		r.Post("/api/events/{id}/active-segment", h.handleActivateSegment)
		r.Post("/api/events/{id}/advance", h.handleAdvanceRound)
		r.Post("/api/events/{id}/evaluate", h.handleEvaluate)
		r.Post("/api/events/{id}/eliminate", h.handleEliminate)
		r.Post("/api/segments/{id}/questions", h.handleAddQuestion)

		// Settings
		r.Get("/api/settings", h.handleGetSettings)
		r.Put("/api/settings", h.handleUpdateSettings)
	})

	return r
}
