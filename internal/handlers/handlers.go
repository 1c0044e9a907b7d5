package handlers

import (
	"github.com/abrezinsky/tabulator/internal/metrics"
	"github.com/abrezinsky/tabulator/internal/services"
	"github.com/abrezinsky/tabulator/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Event      services.EventServicer
	Contestant services.ContestantServicer
	Judge      services.JudgeServicer
	Scoring    services.ScoringServicer
	Ranking    services.RankingServicer
	Rounds     services.RoundServicer
	Settings   services.SettingsServicer
	Hub        *websocket.Hub
	Metrics    *metrics.Metrics
	Log        HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// Services bundles the service layer handed to New
type Services struct {
	Event      services.EventServicer
	Contestant services.ContestantServicer
	Judge      services.JudgeServicer
	Scoring    services.ScoringServicer
	Ranking    services.RankingServicer
	Rounds     services.RoundServicer
	Settings   services.SettingsServicer
}

// New creates a new Handlers instance with all dependencies. hub and m may be nil.
func New(svc Services, hub *websocket.Hub, m *metrics.Metrics, log HTTPLogger) *Handlers {
	return &Handlers{
		Event:      svc.Event,
		Contestant: svc.Contestant,
		Judge:      svc.Judge,
		Scoring:    svc.Scoring,
		Ranking:    svc.Ranking,
		Rounds:     svc.Rounds,
		Settings:   svc.Settings,
		Hub:        hub,
		Metrics:    m,
		Log:        log,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without a live hub or metrics
func NewForTesting(svc Services) *Handlers {
	return New(svc, nil, nil, NoopHTTPLogger{})
}

// refresh pushes a new leaderboard to an event's viewers after a mutation
func (h *Handlers) refresh(eventID int) {
	if h.Hub != nil {
		h.Hub.Refresh(eventID)
	}
}

func (h *Handlers) broadcast(eventID int, msgType string, payload any) {
	if h.Hub != nil {
		h.Hub.Broadcast(eventID, msgType, payload)
	}
}
