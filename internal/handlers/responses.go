package handlers

import (
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/scoring"
)

// EventDetailResponse is an event with its rounds
type EventDetailResponse struct {
	Event    *models.Event    `json:"event"`
	Segments []models.Segment `json:"segments"`
}

// JudgeLinkResponse is the scoring link handed to a judge or tabulator
type JudgeLinkResponse struct {
	JudgeID int    `json:"judge_id"`
	URL     string `json:"url"`
}

// AccessResponse is what a scoring device sees after entering its access code
type AccessResponse struct {
	Judge         *models.Judge       `json:"judge"`
	Event         *models.Event       `json:"event"`
	ActiveSegment *models.Segment     `json:"active_segment,omitempty"`
	Criteria      []models.Criteria   `json:"criteria,omitempty"`
	Contestants   []models.Contestant `json:"contestants"`
}

// RankingResponse wraps a ranking with the scope it was computed for
type RankingResponse struct {
	EventID   int             `json:"event_id"`
	SegmentID *int            `json:"segment_id,omitempty"`
	Rankings  scoring.Ranking `json:"rankings"`
}
