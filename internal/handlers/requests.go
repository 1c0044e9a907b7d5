package handlers

import (
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/services"
)

// EventCreateRequest represents a request to create an event
type EventCreateRequest struct {
	Name string           `json:"name" validate:"required"`
	Type models.EventType `json:"type" validate:"required,oneof=pageant quiz_bee"`
}

// LockRequest locks or unlocks an event
type LockRequest struct {
	Locked bool `json:"locked"`
}

// SegmentRequest represents a request to create or update a round.
// A null participant list keeps the existing one on update; an empty list lifts it.
type SegmentRequest struct {
	Name              string           `json:"name" validate:"required"`
	OrderIndex        int              `json:"order_index" validate:"gte=0"`
	Weight            float64          `json:"weight" validate:"gte=0,lte=1"`
	Kind              models.RoundKind `json:"kind" validate:"omitempty,oneof=normal final clincher"`
	QualifierLimit    int              `json:"qualifier_limit" validate:"gte=0"`
	PointsPerQuestion int              `json:"points_per_question" validate:"gte=0"`
	TotalQuestions    int              `json:"total_questions" validate:"gte=0"`
	ParticipantIDs    []int            `json:"participating_contestant_ids"`
}

func (r SegmentRequest) input() services.SegmentInput {
	return services.SegmentInput{
		Name:              r.Name,
		OrderIndex:        r.OrderIndex,
		Weight:            r.Weight,
		Kind:              r.Kind,
		QualifierLimit:    r.QualifierLimit,
		PointsPerQuestion: r.PointsPerQuestion,
		TotalQuestions:    r.TotalQuestions,
		ParticipantIDs:    r.ParticipantIDs,
	}
}

// CriteriaRequest represents a request to create or update a criterion
type CriteriaRequest struct {
	Name     string  `json:"name" validate:"required"`
	Weight   float64 `json:"weight" validate:"gt=0,lte=1"`
	MaxScore float64 `json:"max_score" validate:"gt=0"`
}

func (r CriteriaRequest) input() services.CriteriaInput {
	return services.CriteriaInput{Name: r.Name, Weight: r.Weight, MaxScore: r.MaxScore}
}

// ContestantRequest represents a request to create or update a contestant.
// A zero candidate number takes the next free number in the division.
type ContestantRequest struct {
	Name            string `json:"name" validate:"required"`
	Division        string `json:"division"`
	CandidateNumber int    `json:"candidate_number" validate:"gte=0"`
}

// TabulatorAssignRequest assigns or clears a contestant's tabulator
type TabulatorAssignRequest struct {
	TabulatorID *int `json:"tabulator_id"`
}

// JudgeCreateRequest represents a request to create a judge or tabulator
type JudgeCreateRequest struct {
	Name string           `json:"name" validate:"required"`
	Role models.JudgeRole `json:"role" validate:"omitempty,oneof=judge tabulator"`
}

// CriterionScoreRequest is a judge's score for one criterion
type CriterionScoreRequest struct {
	ContestantID int     `json:"contestant_id" validate:"required"`
	CriteriaID   int     `json:"criteria_id" validate:"required"`
	Value        float64 `json:"value" validate:"gte=0"`
}

// AnswerRequest is a tabulator's mark for one question
type AnswerRequest struct {
	ContestantID   int  `json:"contestant_id" validate:"required"`
	SegmentID      int  `json:"segment_id" validate:"required"`
	QuestionNumber int  `json:"question_number" validate:"required,gte=1"`
	IsCorrect      bool `json:"is_correct"`
}

// ProgressRequest marks a judge finished or unfinished with a segment
type ProgressRequest struct {
	SegmentID int  `json:"segment_id" validate:"required"`
	Finished  bool `json:"finished"`
}

// ActivateRequest selects the active round; null clears it
type ActivateRequest struct {
	SegmentID *int `json:"segment_id"`
}

// AdvanceRequest moves qualifiers from a round into the next one
type AdvanceRequest struct {
	CurrentRoundID int   `json:"current_round_id" validate:"required"`
	QualifiedIDs   []int `json:"qualified_ids" validate:"required"`
}

// EliminateRequest marks everyone past the limit as eliminated
type EliminateRequest struct {
	Limit     int  `json:"limit" validate:"gte=0"`
	SegmentID *int `json:"segment_id"`
}

// SettingsUpdateRequest updates settings by key
type SettingsUpdateRequest struct {
	BaseURL *string           `json:"base_url"`
	Values  map[string]string `json:"values"`
}
