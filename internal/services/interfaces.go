package services

import (
	"context"

	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/scoring"
)

// EventServicer defines the interface for event, round and criteria operations
type EventServicer interface {
	CreateEvent(ctx context.Context, name string, eventType models.EventType) (*models.Event, error)
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	SetLocked(ctx context.Context, id int, locked bool) error
	ListSegments(ctx context.Context, eventID int) ([]models.Segment, error)
	GetSegment(ctx context.Context, id int) (*models.Segment, error)
	CreateSegment(ctx context.Context, eventID int, in SegmentInput) (*models.Segment, error)
	UpdateSegment(ctx context.Context, id int, in SegmentInput) (*models.Segment, error)
	DeleteSegment(ctx context.Context, id int) error
	ListCriteria(ctx context.Context, segmentID int) ([]models.Criteria, error)
	CreateCriteria(ctx context.Context, segmentID int, in CriteriaInput) (*models.Criteria, error)
	UpdateCriteria(ctx context.Context, id int, in CriteriaInput) (*models.Criteria, error)
	DeleteCriteria(ctx context.Context, id int) error
}

// ContestantServicer defines the interface for contestant operations
type ContestantServicer interface {
	ListContestants(ctx context.Context, eventID int) ([]models.Contestant, error)
	GetContestant(ctx context.Context, id int) (*models.Contestant, error)
	CreateContestant(ctx context.Context, in Contestant) (*models.Contestant, error)
	UpdateContestant(ctx context.Context, id int, in Contestant) (*models.Contestant, error)
	DeleteContestant(ctx context.Context, id int) error
	AssignTabulator(ctx context.Context, contestantID int, tabulatorID *int) error
}

// JudgeServicer defines the interface for judge and tabulator operations
type JudgeServicer interface {
	CreateJudge(ctx context.Context, eventID int, name string, role models.JudgeRole) (*models.Judge, error)
	ListJudges(ctx context.Context, eventID int) ([]models.Judge, error)
	GetJudge(ctx context.Context, id int) (*models.Judge, error)
	GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error)
	DeleteJudge(ctx context.Context, id int) error
	ScoringURL(ctx context.Context, judgeID int) (string, error)
	GenerateQRImage(ctx context.Context, judgeID int) ([]byte, error)
}

// ScoringServicer defines the interface for score submission
type ScoringServicer interface {
	SubmitCriterionScore(ctx context.Context, judgeID, contestantID, criteriaID int, value float64) error
	SubmitAnswer(ctx context.Context, tabulatorID, contestantID, roundID, questionNumber int, isCorrect bool) error
	MarkJudgeFinished(ctx context.Context, judgeID, segmentID int, finished bool) error
	ListJudgeProgress(ctx context.Context, segmentID int) ([]models.JudgeProgress, error)
}

// RankingServicer defines the interface for rankings and matrices
type RankingServicer interface {
	GetRanking(ctx context.Context, eventID int, scope RankScope) (scoring.Ranking, error)
	GetPreliminaryRankings(ctx context.Context, eventID int) (scoring.Ranking, error)
	Leaderboard(ctx context.Context, eventID int) (*Leaderboard, error)
	PageantMatrix(ctx context.Context, segmentID int) (*scoring.Matrix, error)
	QuizMatrix(ctx context.Context, eventID int) (*scoring.Matrix, error)
}

// RoundServicer defines the interface for round transitions
type RoundServicer interface {
	ActivateSegment(ctx context.Context, eventID int, segmentID *int) error
	DeactivateAll(ctx context.Context, eventID int) error
	AdvanceRound(ctx context.Context, eventID, currentRoundID int, qualifiedIDs []int) (*models.Segment, error)
	EvaluateAndAdvance(ctx context.Context, eventID int) (*EvaluationReport, error)
	AddQuestion(ctx context.Context, segmentID int) (*models.Segment, error)
	Eliminate(ctx context.Context, eventID, limit int, scope RankScope) (*QualificationResult, error)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	SetDefaultBaseURL(ctx context.Context, url string) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]any, error)
}

// Ensure concrete types implement interfaces
var (
	_ EventServicer      = (*EventService)(nil)
	_ ContestantServicer = (*ContestantService)(nil)
	_ JudgeServicer      = (*JudgeService)(nil)
	_ ScoringServicer    = (*ScoringService)(nil)
	_ RankingServicer    = (*RankingService)(nil)
	_ RoundServicer      = (*RoundService)(nil)
	_ SettingsServicer   = (*SettingsService)(nil)
)
