package repository

import (
	"context"

	"github.com/abrezinsky/tabulator/internal/models"
)

// EventRepository defines event data operations
type EventRepository interface {
	CreateEvent(ctx context.Context, name string, eventType models.EventType) (int64, error)
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	SetEventLocked(ctx context.Context, id int, locked bool) error
	SetEventStatus(ctx context.Context, id int, status models.EventStatus) error
	SetActiveSegment(ctx context.Context, eventID int, segmentID *int) error
}

// SegmentRepository defines round data operations
type SegmentRepository interface {
	CreateSegment(ctx context.Context, seg models.Segment) (int64, error)
	GetSegment(ctx context.Context, id int) (*models.Segment, error)
	ListSegments(ctx context.Context, eventID int) ([]models.Segment, error)
	UpdateSegment(ctx context.Context, seg models.Segment) error
	DeleteSegment(ctx context.Context, id int) error
	SetSegmentParticipants(ctx context.Context, id int, contestantIDs []int) error
	SetSegmentConcluded(ctx context.Context, id int, concluded bool) error
	IncrementSegmentQuestions(ctx context.Context, id int) error
	MaxOrderIndex(ctx context.Context, eventID int) (int, error)
	OrderIndexTaken(ctx context.Context, eventID, orderIndex, excludeID int) (bool, error)
}

// CriteriaRepository defines pageant criteria operations
type CriteriaRepository interface {
	CreateCriteria(ctx context.Context, c models.Criteria) (int64, error)
	GetCriteria(ctx context.Context, id int) (*models.Criteria, error)
	ListCriteria(ctx context.Context, segmentID int) ([]models.Criteria, error)
	ListCriteriaForEvent(ctx context.Context, eventID int) ([]models.Criteria, error)
	UpdateCriteria(ctx context.Context, c models.Criteria) error
	DeleteCriteria(ctx context.Context, id int) error
}

// ContestantRepository defines contestant operations
type ContestantRepository interface {
	CreateContestant(ctx context.Context, c models.Contestant) (int64, error)
	GetContestant(ctx context.Context, id int) (*models.Contestant, error)
	ListContestants(ctx context.Context, eventID int) ([]models.Contestant, error)
	UpdateContestant(ctx context.Context, c models.Contestant) error
	DeleteContestant(ctx context.Context, id int) error
	CandidateNumberTaken(ctx context.Context, eventID int, division string, number, excludeID int) (bool, error)
	RenumberDivision(ctx context.Context, eventID int, division string) error
	SetContestantStatus(ctx context.Context, ids []int, status models.ContestantStatus) error
	ResetContestantStatuses(ctx context.Context, eventID int) error
	AssignTabulator(ctx context.Context, contestantID int, tabulatorID *int) error
	FindContestantByTabulator(ctx context.Context, tabulatorID int) (int, bool, error)
}

// JudgeRepository defines judge and tabulator operations
type JudgeRepository interface {
	CreateJudge(ctx context.Context, eventID int, name string, role models.JudgeRole, accessCode string) (int64, error)
	GetJudge(ctx context.Context, id int) (*models.Judge, error)
	GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error)
	ListJudges(ctx context.Context, eventID int) ([]models.Judge, error)
	DeleteJudge(ctx context.Context, id int) error
}

// ScoreRepository defines score store operations. Both upserts replace the
// value stored under their key; nothing else is kept.
type ScoreRepository interface {
	UpsertCriterionScore(ctx context.Context, contestantID, judgeID, criteriaID, segmentID int, value float64) error
	UpsertAnswer(ctx context.Context, contestantID int, tabulatorID *int, segmentID, questionNumber int, value float64, correct bool) error
	ListScoresForEvent(ctx context.Context, eventID int) ([]models.Score, error)
	ListScoresForSegment(ctx context.Context, segmentID int) ([]models.Score, error)
	DeleteJudgeScores(ctx context.Context, judgeID int) error
	SetJudgeProgress(ctx context.Context, judgeID, segmentID int, finished bool) error
	ListJudgeProgress(ctx context.Context, segmentID int) ([]models.JudgeProgress, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	EventRepository
	SegmentRepository
	CriteriaRepository
	ContestantRepository
	JudgeRepository
	ScoreRepository
	SettingsRepository
	Transactor
}

// Transactor runs fn against a repository bound to a single transaction.
// fn's error rolls the transaction back.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx FullRepository) error) error
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
