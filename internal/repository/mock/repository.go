package mock

import (
	"context"

	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.ListScoresForEventError = errors.New("database error")
//	svc := services.NewRankingService(log, mockRepo)
//	_, err := svc.GetRanking(ctx, eventID, services.RankScope{})
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Event Errors =====
	GetEventError         error
	SetEventStatusError   error
	SetActiveSegmentError error

	// ===== Segment Errors =====
	CreateSegmentError             error
	GetSegmentError                error
	ListSegmentsError              error
	SetSegmentParticipantsError    error
	SetSegmentConcludedError       error
	IncrementSegmentQuestionsError error

	// ===== Criteria Errors =====
	ListCriteriaError         error
	ListCriteriaForEventError error

	// ===== Contestant Errors =====
	ListContestantsError         error
	SetContestantStatusError     error
	ResetContestantStatusesError error
	RenumberDivisionError        error

	// ===== Judge Errors =====
	CreateJudgeError       error
	ListJudgesError        error
	DeleteJudgeScoresError error

	// ===== Score Errors =====
	UpsertCriterionScoreError error
	UpsertAnswerError         error
	ListScoresForEventError   error
	ListScoresForSegmentError error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// InTx hands fn a transaction-bound repository that keeps the injected errors
func (m *Repository) InTx(ctx context.Context, fn func(tx repository.FullRepository) error) error {
	return m.FullRepository.InTx(ctx, func(tx repository.FullRepository) error {
		wrapped := *m
		wrapped.FullRepository = tx
		return fn(&wrapped)
	})
}

// ===== Event Methods =====

func (m *Repository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	return m.FullRepository.GetEvent(ctx, id)
}

func (m *Repository) SetEventStatus(ctx context.Context, id int, status models.EventStatus) error {
	if m.SetEventStatusError != nil {
		return m.SetEventStatusError
	}
	return m.FullRepository.SetEventStatus(ctx, id, status)
}

func (m *Repository) SetActiveSegment(ctx context.Context, eventID int, segmentID *int) error {
	if m.SetActiveSegmentError != nil {
		return m.SetActiveSegmentError
	}
	return m.FullRepository.SetActiveSegment(ctx, eventID, segmentID)
}

// ===== Segment Methods =====

func (m *Repository) CreateSegment(ctx context.Context, seg models.Segment) (int64, error) {
	if m.CreateSegmentError != nil {
		return 0, m.CreateSegmentError
	}
	return m.FullRepository.CreateSegment(ctx, seg)
}

func (m *Repository) GetSegment(ctx context.Context, id int) (*models.Segment, error) {
	if m.GetSegmentError != nil {
		return nil, m.GetSegmentError
	}
	return m.FullRepository.GetSegment(ctx, id)
}

func (m *Repository) ListSegments(ctx context.Context, eventID int) ([]models.Segment, error) {
	if m.ListSegmentsError != nil {
		return nil, m.ListSegmentsError
	}
	return m.FullRepository.ListSegments(ctx, eventID)
}

func (m *Repository) SetSegmentParticipants(ctx context.Context, id int, contestantIDs []int) error {
	if m.SetSegmentParticipantsError != nil {
		return m.SetSegmentParticipantsError
	}
	return m.FullRepository.SetSegmentParticipants(ctx, id, contestantIDs)
}

func (m *Repository) SetSegmentConcluded(ctx context.Context, id int, concluded bool) error {
	if m.SetSegmentConcludedError != nil {
		return m.SetSegmentConcludedError
	}
	return m.FullRepository.SetSegmentConcluded(ctx, id, concluded)
}

func (m *Repository) IncrementSegmentQuestions(ctx context.Context, id int) error {
	if m.IncrementSegmentQuestionsError != nil {
		return m.IncrementSegmentQuestionsError
	}
	return m.FullRepository.IncrementSegmentQuestions(ctx, id)
}

// ===== Criteria Methods =====

func (m *Repository) ListCriteria(ctx context.Context, segmentID int) ([]models.Criteria, error) {
	if m.ListCriteriaError != nil {
		return nil, m.ListCriteriaError
	}
	return m.FullRepository.ListCriteria(ctx, segmentID)
}

func (m *Repository) ListCriteriaForEvent(ctx context.Context, eventID int) ([]models.Criteria, error) {
	if m.ListCriteriaForEventError != nil {
		return nil, m.ListCriteriaForEventError
	}
	return m.FullRepository.ListCriteriaForEvent(ctx, eventID)
}

// ===== Contestant Methods =====

func (m *Repository) ListContestants(ctx context.Context, eventID int) ([]models.Contestant, error) {
	if m.ListContestantsError != nil {
		return nil, m.ListContestantsError
	}
	return m.FullRepository.ListContestants(ctx, eventID)
}

func (m *Repository) SetContestantStatus(ctx context.Context, ids []int, status models.ContestantStatus) error {
	if m.SetContestantStatusError != nil {
		return m.SetContestantStatusError
	}
	return m.FullRepository.SetContestantStatus(ctx, ids, status)
}

func (m *Repository) ResetContestantStatuses(ctx context.Context, eventID int) error {
	if m.ResetContestantStatusesError != nil {
		return m.ResetContestantStatusesError
	}
	return m.FullRepository.ResetContestantStatuses(ctx, eventID)
}

func (m *Repository) RenumberDivision(ctx context.Context, eventID int, division string) error {
	if m.RenumberDivisionError != nil {
		return m.RenumberDivisionError
	}
	return m.FullRepository.RenumberDivision(ctx, eventID, division)
}

// ===== Judge Methods =====

func (m *Repository) CreateJudge(ctx context.Context, eventID int, name string, role models.JudgeRole, accessCode string) (int64, error) {
	if m.CreateJudgeError != nil {
		return 0, m.CreateJudgeError
	}
	return m.FullRepository.CreateJudge(ctx, eventID, name, role, accessCode)
}

func (m *Repository) ListJudges(ctx context.Context, eventID int) ([]models.Judge, error) {
	if m.ListJudgesError != nil {
		return nil, m.ListJudgesError
	}
	return m.FullRepository.ListJudges(ctx, eventID)
}

func (m *Repository) DeleteJudgeScores(ctx context.Context, judgeID int) error {
	if m.DeleteJudgeScoresError != nil {
		return m.DeleteJudgeScoresError
	}
	return m.FullRepository.DeleteJudgeScores(ctx, judgeID)
}

// ===== Score Methods =====

func (m *Repository) UpsertCriterionScore(ctx context.Context, contestantID, judgeID, criteriaID, segmentID int, value float64) error {
	if m.UpsertCriterionScoreError != nil {
		return m.UpsertCriterionScoreError
	}
	return m.FullRepository.UpsertCriterionScore(ctx, contestantID, judgeID, criteriaID, segmentID, value)
}

func (m *Repository) UpsertAnswer(ctx context.Context, contestantID int, tabulatorID *int, segmentID, questionNumber int, value float64, correct bool) error {
	if m.UpsertAnswerError != nil {
		return m.UpsertAnswerError
	}
	return m.FullRepository.UpsertAnswer(ctx, contestantID, tabulatorID, segmentID, questionNumber, value, correct)
}

func (m *Repository) ListScoresForEvent(ctx context.Context, eventID int) ([]models.Score, error) {
	if m.ListScoresForEventError != nil {
		return nil, m.ListScoresForEventError
	}
	return m.FullRepository.ListScoresForEvent(ctx, eventID)
}

func (m *Repository) ListScoresForSegment(ctx context.Context, segmentID int) ([]models.Score, error) {
	if m.ListScoresForSegmentError != nil {
		return nil, m.ListScoresForSegmentError
	}
	return m.FullRepository.ListScoresForSegment(ctx, segmentID)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}
