package services

import (
	"context"

	"github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/metrics"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
)

// ScoringService accepts judge and tabulator submissions
type ScoringService struct {
	log     logger.Logger
	repo    repository.FullRepository
	metrics *metrics.Metrics
}

// NewScoringService creates a new ScoringService. m may be nil.
func NewScoringService(log logger.Logger, repo repository.FullRepository, m *metrics.Metrics) *ScoringService {
	return &ScoringService{log: log, repo: repo, metrics: m}
}

// SubmitCriterionScore stores a judge's score for one criterion. Re-submitting
// overwrites the previous value for the same (contestant, judge, criterion).
func (s *ScoringService) SubmitCriterionScore(ctx context.Context, judgeID, contestantID, criteriaID int, value float64) error {
	err := s.submitCriterionScore(ctx, judgeID, contestantID, criteriaID, value)
	s.metrics.RecordSubmission("criterion", err)
	return err
}

func (s *ScoringService) submitCriterionScore(ctx context.Context, judgeID, contestantID, criteriaID int, value float64) error {
	judge, err := s.repo.GetJudge(ctx, judgeID)
	if err != nil {
		return storeErr(err, "judge")
	}
	if judge.Role != models.RoleJudge {
		return errors.Validation("only judges can score criteria")
	}
	criteria, err := s.repo.GetCriteria(ctx, criteriaID)
	if err != nil {
		return storeErr(err, "criteria")
	}
	seg, err := s.repo.GetSegment(ctx, criteria.SegmentID)
	if err != nil {
		return storeErr(err, "segment")
	}
	contestant, err := s.repo.GetContestant(ctx, contestantID)
	if err != nil {
		return storeErr(err, "contestant")
	}
	if judge.EventID != seg.EventID || contestant.EventID != seg.EventID {
		return errors.Validation("judge, contestant and criteria belong to different events")
	}
	if _, err := editableEvent(ctx, s.repo, seg.EventID); err != nil {
		return err
	}
	if !seg.Allows(contestantID) {
		return ErrNotParticipant
	}
	if value < 0 || value > criteria.MaxScore {
		return errors.Validationf("score must be between 0 and %g", criteria.MaxScore)
	}

	if err := s.repo.UpsertCriterionScore(ctx, contestantID, judgeID, criteriaID, seg.ID, value); err != nil {
		return storeErr(err, "score")
	}
	s.log.Debug("Criterion score saved", "judge_id", judgeID, "contestant_id", contestantID, "criteria_id", criteriaID, "value", value)
	return nil
}

// SubmitAnswer records whether a contestant answered a question correctly. The
// stored value is the round's points per question when correct, 0 otherwise.
func (s *ScoringService) SubmitAnswer(ctx context.Context, tabulatorID, contestantID, roundID, questionNumber int, isCorrect bool) error {
	err := s.submitAnswer(ctx, tabulatorID, contestantID, roundID, questionNumber, isCorrect)
	s.metrics.RecordSubmission("answer", err)
	return err
}

func (s *ScoringService) submitAnswer(ctx context.Context, tabulatorID, contestantID, roundID, questionNumber int, isCorrect bool) error {
	tab, err := s.repo.GetJudge(ctx, tabulatorID)
	if err != nil {
		return storeErr(err, "tabulator")
	}
	if tab.Role != models.RoleTabulator {
		return errors.Validation("only tabulators can submit answers")
	}
	seg, err := s.repo.GetSegment(ctx, roundID)
	if err != nil {
		return storeErr(err, "round")
	}
	contestant, err := s.repo.GetContestant(ctx, contestantID)
	if err != nil {
		return storeErr(err, "contestant")
	}
	if tab.EventID != seg.EventID || contestant.EventID != seg.EventID {
		return errors.Validation("tabulator, contestant and round belong to different events")
	}
	ev, err := editableEvent(ctx, s.repo, seg.EventID)
	if err != nil {
		return err
	}
	if ev.Type != models.EventQuizBee {
		return errors.Validation("answers only apply to quiz bee events")
	}
	if !seg.IsActive {
		return ErrRoundNotActive
	}
	if questionNumber < 1 || questionNumber > seg.TotalQuestions {
		return errors.Validationf("question number must be between 1 and %d", seg.TotalQuestions)
	}
	if !seg.Allows(contestantID) {
		return ErrNotParticipant
	}
	if contestant.AssignedTabulatorID != nil && *contestant.AssignedTabulatorID != tabulatorID {
		return ErrWrongTabulator
	}

	value := 0.0
	if isCorrect {
		value = float64(seg.PointsPerQuestion)
	}
	if err := s.repo.UpsertAnswer(ctx, contestantID, &tabulatorID, roundID, questionNumber, value, isCorrect); err != nil {
		return storeErr(err, "score")
	}
	s.log.Debug("Answer saved", "tabulator_id", tabulatorID, "contestant_id", contestantID,
		"segment_id", roundID, "question", questionNumber, "correct", isCorrect)
	return nil
}

// MarkJudgeFinished records a judge's advisory finished flag for a round
func (s *ScoringService) MarkJudgeFinished(ctx context.Context, judgeID, segmentID int, finished bool) error {
	judge, err := s.repo.GetJudge(ctx, judgeID)
	if err != nil {
		return storeErr(err, "judge")
	}
	seg, err := s.repo.GetSegment(ctx, segmentID)
	if err != nil {
		return storeErr(err, "segment")
	}
	if judge.EventID != seg.EventID {
		return errors.Validation("judge and segment belong to different events")
	}
	return storeErr(s.repo.SetJudgeProgress(ctx, judgeID, segmentID, finished), "progress")
}

// ListJudgeProgress returns one row per judge of the round's event; judges
// with no record are reported unfinished
func (s *ScoringService) ListJudgeProgress(ctx context.Context, segmentID int) ([]models.JudgeProgress, error) {
	seg, err := s.repo.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, storeErr(err, "segment")
	}
	judges, err := s.repo.ListJudges(ctx, seg.EventID)
	if err != nil {
		return nil, storeErr(err, "judges")
	}
	recorded, err := s.repo.ListJudgeProgress(ctx, segmentID)
	if err != nil {
		return nil, storeErr(err, "progress")
	}
	finished := make(map[int]bool, len(recorded))
	for _, p := range recorded {
		finished[p.JudgeID] = p.Finished
	}

	out := make([]models.JudgeProgress, 0, len(judges))
	for _, j := range judges {
		out = append(out, models.JudgeProgress{JudgeID: j.ID, SegmentID: segmentID, Finished: finished[j.ID]})
	}
	return out, nil
}
