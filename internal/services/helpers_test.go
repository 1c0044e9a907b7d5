package services_test

import (
	"context"
	"testing"

	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
	"github.com/abrezinsky/tabulator/internal/services"
	"github.com/abrezinsky/tabulator/internal/testutil"
)

func intPtr(v int) *int { return &v }

// newRoundFixture returns a quiz event with two ordered main rounds
func newRoundFixture(t *testing.T, limit int) (repo *repository.Repository, eventID, round1, round2 int) {
	t.Helper()
	repo = testutil.NewTestRepository(t)
	eventID = testutil.SeedEvent(t, repo, models.EventQuizBee)
	round1 = testutil.SeedSegment(t, repo, models.Segment{
		EventID: eventID, Name: "Easy", OrderIndex: 1, Kind: models.RoundNormal, QualifierLimit: limit, TotalQuestions: 5,
	})
	round2 = testutil.SeedSegment(t, repo, models.Segment{
		EventID: eventID, Name: "Average", OrderIndex: 2, Kind: models.RoundNormal, TotalQuestions: 5,
	})
	return repo, eventID, round1, round2
}

func newRoundService(repo repository.FullRepository) *services.RoundService {
	return services.NewRoundService(logger.New(), repo, nil)
}

func mustSegment(t *testing.T, repo repository.FullRepository, id int) *models.Segment {
	t.Helper()
	seg, err := repo.GetSegment(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSegment(%d) failed: %v", id, err)
	}
	return seg
}

func mustActivate(t *testing.T, svc *services.RoundService, eventID, segmentID int) {
	t.Helper()
	if err := svc.ActivateSegment(context.Background(), eventID, &segmentID); err != nil {
		t.Fatalf("ActivateSegment(%d) failed: %v", segmentID, err)
	}
}

func mustEvaluate(t *testing.T, svc *services.RoundService, eventID int) *services.EvaluationReport {
	t.Helper()
	report, err := svc.EvaluateAndAdvance(context.Background(), eventID)
	if err != nil {
		t.Fatalf("EvaluateAndAdvance failed: %v", err)
	}
	return report
}

func activeSegmentID(t *testing.T, repo repository.FullRepository, eventID int) *int {
	t.Helper()
	ev, err := repo.GetEvent(context.Background(), eventID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	return ev.ActiveSegmentID
}

func sameIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int]int, len(a))
	for _, id := range a {
		set[id]++
	}
	for _, id := range b {
		if set[id] == 0 {
			return false
		}
		set[id]--
	}
	return true
}

func statusOf(t *testing.T, repo repository.FullRepository, id int) models.ContestantStatus {
	t.Helper()
	c, err := repo.GetContestant(context.Background(), id)
	if err != nil {
		t.Fatalf("GetContestant(%d) failed: %v", id, err)
	}
	return c.Status
}
