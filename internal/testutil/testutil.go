package testutil

import (
	"context"
	"testing"

	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedEvent creates an event and returns its id
func SeedEvent(t *testing.T, repo repository.FullRepository, eventType models.EventType) int {
	t.Helper()
	id, err := repo.CreateEvent(context.Background(), "Test Event", eventType)
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return int(id)
}

// SeedSegment inserts a segment as given and returns its id
func SeedSegment(t *testing.T, repo repository.FullRepository, seg models.Segment) int {
	t.Helper()
	if seg.PointsPerQuestion == 0 {
		seg.PointsPerQuestion = 1
	}
	id, err := repo.CreateSegment(context.Background(), seg)
	if err != nil {
		t.Fatalf("failed to seed segment %q: %v", seg.Name, err)
	}
	return int(id)
}

// SeedContestants creates n contestants numbered 1..n in a division and returns their ids in order
func SeedContestants(t *testing.T, repo repository.FullRepository, eventID int, division string, n int) []int {
	t.Helper()
	ids := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		id, err := repo.CreateContestant(context.Background(), models.Contestant{
			EventID:         eventID,
			CandidateNumber: i,
			Name:            division + " contestant",
			Division:        division,
		})
		if err != nil {
			t.Fatalf("failed to seed contestant: %v", err)
		}
		ids = append(ids, int(id))
	}
	return ids
}

// SeedJudge creates a judge or tabulator with a unique access code
func SeedJudge(t *testing.T, repo repository.FullRepository, eventID int, name string, role models.JudgeRole) int {
	t.Helper()
	id, err := repo.CreateJudge(context.Background(), eventID, name, role, name+"-code")
	if err != nil {
		t.Fatalf("failed to seed judge: %v", err)
	}
	return int(id)
}

// SeedPoints stores one answer row per contestant for question 1 of a round with the given value
func SeedPoints(t *testing.T, repo repository.FullRepository, segmentID int, points map[int]float64) {
	t.Helper()
	for contestantID, value := range points {
		if err := repo.UpsertAnswer(context.Background(), contestantID, nil, segmentID, 1, value, value > 0); err != nil {
			t.Fatalf("failed to seed points: %v", err)
		}
	}
}
