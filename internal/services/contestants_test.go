package services_test

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository/mock"
	"github.com/abrezinsky/tabulator/internal/services"
	"github.com/abrezinsky/tabulator/internal/testutil"
)

func TestContestantService_CandidateNumbers(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewContestantService(logger.New(), repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)

	first, err := svc.CreateContestant(ctx, services.Contestant{EventID: eventID, Name: "Ana", Division: "Ms"})
	if err != nil {
		t.Fatalf("CreateContestant failed: %v", err)
	}
	second, err := svc.CreateContestant(ctx, services.Contestant{EventID: eventID, Name: "Bea", Division: "Ms"})
	if err != nil {
		t.Fatalf("CreateContestant failed: %v", err)
	}
	if first.CandidateNumber != 1 || second.CandidateNumber != 2 {
		t.Errorf("expected auto numbers 1 and 2, got %d and %d", first.CandidateNumber, second.CandidateNumber)
	}
	if first.Status != models.ContestantActive {
		t.Errorf("expected active status, got %s", first.Status)
	}

	_, err = svc.CreateContestant(ctx, services.Contestant{EventID: eventID, Name: "Cara", Division: "Ms", CandidateNumber: 2})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected duplicate number rejected, got %v", err)
	}
	// numbers are per division
	if _, err := svc.CreateContestant(ctx, services.Contestant{EventID: eventID, Name: "Dan", Division: "Mr", CandidateNumber: 2}); err != nil {
		t.Errorf("expected same number in another division, got %v", err)
	}

	if _, err := svc.CreateContestant(ctx, services.Contestant{EventID: eventID, Name: "  "}); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected empty name rejected, got %v", err)
	}
	if _, err := svc.CreateContestant(ctx, services.Contestant{EventID: 9999, Name: "Eve"}); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected unknown event, got %v", err)
	}
}

func TestContestantService_UpdateContestant(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewContestantService(logger.New(), repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)
	ids := testutil.SeedContestants(t, repo, eventID, "Ms", 2)

	c, err := svc.UpdateContestant(ctx, ids[0], services.Contestant{Name: "Renamed", Division: "Ms"})
	if err != nil {
		t.Fatalf("UpdateContestant failed: %v", err)
	}
	if c.Name != "Renamed" || c.CandidateNumber != 1 {
		t.Errorf("expected renamed contestant keeping number 1, got %+v", c)
	}
	if _, err := svc.UpdateContestant(ctx, ids[0], services.Contestant{Name: "Renamed", Division: "Ms", CandidateNumber: 2}); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected taken number rejected, got %v", err)
	}
}

func TestContestantService_UpdateContestant_MoveDivision(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewContestantService(logger.New(), repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)
	ms := testutil.SeedContestants(t, repo, eventID, "Ms", 3)
	mr := testutil.SeedContestants(t, repo, eventID, "Mr", 2)

	c, err := svc.UpdateContestant(ctx, ms[0], services.Contestant{Name: "Moved", Division: "Mr"})
	if err != nil {
		t.Fatalf("UpdateContestant failed: %v", err)
	}
	if c.Division != "Mr" || c.CandidateNumber != 3 {
		t.Errorf("expected next number 3 in Mr, got %s #%d", c.Division, c.CandidateNumber)
	}
	for i, id := range ms[1:] {
		got, err := repo.GetContestant(ctx, id)
		if err != nil {
			t.Fatalf("GetContestant failed: %v", err)
		}
		if got.CandidateNumber != i+1 {
			t.Errorf("contestant %d: expected Ms number %d, got %d", id, i+1, got.CandidateNumber)
		}
	}
	for i, id := range mr {
		got, _ := repo.GetContestant(ctx, id)
		if got.CandidateNumber != i+1 {
			t.Errorf("contestant %d: expected Mr number %d kept, got %d", id, i+1, got.CandidateNumber)
		}
	}
}

func TestContestantService_UpdateContestant_MoveRollsBack(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	eventID := testutil.SeedEvent(t, realRepo, models.EventPageant)
	ids := testutil.SeedContestants(t, realRepo, eventID, "Ms", 2)
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.RenumberDivisionError = errors.New("database error")
	svc := services.NewContestantService(logger.New(), mockRepo)

	_, err := svc.UpdateContestant(context.Background(), ids[0], services.Contestant{Name: "Moved", Division: "Mr"})
	if !apperrors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	c, err := realRepo.GetContestant(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetContestant failed: %v", err)
	}
	if c.Division != "Ms" || c.CandidateNumber != 1 {
		t.Errorf("expected move rolled back, got %s #%d", c.Division, c.CandidateNumber)
	}
}

func TestContestantService_DeleteRenumbers(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewContestantService(logger.New(), repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)
	ids := testutil.SeedContestants(t, repo, eventID, "Ms", 3)

	if err := svc.DeleteContestant(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteContestant failed: %v", err)
	}

	list, err := svc.ListContestants(ctx, eventID)
	if err != nil {
		t.Fatalf("ListContestants failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 contestants, got %d", len(list))
	}
	for i, c := range list {
		if c.CandidateNumber != i+1 {
			t.Errorf("expected number %d, got %d", i+1, c.CandidateNumber)
		}
		if c.ID != ids[i+1] {
			t.Errorf("expected order preserved, got id %d at %d", c.ID, i)
		}
	}
}

func TestContestantService_DeleteRollsBackOnRenumberError(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	eventID := testutil.SeedEvent(t, realRepo, models.EventPageant)
	ids := testutil.SeedContestants(t, realRepo, eventID, "Ms", 2)
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.RenumberDivisionError = errors.New("database error")
	svc := services.NewContestantService(logger.New(), mockRepo)

	if err := svc.DeleteContestant(context.Background(), ids[0]); !apperrors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if _, err := realRepo.GetContestant(context.Background(), ids[0]); err != nil {
		t.Errorf("expected contestant restored by rollback, got %v", err)
	}
}

func TestContestantService_AssignTabulator(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewContestantService(logger.New(), repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventQuizBee)
	ids := testutil.SeedContestants(t, repo, eventID, "A", 2)
	tab := testutil.SeedJudge(t, repo, eventID, "tab1", models.RoleTabulator)
	judge := testutil.SeedJudge(t, repo, eventID, "judge1", models.RoleJudge)

	if err := svc.AssignTabulator(ctx, ids[0], &tab); err != nil {
		t.Fatalf("AssignTabulator failed: %v", err)
	}
	// reassigning to the same contestant is a no-op
	if err := svc.AssignTabulator(ctx, ids[0], &tab); err != nil {
		t.Fatalf("AssignTabulator repeat failed: %v", err)
	}
	if err := svc.AssignTabulator(ctx, ids[1], &tab); !errors.Is(err, services.ErrTabulatorAssigned) {
		t.Errorf("expected ErrTabulatorAssigned, got %v", err)
	}
	if err := svc.AssignTabulator(ctx, ids[1], &judge); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected judge rejected as tabulator, got %v", err)
	}

	if err := svc.AssignTabulator(ctx, ids[0], nil); err != nil {
		t.Fatalf("clearing assignment failed: %v", err)
	}
	if err := svc.AssignTabulator(ctx, ids[1], &tab); err != nil {
		t.Errorf("expected freed tabulator assignable, got %v", err)
	}
}
