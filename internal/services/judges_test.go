package services_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"

	apperrors "github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
	"github.com/abrezinsky/tabulator/internal/repository/mock"
	"github.com/abrezinsky/tabulator/internal/services"
	"github.com/abrezinsky/tabulator/internal/testutil"
)

var codePattern = regexp.MustCompile(`^[2-9A-HJKMNP-Z]{2}-[2-9A-HJKMNP-Z]{3}$`)

func newJudgeService(repo repository.FullRepository) (*services.JudgeService, *services.SettingsService) {
	log := logger.New()
	settings := services.NewSettingsService(log, repo)
	return services.NewJudgeService(log, repo, settings), settings
}

func TestGenerateReadableCode(t *testing.T) {
	code := services.GenerateReadableCode("seed")
	if !codePattern.MatchString(code) {
		t.Errorf("code %q does not match the readable format", code)
	}
	if services.GenerateReadableCode("seed") != code {
		t.Error("expected the same seed to give the same code")
	}
	if services.GenerateReadableCode("other") == code {
		t.Error("expected different seeds to give different codes")
	}
}

func TestJudgeService_CreateJudge(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc, _ := newJudgeService(repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)

	j, err := svc.CreateJudge(ctx, eventID, "Judge Reyes", "")
	if err != nil {
		t.Fatalf("CreateJudge failed: %v", err)
	}
	if j.Role != models.RoleJudge {
		t.Errorf("expected default role judge, got %s", j.Role)
	}
	if !codePattern.MatchString(j.AccessCode) {
		t.Errorf("unexpected access code %q", j.AccessCode)
	}

	found, err := svc.GetJudgeByAccessCode(ctx, strings.ToLower(j.AccessCode))
	if err != nil {
		t.Fatalf("GetJudgeByAccessCode failed: %v", err)
	}
	if found.ID != j.ID {
		t.Errorf("expected judge %d, got %d", j.ID, found.ID)
	}

	if _, err := svc.CreateJudge(ctx, eventID, "", models.RoleJudge); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected empty name rejected, got %v", err)
	}
	if _, err := svc.CreateJudge(ctx, eventID, "Someone", "host"); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected unknown role rejected, got %v", err)
	}
	if _, err := svc.CreateJudge(ctx, 9999, "Someone", models.RoleJudge); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected unknown event, got %v", err)
	}
}

func TestJudgeService_CreateJudge_CodeCollisions(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc, _ := newJudgeService(repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventQuizBee)
	svc.SetSeedSource(func() string { return "fixed" })

	if _, err := svc.CreateJudge(ctx, eventID, "First", models.RoleTabulator); err != nil {
		t.Fatalf("CreateJudge failed: %v", err)
	}
	_, err := svc.CreateJudge(ctx, eventID, "Second", models.RoleTabulator)
	if !apperrors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("expected internal error after exhausting retries, got %v", err)
	}
}

func TestJudgeService_CreateJudge_StoreError(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	eventID := testutil.SeedEvent(t, realRepo, models.EventPageant)
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.CreateJudgeError = errors.New("database error")
	svc, _ := newJudgeService(mockRepo)

	if _, err := svc.CreateJudge(context.Background(), eventID, "Judge", models.RoleJudge); !apperrors.Is(err, apperrors.ErrInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestJudgeService_ScoringURLAndQR(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc, settings := newJudgeService(repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)
	j, err := svc.CreateJudge(ctx, eventID, "Judge", models.RoleJudge)
	if err != nil {
		t.Fatalf("CreateJudge failed: %v", err)
	}

	if _, err := svc.ScoringURL(ctx, j.ID); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected missing base URL rejected, got %v", err)
	}

	if err := settings.SetBaseURL(ctx, "http://10.0.0.5:8080/"); err != nil {
		t.Fatalf("SetBaseURL failed: %v", err)
	}
	url, err := svc.ScoringURL(ctx, j.ID)
	if err != nil {
		t.Fatalf("ScoringURL failed: %v", err)
	}
	if url != "http://10.0.0.5:8080/score/"+j.AccessCode {
		t.Errorf("unexpected url %q", url)
	}

	png, err := svc.GenerateQRImage(ctx, j.ID)
	if err != nil {
		t.Fatalf("GenerateQRImage failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}

	if _, err := svc.GenerateQRImage(ctx, 9999); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestJudgeService_DeleteJudge(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc, _ := newJudgeService(repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)
	id := testutil.SeedJudge(t, repo, eventID, "judge", models.RoleJudge)

	if err := svc.DeleteJudge(ctx, id); err != nil {
		t.Fatalf("DeleteJudge failed: %v", err)
	}
	judges, err := svc.ListJudges(ctx, eventID)
	if err != nil {
		t.Fatalf("ListJudges failed: %v", err)
	}
	if len(judges) != 0 {
		t.Errorf("expected no judges, got %d", len(judges))
	}
	if err := svc.DeleteJudge(ctx, id); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestJudgeService_DeleteJudge_LockedEvent(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc, _ := newJudgeService(repo)
	ctx := context.Background()
	eventID := testutil.SeedEvent(t, repo, models.EventPageant)
	id := testutil.SeedJudge(t, repo, eventID, "judge", models.RoleJudge)

	if err := repo.SetEventLocked(ctx, eventID, true); err != nil {
		t.Fatalf("SetEventLocked failed: %v", err)
	}
	if err := svc.DeleteJudge(ctx, id); !errors.Is(err, services.ErrEventLocked) {
		t.Fatalf("expected ErrEventLocked, got %v", err)
	}
	if _, err := repo.GetJudge(ctx, id); err != nil {
		t.Errorf("expected judge kept, got %v", err)
	}
}

func TestJudgeService_DeleteJudge_DropsTheirScores(t *testing.T) {
	f := newPageantFixture(t)
	log := logger.New()
	scoringSvc := services.NewScoringService(log, f.repo, nil)
	ranking := services.NewRankingService(log, f.repo)
	svc, _ := newJudgeService(f.repo)
	ctx := context.Background()
	judgeB := testutil.SeedJudge(t, f.repo, f.eventID, "judgeB", models.RoleJudge)

	for _, s := range []struct {
		judge, criteria int
		value           float64
	}{
		{f.judgeID, f.poise, 80}, {f.judgeID, f.beauty, 90},
		{judgeB, f.poise, 100}, {judgeB, f.beauty, 100},
	} {
		if err := scoringSvc.SubmitCriterionScore(ctx, s.judge, f.contestant, s.criteria, s.value); err != nil {
			t.Fatalf("SubmitCriterionScore failed: %v", err)
		}
	}

	if err := svc.DeleteJudge(ctx, judgeB); err != nil {
		t.Fatalf("DeleteJudge failed: %v", err)
	}

	scores, err := f.repo.ListScoresForSegment(ctx, f.segmentID)
	if err != nil {
		t.Fatalf("ListScoresForSegment failed: %v", err)
	}
	if len(scores) != 2 {
		t.Errorf("expected only the remaining judge's 2 scores, got %d", len(scores))
	}

	m, err := ranking.PageantMatrix(ctx, f.segmentID)
	if err != nil {
		t.Fatalf("PageantMatrix failed: %v", err)
	}
	matrixTotal := m.Divisions["Ms"][0].Total
	segRanking, err := ranking.GetRanking(ctx, f.eventID, services.RankScope{SegmentID: &f.segmentID})
	if err != nil {
		t.Fatalf("GetRanking failed: %v", err)
	}
	score := segRanking["Ms"][0].Score
	if math.Abs(score-84) > 1e-9 || math.Abs(matrixTotal-84) > 1e-9 {
		t.Errorf("expected ranking and matrix to agree on 84, got ranking %v matrix %v", score, matrixTotal)
	}
}

func TestJudgeService_DeleteJudge_RollsBackOnScoreError(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	eventID := testutil.SeedEvent(t, realRepo, models.EventPageant)
	id := testutil.SeedJudge(t, realRepo, eventID, "judge", models.RoleJudge)
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.DeleteJudgeScoresError = errors.New("database error")
	svc, _ := newJudgeService(mockRepo)

	if err := svc.DeleteJudge(context.Background(), id); !apperrors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if _, err := realRepo.GetJudge(context.Background(), id); err != nil {
		t.Errorf("expected judge kept, got %v", err)
	}
}
