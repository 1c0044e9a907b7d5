package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
)

// JudgeService manages judges, tabulators and their scoring links
type JudgeService struct {
	log      logger.Logger
	repo     repository.FullRepository
	settings SettingsServicer
	newSeed  func() string // for testing: defaults to a random UUID
}

// NewJudgeService creates a new JudgeService
func NewJudgeService(log logger.Logger, repo repository.FullRepository, settings SettingsServicer) *JudgeService {
	return &JudgeService{
		log:      log,
		repo:     repo,
		settings: settings,
		newSeed:  uuid.NewString,
	}
}

// SetSeedSource overrides the access-code seed generator (for testing)
func (s *JudgeService) SetSeedSource(fn func() string) {
	s.newSeed = fn
}

// GenerateReadableCode creates a short, readable code from input data
// Uses only clear characters (no O/0/I/1/L) - format: XX-YYY
func GenerateReadableCode(seed string) string {
	const chars = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	hash := sha256.Sum256([]byte(seed))
	num := binary.BigEndian.Uint64(hash[:8])

	code := make([]byte, 5)
	for i := 0; i < 5; i++ {
		code[i] = chars[num%uint64(len(chars))]
		num /= uint64(len(chars))
	}

	return fmt.Sprintf("%s-%s", string(code[:2]), string(code[2:]))
}

// CreateJudge registers a judge or tabulator with a fresh access code
func (s *JudgeService) CreateJudge(ctx context.Context, eventID int, name string, role models.JudgeRole) (*models.Judge, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, storeErr(err, "event")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("judge name is required")
	}
	if role == "" {
		role = models.RoleJudge
	}
	if role != models.RoleJudge && role != models.RoleTabulator {
		return nil, errors.Validationf("unknown judge role %q", role)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateJudge(ctx, eventID, name, role, code)
	if err != nil {
		return nil, storeErr(err, "judge")
	}
	s.log.Info("Judge created", "event_id", eventID, "judge_id", id, "role", role)
	return &models.Judge{ID: int(id), EventID: eventID, Name: name, Role: role, AccessCode: code}, nil
}

// uniqueCode draws readable codes until one is unused
func (s *JudgeService) uniqueCode(ctx context.Context) (string, error) {
	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		code := GenerateReadableCode(s.newSeed())
		_, err := s.repo.GetJudgeByAccessCode(ctx, code)
		if err == repository.ErrNotFound {
			return code, nil
		}
		if err != nil {
			return "", storeErr(err, "judge")
		}
		s.log.Debug("Generated code already exists, retrying", "code", code, "attempt", i+1)
	}
	return "", errors.Internalf("failed to generate unique code after %d attempts", maxRetries)
}

// ListJudges returns the event's judges and tabulators
func (s *JudgeService) ListJudges(ctx context.Context, eventID int) ([]models.Judge, error) {
	judges, err := s.repo.ListJudges(ctx, eventID)
	return judges, storeErr(err, "judges")
}

// GetJudge returns a judge
func (s *JudgeService) GetJudge(ctx context.Context, id int) (*models.Judge, error) {
	j, err := s.repo.GetJudge(ctx, id)
	return j, storeErr(err, "judge")
}

// GetJudgeByAccessCode resolves a scanned scoring link
func (s *JudgeService) GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error) {
	j, err := s.repo.GetJudgeByAccessCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	return j, storeErr(err, "judge")
}

// DeleteJudge removes a judge together with the criterion scores they gave, so
// averaged totals and the per-judge matrix stay in agreement. Locked events
// refuse it.
func (s *JudgeService) DeleteJudge(ctx context.Context, id int) error {
	j, err := s.GetJudge(ctx, id)
	if err != nil {
		return err
	}
	if _, err := editableEvent(ctx, s.repo, j.EventID); err != nil {
		return err
	}
	err = s.repo.InTx(ctx, func(tx repository.FullRepository) error {
		if err := tx.DeleteJudgeScores(ctx, id); err != nil {
			return err
		}
		return tx.DeleteJudge(ctx, id)
	})
	if err != nil {
		return storeErr(err, "judge")
	}
	s.log.Info("Judge deleted", "event_id", j.EventID, "judge_id", id)
	return nil
}

// ScoringURL returns the link a judge opens to score
func (s *JudgeService) ScoringURL(ctx context.Context, judgeID int) (string, error) {
	j, err := s.GetJudge(ctx, judgeID)
	if err != nil {
		return "", err
	}
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return "", err
	}
	if baseURL == "" {
		return "", errors.Validation("base_url not configured")
	}
	return fmt.Sprintf("%s/score/%s", strings.TrimSuffix(baseURL, "/"), j.AccessCode), nil
}

// GenerateQRImage renders a judge's scoring link as a PNG QR code
func (s *JudgeService) GenerateQRImage(ctx context.Context, judgeID int) ([]byte, error) {
	url, err := s.ScoringURL(ctx, judgeID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}
