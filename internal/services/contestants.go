package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
)

// ContestantService handles contestant registration and tabulator assignment
type ContestantService struct {
	log  logger.Logger
	repo repository.FullRepository
}

// NewContestantService creates a new ContestantService
func NewContestantService(log logger.Logger, repo repository.FullRepository) *ContestantService {
	return &ContestantService{log: log, repo: repo}
}

// Contestant represents a contestant for create/update operations.
// CandidateNumber 0 means "next free number in the division".
type Contestant struct {
	EventID         int
	CandidateNumber int
	Name            string
	Division        string
}

// ListContestants returns the event's contestants by division and number
func (s *ContestantService) ListContestants(ctx context.Context, eventID int) ([]models.Contestant, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, storeErr(err, "event")
	}
	list, err := s.repo.ListContestants(ctx, eventID)
	return list, storeErr(err, "contestants")
}

// GetContestant returns a contestant
func (s *ContestantService) GetContestant(ctx context.Context, id int) (*models.Contestant, error) {
	c, err := s.repo.GetContestant(ctx, id)
	return c, storeErr(err, "contestant")
}

// CreateContestant registers a contestant. Candidate numbers are unique per division.
func (s *ContestantService) CreateContestant(ctx context.Context, in Contestant) (*models.Contestant, error) {
	if _, err := editableEvent(ctx, s.repo, in.EventID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.Validation("contestant name is required")
	}
	division := strings.TrimSpace(in.Division)

	number := in.CandidateNumber
	if number < 0 {
		return nil, errors.Validation("candidate number cannot be negative")
	}
	if number == 0 {
		next, err := s.nextNumber(ctx, in.EventID, division)
		if err != nil {
			return nil, err
		}
		number = next
	} else if err := s.checkNumber(ctx, in.EventID, division, number, 0); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateContestant(ctx, models.Contestant{
		EventID:         in.EventID,
		CandidateNumber: number,
		Name:            name,
		Division:        division,
		Status:          models.ContestantActive,
	})
	if err != nil {
		return nil, storeErr(err, "contestant")
	}
	s.log.Info("Contestant created", "event_id", in.EventID, "contestant_id", id, "division", division, "number", number)
	return s.GetContestant(ctx, int(id))
}

// UpdateContestant changes name, division or number. A contestant moved to
// another division without a number gets the next free one there, and the old
// division is renumbered to close the gap.
func (s *ContestantService) UpdateContestant(ctx context.Context, id int, in Contestant) (*models.Contestant, error) {
	c, err := s.GetContestant(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := editableEvent(ctx, s.repo, c.EventID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.Validation("contestant name is required")
	}
	division := strings.TrimSpace(in.Division)
	oldDivision := c.Division
	moved := division != oldDivision
	number := in.CandidateNumber
	switch {
	case number > 0:
	case moved:
		if number, err = s.nextNumber(ctx, c.EventID, division); err != nil {
			return nil, err
		}
	default:
		number = c.CandidateNumber
	}
	if err := s.checkNumber(ctx, c.EventID, division, number, id); err != nil {
		return nil, err
	}

	c.Name = name
	c.Division = division
	c.CandidateNumber = number
	err = s.repo.InTx(ctx, func(tx repository.FullRepository) error {
		if err := tx.UpdateContestant(ctx, *c); err != nil {
			return err
		}
		if moved {
			return tx.RenumberDivision(ctx, c.EventID, oldDivision)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "contestant")
	}
	if moved {
		s.log.Info("Contestant moved", "event_id", c.EventID, "contestant_id", id, "from", oldDivision, "to", division)
	}
	return c, nil
}

// DeleteContestant removes a contestant and closes the numbering gap in their division
func (s *ContestantService) DeleteContestant(ctx context.Context, id int) error {
	c, err := s.GetContestant(ctx, id)
	if err != nil {
		return err
	}
	if _, err := editableEvent(ctx, s.repo, c.EventID); err != nil {
		return err
	}
	err = s.repo.InTx(ctx, func(tx repository.FullRepository) error {
		if err := tx.DeleteContestant(ctx, id); err != nil {
			return err
		}
		return tx.RenumberDivision(ctx, c.EventID, c.Division)
	})
	if err != nil {
		return storeErr(err, "contestant")
	}
	s.log.Info("Contestant deleted", "event_id", c.EventID, "contestant_id", id, "division", c.Division)
	return nil
}

// AssignTabulator gives a quiz contestant an exclusive tabulator. nil clears the assignment.
func (s *ContestantService) AssignTabulator(ctx context.Context, contestantID int, tabulatorID *int) error {
	c, err := s.GetContestant(ctx, contestantID)
	if err != nil {
		return err
	}
	if tabulatorID != nil {
		tab, err := s.repo.GetJudge(ctx, *tabulatorID)
		if err != nil {
			return storeErr(err, "tabulator")
		}
		if tab.EventID != c.EventID || tab.Role != models.RoleTabulator {
			return errors.Validation("judge is not a tabulator of this event")
		}
		owner, assigned, err := s.repo.FindContestantByTabulator(ctx, *tabulatorID)
		if err != nil {
			return storeErr(err, "tabulator")
		}
		if assigned && owner != contestantID {
			return ErrTabulatorAssigned
		}
	}
	if err := s.repo.AssignTabulator(ctx, contestantID, tabulatorID); err != nil {
		return storeErr(err, "contestant")
	}
	s.log.Info("Tabulator assigned", "contestant_id", contestantID, "tabulator_id", tabulatorID)
	return nil
}

func (s *ContestantService) checkNumber(ctx context.Context, eventID int, division string, number, excludeID int) error {
	taken, err := s.repo.CandidateNumberTaken(ctx, eventID, division, number, excludeID)
	if err != nil {
		return storeErr(err, "contestant")
	}
	if taken {
		return errors.Validationf("candidate number %d already exists in division %q", number, division)
	}
	return nil
}

func (s *ContestantService) nextNumber(ctx context.Context, eventID int, division string) (int, error) {
	list, err := s.repo.ListContestants(ctx, eventID)
	if err != nil {
		return 0, storeErr(err, "contestants")
	}
	next := 1
	for _, c := range list {
		if c.Division == division && c.CandidateNumber >= next {
			next = c.CandidateNumber + 1
		}
	}
	return next, nil
}
