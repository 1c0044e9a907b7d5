package services

import (
	stderrors "errors"

	"github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/repository"
)

// Service errors
var (
	ErrNoNextRound       = errors.Conflict("no next round defined")
	ErrFinalInProgress   = errors.Conflict("a final round is in progress; evaluate it to the end before switching rounds")
	ErrNoActiveRound     = errors.Conflict("no round is active")
	ErrRoundNotActive    = errors.Conflict("round is not active")
	ErrEventLocked       = errors.Conflict("event is locked")
	ErrEventEnded        = errors.Conflict("event has ended")
	ErrTabulatorAssigned = errors.Validation("tabulator already assigned")
	ErrWrongTabulator    = errors.Validation("contestant is assigned to another tabulator")
	ErrNotParticipant    = errors.Validation("contestant is not participating in this round")
)

// WeightEpsilon is the tolerance on the 1.0 weight budgets.
const WeightEpsilon = 0.0001

// storeErr turns a repository failure into a classified error.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFoundf("%s not found", what)
	}
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.Internal(err)
}
