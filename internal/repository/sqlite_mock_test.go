package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/abrezinsky/tabulator/internal/models"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Repository{db: db, q: db}, mock
}

// TestListEvents_ScanError tests row scanning error
func TestListEvents_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name", "event_type", "status", "locked", "active_segment_id"}).
		AddRow("not-a-number", "Gala", "pageant", "active", false, nil)
	mock.ExpectQuery("SELECT (.+) FROM events").WillReturnRows(rows)

	if _, err := repo.ListEvents(context.Background()); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestListSegments_BadParticipantJSON tests that a corrupt allow-list surfaces as an error
func TestListSegments_BadParticipantJSON(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "event_id", "name", "order_index", "weight", "kind", "qualifier_limit",
		"points_per_question", "total_questions", "participant_ids", "related_segment_id", "concluded", "is_active"}).
		AddRow(1, 1, "Easy", 1, 0, "normal", 0, 1, 10, "{not json", nil, false, false)
	mock.ExpectQuery("SELECT (.+) FROM segments").WillReturnRows(rows)

	if _, err := repo.ListSegments(context.Background(), 1); err == nil {
		t.Error("expected error from participant decoding, got nil")
	}
}

// TestListSegments_QueryError tests query failure
func TestListSegments_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM segments").WillReturnError(errors.New("disk I/O error"))

	if _, err := repo.ListSegments(context.Background(), 1); err == nil {
		t.Error("expected query error, got nil")
	}
}

// TestListCriteria_ScanError tests row scanning error
func TestListCriteria_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "segment_id", "name", "weight", "max_score"}).
		AddRow("bad-id", 1, "Poise", 50, 10)
	mock.ExpectQuery("SELECT (.+) FROM criteria").WillReturnRows(rows)

	if _, err := repo.ListCriteria(context.Background(), 1); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestListContestants_ScanError tests row scanning error
func TestListContestants_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "event_id", "candidate_number", "name", "division", "status", "assigned_tabulator_id"}).
		AddRow(1, 1, "seven", "Ana", "", "active", nil)
	mock.ExpectQuery("SELECT (.+) FROM contestants").WillReturnRows(rows)

	if _, err := repo.ListContestants(context.Background(), 1); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestListScoresForEvent_ScanError tests row scanning error
func TestListScoresForEvent_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "contestant_id", "criteria_id", "question_number", "judge_id",
		"segment_id", "score_value", "is_correct"}).
		AddRow(1, 1, nil, 1, nil, 1, "lots", true)
	mock.ExpectQuery("SELECT (.+) FROM scores").WillReturnRows(rows)

	if _, err := repo.ListScoresForEvent(context.Background(), 1); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestListScoresForSegment_RowsError tests an error surfaced after iteration
func TestListScoresForSegment_RowsError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "contestant_id", "criteria_id", "question_number", "judge_id",
		"segment_id", "score_value", "is_correct"}).
		AddRow(1, 1, nil, 1, nil, 1, 1.0, true).
		RowError(0, errors.New("row broke"))
	mock.ExpectQuery("SELECT (.+) FROM scores").WillReturnRows(rows)

	if _, err := repo.ListScoresForSegment(context.Background(), 1); err == nil {
		t.Error("expected rows error, got nil")
	}
}

// TestListJudges_ScanError tests row scanning error
func TestListJudges_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "event_id", "name", "role", "access_code"}).
		AddRow("x", 1, "Judge A", "judge", "AB-123")
	mock.ExpectQuery("SELECT (.+) FROM judges").WillReturnRows(rows)

	if _, err := repo.ListJudges(context.Background(), 1); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestListJudgeProgress_ScanError tests row scanning error
func TestListJudgeProgress_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"judge_id", "segment_id", "finished"}).
		AddRow("x", 1, true)
	mock.ExpectQuery("SELECT (.+) FROM judge_progress").WillReturnRows(rows)

	if _, err := repo.ListJudgeProgress(context.Background(), 1); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestRenumberDivision_UpdateError tests failure while rewriting numbers
func TestRenumberDivision_UpdateError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id FROM contestants").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(9))
	mock.ExpectExec("UPDATE contestants SET candidate_number").
		WillReturnError(errors.New("database is locked"))

	if err := repo.RenumberDivision(context.Background(), 1, ""); err == nil {
		t.Error("expected update error, got nil")
	}
}

// TestSetContestantStatus_ExecError tests failure mid-batch
func TestSetContestantStatus_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE contestants SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE contestants SET status").WillReturnError(errors.New("constraint failed"))

	err := repo.SetContestantStatus(context.Background(), []int{1, 2}, models.ContestantEliminated)
	if err == nil {
		t.Error("expected exec error, got nil")
	}
}

// TestExecOne_RowsAffectedError tests a driver that cannot report affected rows
func TestExecOne_RowsAffectedError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE events SET locked").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("unsupported")))

	if err := repo.SetEventLocked(context.Background(), 1, true); err == nil {
		t.Error("expected rows affected error, got nil")
	}
}

// TestExecOne_NoRows tests that an update hitting nothing reports ErrNotFound
func TestExecOne_NoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE events SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetEventStatus(context.Background(), 1, models.EventEnded)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestInTx_RollsBackOnError tests that fn's error rolls the transaction back
func TestInTx_RollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE events SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.InTx(context.Background(), func(tx FullRepository) error {
		if err := tx.SetEventStatus(context.Background(), 1, models.EventEnded); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestInTx_CommitError tests a failing commit
func TestInTx_CommitError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	err := repo.InTx(context.Background(), func(tx FullRepository) error { return nil })
	if err == nil {
		t.Error("expected commit error, got nil")
	}
}

// TestInTx_BeginError tests a failing begin
func TestInTx_BeginError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("busy"))

	called := false
	err := repo.InTx(context.Background(), func(tx FullRepository) error {
		called = true
		return nil
	})
	if err == nil {
		t.Error("expected begin error, got nil")
	}
	if called {
		t.Error("fn must not run when begin fails")
	}
}

// TestGetSetting_QueryError tests non-ErrNoRows errors pass through
func TestGetSetting_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT value FROM settings").WillReturnError(errors.New("database closed"))

	_, err := repo.GetSetting(context.Background(), "base_url")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected driver error, got %v", err)
	}
}
