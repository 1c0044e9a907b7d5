package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/tabulator/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides data access methods
type Repository struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection; it also serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db, q: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside a single transaction. Nested calls reuse the outer transaction.
func (r *Repository) InTx(ctx context.Context, fn func(tx FullRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txRepo := &Repository{db: r.db, q: tx, tx: tx}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			event_type TEXT NOT NULL CHECK (event_type IN ('pageant', 'quiz_bee')),
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended')),
			locked BOOLEAN NOT NULL DEFAULT 0,
			active_segment_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS segments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			weight REAL NOT NULL DEFAULT 0,
			kind TEXT NOT NULL DEFAULT 'normal' CHECK (kind IN ('normal', 'final', 'clincher')),
			qualifier_limit INTEGER NOT NULL DEFAULT 0,
			points_per_question INTEGER NOT NULL DEFAULT 1,
			total_questions INTEGER NOT NULL DEFAULT 0,
			participant_ids TEXT,
			related_segment_id INTEGER,
			concluded BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
			FOREIGN KEY (related_segment_id) REFERENCES segments(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS criteria (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			segment_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			weight REAL NOT NULL,
			max_score REAL NOT NULL,
			FOREIGN KEY (segment_id) REFERENCES segments(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS judges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('judge', 'tabulator')),
			access_code TEXT UNIQUE NOT NULL,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS contestants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			candidate_number INTEGER NOT NULL,
			name TEXT NOT NULL,
			division TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'eliminated')),
			assigned_tabulator_id INTEGER,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
			FOREIGN KEY (assigned_tabulator_id) REFERENCES judges(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			contestant_id INTEGER NOT NULL,
			criteria_id INTEGER,
			question_number INTEGER,
			judge_id INTEGER,
			segment_id INTEGER NOT NULL,
			score_value REAL NOT NULL DEFAULT 0,
			is_correct BOOLEAN NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (contestant_id) REFERENCES contestants(id) ON DELETE CASCADE,
			FOREIGN KEY (criteria_id) REFERENCES criteria(id) ON DELETE CASCADE,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE SET NULL,
			FOREIGN KEY (segment_id) REFERENCES segments(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS judge_progress (
			judge_id INTEGER NOT NULL,
			segment_id INTEGER NOT NULL,
			finished BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (judge_id, segment_id),
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (segment_id) REFERENCES segments(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_scores_criterion_key
			ON scores(contestant_id, judge_id, criteria_id) WHERE criteria_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_scores_question_key
			ON scores(contestant_id, segment_id, question_number) WHERE question_number IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_contestants_tabulator
			ON contestants(assigned_tabulator_id) WHERE assigned_tabulator_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_segments_event ON segments(event_id, order_index)`,
		`CREATE INDEX IF NOT EXISTS idx_criteria_segment ON criteria(segment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contestants_event ON contestants(event_id, division, candidate_number)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_segment ON scores(segment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_contestant ON scores(contestant_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Event Methods ====================

// CreateEvent creates a new active, unlocked event
func (r *Repository) CreateEvent(ctx context.Context, name string, eventType models.EventType) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO events (name, event_type, status, locked) VALUES (?, ?, 'active', 0)`,
		name, string(eventType))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetEvent returns an event by ID
func (r *Repository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	var ev models.Event
	var eventType, status string
	var active sql.NullInt64
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, event_type, status, locked, active_segment_id FROM events WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.Name, &eventType, &status, &ev.Locked, &active)
	if err != nil {
		return nil, notFoundOr(err, sql.ErrNoRows)
	}
	ev.Type = models.EventType(eventType)
	ev.Status = models.EventStatus(status)
	ev.ActiveSegmentID = intPtr(active)
	return &ev, nil
}

// ListEvents returns all events, newest first
func (r *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, event_type, status, locked, active_segment_id FROM events ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		var eventType, status string
		var active sql.NullInt64
		if err := rows.Scan(&ev.ID, &ev.Name, &eventType, &status, &ev.Locked, &active); err != nil {
			return nil, err
		}
		ev.Type = models.EventType(eventType)
		ev.Status = models.EventStatus(status)
		ev.ActiveSegmentID = intPtr(active)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SetEventLocked locks or unlocks an event
func (r *Repository) SetEventLocked(ctx context.Context, id int, locked bool) error {
	return r.execOne(ctx, `UPDATE events SET locked = ? WHERE id = ?`, locked, id)
}

// SetEventStatus updates the lifecycle status of an event
func (r *Repository) SetEventStatus(ctx context.Context, id int, status models.EventStatus) error {
	return r.execOne(ctx, `UPDATE events SET status = ? WHERE id = ?`, string(status), id)
}

// SetActiveSegment moves the event's single active-round pointer. nil clears it.
func (r *Repository) SetActiveSegment(ctx context.Context, eventID int, segmentID *int) error {
	return r.execOne(ctx, `UPDATE events SET active_segment_id = ? WHERE id = ?`, segmentID, eventID)
}

// ==================== Segment Methods ====================

const segmentColumns = `s.id, s.event_id, s.name, s.order_index, s.weight, s.kind, s.qualifier_limit,
	s.points_per_question, s.total_questions, s.participant_ids, s.related_segment_id, s.concluded,
	COALESCE(e.active_segment_id = s.id, 0)`

// CreateSegment inserts a round and returns its ID
func (r *Repository) CreateSegment(ctx context.Context, seg models.Segment) (int64, error) {
	participants, err := encodeIDs(seg.ParticipantIDs)
	if err != nil {
		return 0, err
	}
	kind := seg.Kind
	if kind == "" {
		kind = models.RoundNormal
	}
	result, err := r.q.ExecContext(ctx, `
		INSERT INTO segments (event_id, name, order_index, weight, kind, qualifier_limit,
			points_per_question, total_questions, participant_ids, related_segment_id, concluded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, seg.EventID, seg.Name, seg.OrderIndex, seg.Weight, string(kind), seg.QualifierLimit,
		seg.PointsPerQuestion, seg.TotalQuestions, participants, seg.RelatedSegmentID, seg.Concluded)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetSegment returns a segment by ID with its derived active flag
func (r *Repository) GetSegment(ctx context.Context, id int) (*models.Segment, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+segmentColumns+`
		FROM segments s JOIN events e ON e.id = s.event_id
		WHERE s.id = ?`, id)
	seg, err := scanSegment(row)
	if err != nil {
		return nil, notFoundOr(err, sql.ErrNoRows)
	}
	return seg, nil
}

// ListSegments returns the event's segments ordered by order_index
func (r *Repository) ListSegments(ctx context.Context, eventID int) ([]models.Segment, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+segmentColumns+`
		FROM segments s JOIN events e ON e.id = s.event_id
		WHERE s.event_id = ?
		ORDER BY s.order_index, s.id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *seg)
	}
	return segments, rows.Err()
}

// UpdateSegment rewrites the editable columns of a segment
func (r *Repository) UpdateSegment(ctx context.Context, seg models.Segment) error {
	participants, err := encodeIDs(seg.ParticipantIDs)
	if err != nil {
		return err
	}
	return r.execOne(ctx, `
		UPDATE segments SET name = ?, order_index = ?, weight = ?, kind = ?, qualifier_limit = ?,
			points_per_question = ?, total_questions = ?, participant_ids = ?
		WHERE id = ?
	`, seg.Name, seg.OrderIndex, seg.Weight, string(seg.Kind), seg.QualifierLimit,
		seg.PointsPerQuestion, seg.TotalQuestions, participants, seg.ID)
}

// DeleteSegment deletes a segment; criteria, scores and child clinchers cascade
func (r *Repository) DeleteSegment(ctx context.Context, id int) error {
	if _, err := r.q.ExecContext(ctx,
		`UPDATE events SET active_segment_id = NULL WHERE active_segment_id = ?`, id); err != nil {
		return err
	}
	return r.execOne(ctx, `DELETE FROM segments WHERE id = ?`, id)
}

// SetSegmentParticipants replaces the participant allow-list. nil lifts the
// restriction; an empty list admits nobody.
func (r *Repository) SetSegmentParticipants(ctx context.Context, id int, contestantIDs []int) error {
	participants, err := encodeIDs(contestantIDs)
	if err != nil {
		return err
	}
	return r.execOne(ctx, `UPDATE segments SET participant_ids = ? WHERE id = ?`, participants, id)
}

// SetSegmentConcluded marks a round as evaluated
func (r *Repository) SetSegmentConcluded(ctx context.Context, id int, concluded bool) error {
	return r.execOne(ctx, `UPDATE segments SET concluded = ? WHERE id = ?`, concluded, id)
}

// IncrementSegmentQuestions adds one question to a round
func (r *Repository) IncrementSegmentQuestions(ctx context.Context, id int) error {
	return r.execOne(ctx, `UPDATE segments SET total_questions = total_questions + 1 WHERE id = ?`, id)
}

// MaxOrderIndex returns the largest order_index in the event, or 0 when empty
func (r *Repository) MaxOrderIndex(ctx context.Context, eventID int) (int, error) {
	var maxOrder int
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index), 0) FROM segments WHERE event_id = ?`, eventID).Scan(&maxOrder)
	return maxOrder, err
}

// OrderIndexTaken reports whether another segment in the event uses orderIndex
func (r *Repository) OrderIndexTaken(ctx context.Context, eventID, orderIndex, excludeID int) (bool, error) {
	var taken bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM segments WHERE event_id = ? AND order_index = ? AND id != ?)`,
		eventID, orderIndex, excludeID).Scan(&taken)
	return taken, err
}

// ==================== Criteria Methods ====================

// CreateCriteria inserts a criterion
func (r *Repository) CreateCriteria(ctx context.Context, c models.Criteria) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO criteria (segment_id, name, weight, max_score) VALUES (?, ?, ?, ?)`,
		c.SegmentID, c.Name, c.Weight, c.MaxScore)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetCriteria returns a criterion by ID
func (r *Repository) GetCriteria(ctx context.Context, id int) (*models.Criteria, error) {
	var c models.Criteria
	err := r.q.QueryRowContext(ctx,
		`SELECT id, segment_id, name, weight, max_score FROM criteria WHERE id = ?`, id,
	).Scan(&c.ID, &c.SegmentID, &c.Name, &c.Weight, &c.MaxScore)
	if err != nil {
		return nil, notFoundOr(err, sql.ErrNoRows)
	}
	return &c, nil
}

// ListCriteria returns the criteria of one segment
func (r *Repository) ListCriteria(ctx context.Context, segmentID int) ([]models.Criteria, error) {
	return r.queryCriteria(ctx,
		`SELECT id, segment_id, name, weight, max_score FROM criteria WHERE segment_id = ? ORDER BY id`, segmentID)
}

// ListCriteriaForEvent returns the criteria of every segment in an event
func (r *Repository) ListCriteriaForEvent(ctx context.Context, eventID int) ([]models.Criteria, error) {
	return r.queryCriteria(ctx, `
		SELECT c.id, c.segment_id, c.name, c.weight, c.max_score
		FROM criteria c JOIN segments s ON s.id = c.segment_id
		WHERE s.event_id = ?
		ORDER BY c.segment_id, c.id`, eventID)
}

func (r *Repository) queryCriteria(ctx context.Context, query string, args ...any) ([]models.Criteria, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []models.Criteria
	for rows.Next() {
		var c models.Criteria
		if err := rows.Scan(&c.ID, &c.SegmentID, &c.Name, &c.Weight, &c.MaxScore); err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

// UpdateCriteria updates a criterion's name, weight and max score
func (r *Repository) UpdateCriteria(ctx context.Context, c models.Criteria) error {
	return r.execOne(ctx,
		`UPDATE criteria SET name = ?, weight = ?, max_score = ? WHERE id = ?`,
		c.Name, c.Weight, c.MaxScore, c.ID)
}

// DeleteCriteria deletes a criterion and its scores
func (r *Repository) DeleteCriteria(ctx context.Context, id int) error {
	return r.execOne(ctx, `DELETE FROM criteria WHERE id = ?`, id)
}

// ==================== Contestant Methods ====================

// CreateContestant inserts a contestant
func (r *Repository) CreateContestant(ctx context.Context, c models.Contestant) (int64, error) {
	status := c.Status
	if status == "" {
		status = models.ContestantActive
	}
	result, err := r.q.ExecContext(ctx, `
		INSERT INTO contestants (event_id, candidate_number, name, division, status, assigned_tabulator_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.EventID, c.CandidateNumber, c.Name, c.Division, string(status), c.AssignedTabulatorID)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetContestant returns a contestant by ID
func (r *Repository) GetContestant(ctx context.Context, id int) (*models.Contestant, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, event_id, candidate_number, name, division, status, assigned_tabulator_id
		FROM contestants WHERE id = ?`, id)
	c, err := scanContestant(row)
	if err != nil {
		return nil, notFoundOr(err, sql.ErrNoRows)
	}
	return c, nil
}

// ListContestants returns the event's contestants by division, then candidate number.
// This is the processing order the ranking engine keeps for equal totals.
func (r *Repository) ListContestants(ctx context.Context, eventID int) ([]models.Contestant, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, event_id, candidate_number, name, division, status, assigned_tabulator_id
		FROM contestants WHERE event_id = ?
		ORDER BY division, candidate_number, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contestants []models.Contestant
	for rows.Next() {
		c, err := scanContestant(rows)
		if err != nil {
			return nil, err
		}
		contestants = append(contestants, *c)
	}
	return contestants, rows.Err()
}

// UpdateContestant updates name, division and candidate number
func (r *Repository) UpdateContestant(ctx context.Context, c models.Contestant) error {
	return r.execOne(ctx,
		`UPDATE contestants SET candidate_number = ?, name = ?, division = ? WHERE id = ?`,
		c.CandidateNumber, c.Name, c.Division, c.ID)
}

// DeleteContestant deletes a contestant and their scores
func (r *Repository) DeleteContestant(ctx context.Context, id int) error {
	return r.execOne(ctx, `DELETE FROM contestants WHERE id = ?`, id)
}

// CandidateNumberTaken reports whether number is used by another contestant in the division
func (r *Repository) CandidateNumberTaken(ctx context.Context, eventID int, division string, number, excludeID int) (bool, error) {
	var taken bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM contestants
			WHERE event_id = ? AND division = ? AND candidate_number = ? AND id != ?)`,
		eventID, division, number, excludeID).Scan(&taken)
	return taken, err
}

// RenumberDivision rewrites candidate numbers of a division to 1..n keeping their order
func (r *Repository) RenumberDivision(ctx context.Context, eventID int, division string) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id FROM contestants WHERE event_id = ? AND division = ?
		ORDER BY candidate_number, id`, eventID, division)
	if err != nil {
		return err
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, id := range ids {
		if _, err := r.q.ExecContext(ctx,
			`UPDATE contestants SET candidate_number = ? WHERE id = ?`, i+1, id); err != nil {
			return err
		}
	}
	return nil
}

// SetContestantStatus sets the status of the given contestants
func (r *Repository) SetContestantStatus(ctx context.Context, ids []int, status models.ContestantStatus) error {
	for _, id := range ids {
		if _, err := r.q.ExecContext(ctx,
			`UPDATE contestants SET status = ? WHERE id = ?`, string(status), id); err != nil {
			return err
		}
	}
	return nil
}

// ResetContestantStatuses marks every contestant of the event active
func (r *Repository) ResetContestantStatuses(ctx context.Context, eventID int) error {
	_, err := r.q.ExecContext(ctx, `UPDATE contestants SET status = 'active' WHERE event_id = ?`, eventID)
	return err
}

// AssignTabulator sets or clears (nil) the contestant's tabulator
func (r *Repository) AssignTabulator(ctx context.Context, contestantID int, tabulatorID *int) error {
	return r.execOne(ctx,
		`UPDATE contestants SET assigned_tabulator_id = ? WHERE id = ?`, tabulatorID, contestantID)
}

// FindContestantByTabulator returns the contestant a tabulator is assigned to
func (r *Repository) FindContestantByTabulator(ctx context.Context, tabulatorID int) (int, bool, error) {
	var id int
	err := r.q.QueryRowContext(ctx,
		`SELECT id FROM contestants WHERE assigned_tabulator_id = ?`, tabulatorID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ==================== Judge Methods ====================

// CreateJudge inserts a judge or tabulator
func (r *Repository) CreateJudge(ctx context.Context, eventID int, name string, role models.JudgeRole, accessCode string) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO judges (event_id, name, role, access_code) VALUES (?, ?, ?, ?)`,
		eventID, name, string(role), accessCode)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetJudge returns a judge by ID
func (r *Repository) GetJudge(ctx context.Context, id int) (*models.Judge, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, event_id, name, role, access_code FROM judges WHERE id = ?`, id)
	j, err := scanJudge(row)
	if err != nil {
		return nil, notFoundOr(err, sql.ErrNoRows)
	}
	return j, nil
}

// GetJudgeByAccessCode returns the judge holding an access code
func (r *Repository) GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, event_id, name, role, access_code FROM judges WHERE access_code = ?`, code)
	j, err := scanJudge(row)
	if err != nil {
		return nil, notFoundOr(err, sql.ErrNoRows)
	}
	return j, nil
}

// ListJudges returns all judges and tabulators of an event
func (r *Repository) ListJudges(ctx context.Context, eventID int) ([]models.Judge, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, event_id, name, role, access_code FROM judges WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var judges []models.Judge
	for rows.Next() {
		j, err := scanJudge(rows)
		if err != nil {
			return nil, err
		}
		judges = append(judges, *j)
	}
	return judges, rows.Err()
}

// DeleteJudge deletes a judge. Criterion scores still attached keep a NULL
// judge, so callers remove them first with DeleteJudgeScores.
func (r *Repository) DeleteJudge(ctx context.Context, id int) error {
	return r.execOne(ctx, `DELETE FROM judges WHERE id = ?`, id)
}

// ==================== Score Methods ====================

// DeleteJudgeScores removes a judge's criterion scores. Quiz answers are keyed
// by question, not by tabulator, and are kept.
func (r *Repository) DeleteJudgeScores(ctx context.Context, judgeID int) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM scores WHERE judge_id = ? AND criteria_id IS NOT NULL`, judgeID)
	return err
}

// UpsertCriterionScore stores a judge's score for a criterion, keyed by
// (contestant, judge, criteria). Re-submission overwrites in place.
func (r *Repository) UpsertCriterionScore(ctx context.Context, contestantID, judgeID, criteriaID, segmentID int, value float64) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO scores (contestant_id, criteria_id, judge_id, segment_id, score_value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(contestant_id, judge_id, criteria_id) WHERE criteria_id IS NOT NULL DO UPDATE SET
			score_value = excluded.score_value,
			segment_id = excluded.segment_id,
			updated_at = excluded.updated_at
	`, contestantID, criteriaID, judgeID, segmentID, value, time.Now())
	return err
}

// UpsertAnswer stores a quiz answer keyed by (contestant, segment, question_number)
func (r *Repository) UpsertAnswer(ctx context.Context, contestantID int, tabulatorID *int, segmentID, questionNumber int, value float64, correct bool) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO scores (contestant_id, question_number, judge_id, segment_id, score_value, is_correct, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contestant_id, segment_id, question_number) WHERE question_number IS NOT NULL DO UPDATE SET
			score_value = excluded.score_value,
			is_correct = excluded.is_correct,
			judge_id = COALESCE(excluded.judge_id, scores.judge_id),
			updated_at = excluded.updated_at
	`, contestantID, questionNumber, tabulatorID, segmentID, value, correct, time.Now())
	return err
}

// ListScoresForEvent returns every score row of the event
func (r *Repository) ListScoresForEvent(ctx context.Context, eventID int) ([]models.Score, error) {
	return r.queryScores(ctx, `
		SELECT sc.id, sc.contestant_id, sc.criteria_id, sc.question_number, sc.judge_id,
		       sc.segment_id, sc.score_value, sc.is_correct
		FROM scores sc JOIN segments s ON s.id = sc.segment_id
		WHERE s.event_id = ?
		ORDER BY sc.id`, eventID)
}

// ListScoresForSegment returns every score row of one segment
func (r *Repository) ListScoresForSegment(ctx context.Context, segmentID int) ([]models.Score, error) {
	return r.queryScores(ctx, `
		SELECT id, contestant_id, criteria_id, question_number, judge_id, segment_id, score_value, is_correct
		FROM scores WHERE segment_id = ?
		ORDER BY id`, segmentID)
}

func (r *Repository) queryScores(ctx context.Context, query string, args ...any) ([]models.Score, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.Score
	for rows.Next() {
		var s models.Score
		var criteriaID, question, judgeID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.ContestantID, &criteriaID, &question, &judgeID,
			&s.SegmentID, &s.Value, &s.IsCorrect); err != nil {
			return nil, err
		}
		s.CriteriaID = intPtr(criteriaID)
		s.QuestionNumber = intPtr(question)
		s.JudgeID = intPtr(judgeID)
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// SetJudgeProgress records a judge's finished flag for a segment
func (r *Repository) SetJudgeProgress(ctx context.Context, judgeID, segmentID int, finished bool) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO judge_progress (judge_id, segment_id, finished) VALUES (?, ?, ?)
		ON CONFLICT(judge_id, segment_id) DO UPDATE SET finished = excluded.finished
	`, judgeID, segmentID, finished)
	return err
}

// ListJudgeProgress returns the progress rows of a segment
func (r *Repository) ListJudgeProgress(ctx context.Context, segmentID int) ([]models.JudgeProgress, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT judge_id, segment_id, finished FROM judge_progress WHERE segment_id = ? ORDER BY judge_id`, segmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var progress []models.JudgeProgress
	for rows.Next() {
		var p models.JudgeProgress
		if err := rows.Scan(&p.JudgeID, &p.SegmentID, &p.Finished); err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.q.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ==================== Helpers ====================

// execOne runs an UPDATE/DELETE that must touch exactly one row
func (r *Repository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (*models.Segment, error) {
	var seg models.Segment
	var kind string
	var participants sql.NullString
	var related sql.NullInt64
	if err := row.Scan(&seg.ID, &seg.EventID, &seg.Name, &seg.OrderIndex, &seg.Weight, &kind,
		&seg.QualifierLimit, &seg.PointsPerQuestion, &seg.TotalQuestions, &participants, &related,
		&seg.Concluded, &seg.IsActive); err != nil {
		return nil, err
	}
	seg.Kind = models.RoundKind(kind)
	seg.RelatedSegmentID = intPtr(related)
	if participants.Valid && participants.String != "" {
		ids := []int{}
		if err := json.Unmarshal([]byte(participants.String), &ids); err != nil {
			return nil, err
		}
		seg.ParticipantIDs = ids
	}
	return &seg, nil
}

func scanContestant(row rowScanner) (*models.Contestant, error) {
	var c models.Contestant
	var status string
	var tabulator sql.NullInt64
	if err := row.Scan(&c.ID, &c.EventID, &c.CandidateNumber, &c.Name, &c.Division, &status, &tabulator); err != nil {
		return nil, err
	}
	c.Status = models.ContestantStatus(status)
	c.AssignedTabulatorID = intPtr(tabulator)
	return &c, nil
}

func scanJudge(row rowScanner) (*models.Judge, error) {
	var j models.Judge
	var role string
	if err := row.Scan(&j.ID, &j.EventID, &j.Name, &role, &j.AccessCode); err != nil {
		return nil, err
	}
	j.Role = models.JudgeRole(role)
	return &j, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// encodeIDs stores participant allow-lists as a JSON array, NULL when empty
func encodeIDs(ids []int) (sql.NullString, error) {
	if ids == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
