package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/backend/internal/model"
)

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByID retrieves a single attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, student_id, started_at, finished_at, status, nav_override
		 FROM attempts
		 WHERE id = $1`, id,
	).Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.NavOverride)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByTestAndStudent retrieves an attempt for a specific test-student pair.
func (r *AttemptRepository) GetByTestAndStudent(ctx context.Context, testID uuid.UUID, studentID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, student_id, started_at, finished_at, status, nav_override
		 FROM attempts
		 WHERE test_id = $1 AND student_id = $2`, testID, studentID,
	).Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.NavOverride)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByStudent retrieves all attempts for a given student.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, student_id, started_at, finished_at, status, nav_override
		 FROM attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.NavOverride); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Create inserts a new attempt. The unique (test_id, student_id) constraint
// makes concurrent starts collapse; the loser scans no row and must
// re-fetch the winner's attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (test_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (test_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		a.TestID, a.StudentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// MarkSubmitted concludes an attempt via final submission. The conditional
// update makes a duplicate submission a no-op at the storage layer.
func (r *AttemptRepository) MarkSubmitted(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, finished_at = $2
		 WHERE id = $3 AND status = $4`,
		model.AttemptStatusSubmitted, time.Now(), id, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkTerminated concludes an attempt via budget exhaustion.
func (r *AttemptRepository) MarkTerminated(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, finished_at = $2
		 WHERE id = $3 AND status = $4`,
		model.AttemptStatusTerminated, time.Now(), id, model.AttemptStatusInProgress)
	return err
}

// ExpireOverdue marks all in-progress attempts whose hard deadline (plus
// grace) has passed as EXPIRED. Returns the ids that were expired.
func (r *AttemptRepository) ExpireOverdue(ctx context.Context, grace time.Duration) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE attempts a
		 SET status = $1, finished_at = NOW()
		 FROM tests t
		 WHERE a.test_id = t.id
		   AND a.status = $2
		   AND a.started_at + make_interval(mins => t.duration_minutes) + $3::interval < NOW()
		 RETURNING a.id`,
		model.AttemptStatusExpired, model.AttemptStatusInProgress, grace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IncrementNavOverride raises the attempt's violation budget. The raise
// reaches the student only on their next content load.
func (r *AttemptRepository) IncrementNavOverride(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET nav_override = nav_override + $1 WHERE id = $2`,
		delta, id)
	return err
}

// SaveAnswers stores the final MCQ answer mapping, replacing any prior rows
// for the attempt.
func (r *AttemptRepository) SaveAnswers(ctx context.Context, attemptID uuid.UUID, answers map[string][]string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM attempt_answers WHERE attempt_id = $1`, attemptID); err != nil {
		return err
	}
	for questionID, optionIDs := range answers {
		for _, optionID := range optionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO attempt_answers (attempt_id, question_id, option_id)
				 VALUES ($1, $2, $3)`,
				attemptID, questionID, optionID); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// UpsertSolution stores one problem's code, overwriting any earlier run.
func (r *AttemptRepository) UpsertSolution(ctx context.Context, attemptID uuid.UUID, sol model.SolutionSubmission, passed bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_solutions (attempt_id, problem_id, language_id, code, passed, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (attempt_id, problem_id)
		 DO UPDATE SET language_id = $3, code = $4, passed = $5, submitted_at = NOW()`,
		attemptID, sol.ProblemID, sol.LanguageID, sol.Code, passed)
	return err
}
