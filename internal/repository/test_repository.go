package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/backend/internal/model"
)

// TestRepository handles test definition data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a single test definition.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, type, status, duration_minutes, max_navigations,
		        scheduled_start, scheduled_end, created_at, updated_at
		 FROM tests
		 WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Type, &t.Status, &t.DurationMinutes, &t.MaxNavigations,
		&t.ScheduledStart, &t.ScheduledEnd, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListLive retrieves all tests currently open for attempts.
func (r *TestRepository) ListLive(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, type, status, duration_minutes, max_navigations,
		        scheduled_start, scheduled_end, created_at, updated_at
		 FROM tests
		 WHERE status = $1
		 ORDER BY scheduled_start NULLS LAST, title`, model.TestStatusLive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Type, &t.Status, &t.DurationMinutes, &t.MaxNavigations,
			&t.ScheduledStart, &t.ScheduledEnd, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// ListQuestions retrieves a test's MCQ questions with their ordered options.
func (r *TestRepository) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, prompt, kind, order_num
		 FROM questions
		 WHERE test_id = $1
		 ORDER BY order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Prompt, &q.Kind, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		opts, err := r.listOptions(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = opts
	}
	return questions, nil
}

func (r *TestRepository) listOptions(ctx context.Context, questionID uuid.UUID) ([]model.QuestionOption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, text, order_num
		 FROM question_options
		 WHERE question_id = $1
		 ORDER BY order_num`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []model.QuestionOption
	for rows.Next() {
		var o model.QuestionOption
		if err := rows.Scan(&o.ID, &o.Text, &o.OrderNum); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// ListProblems retrieves a test's coding problems in order.
func (r *TestRepository) ListProblems(ctx context.Context, testID uuid.UUID) ([]model.Problem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, title, description, order_num
		 FROM problems
		 WHERE test_id = $1
		 ORDER BY order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.TestID, &p.Title, &p.Description, &p.OrderNum); err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}
