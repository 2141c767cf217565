package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/backend/internal/model"
)

// StaffRepository handles staff account data access.
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository creates a new StaffRepository.
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// GetByEmail retrieves a staff member by login email.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	st := &model.Staff{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at
		 FROM staff
		 WHERE email = $1`, email,
	).Scan(&st.ID, &st.Name, &st.Email, &st.PasswordHash, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetByID retrieves a staff member by id.
func (r *StaffRepository) GetByID(ctx context.Context, id int) (*model.Staff, error) {
	st := &model.Staff{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at
		 FROM staff
		 WHERE id = $1`, id,
	).Scan(&st.ID, &st.Name, &st.Email, &st.PasswordHash, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Create inserts a new staff account.
func (r *StaffRepository) Create(ctx context.Context, st *model.Staff) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO staff (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		st.Name, st.Email, st.PasswordHash,
	).Scan(&st.ID, &st.CreatedAt)
}
