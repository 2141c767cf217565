package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/backend/internal/model"
)

// LanguageRepository reads the static programming-language catalog.
type LanguageRepository struct {
	pool *pgxpool.Pool
}

// NewLanguageRepository creates a new LanguageRepository.
func NewLanguageRepository(pool *pgxpool.Pool) *LanguageRepository {
	return &LanguageRepository{pool: pool}
}

// ListAll retrieves the full language catalog.
func (r *LanguageRepository) ListAll(ctx context.Context) ([]model.Language, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM languages ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var languages []model.Language
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		languages = append(languages, l)
	}
	return languages, rows.Err()
}
