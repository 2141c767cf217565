package service

import (
	"context"

	"github.com/proctorly/backend/internal/model"
	"github.com/proctorly/backend/internal/repository"
)

// StudentService handles student account lookups.
type StudentService struct {
	repo *repository.StudentRepository
}

// NewStudentService creates a new StudentService.
func NewStudentService(repo *repository.StudentRepository) *StudentService {
	return &StudentService{repo: repo}
}

// GetByEmail retrieves a student by login email.
func (s *StudentService) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	return s.repo.GetByEmail(ctx, email)
}

// GetByID retrieves a student by id.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.repo.GetByID(ctx, id)
}
