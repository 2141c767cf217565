package service

import (
	"context"

	"github.com/proctorly/backend/internal/model"
	"github.com/proctorly/backend/internal/repository"
)

// StaffService handles staff account lookups and creation.
type StaffService struct {
	repo *repository.StaffRepository
}

// NewStaffService creates a new StaffService.
func NewStaffService(repo *repository.StaffRepository) *StaffService {
	return &StaffService{repo: repo}
}

// GetByEmail retrieves a staff member by login email.
func (s *StaffService) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	return s.repo.GetByEmail(ctx, email)
}

// GetByID retrieves a staff member by id.
func (s *StaffService) GetByID(ctx context.Context, id int) (*model.Staff, error) {
	return s.repo.GetByID(ctx, id)
}

// Create inserts a new staff account.
func (s *StaffService) Create(ctx context.Context, st *model.Staff) error {
	return s.repo.Create(ctx, st)
}
