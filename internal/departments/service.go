package departments

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	List(ctx context.Context) ([]Department, error)
	Get(ctx context.Context, id string) (Department, error)
	Upsert(ctx context.Context, d Department) (Department, error)
	SetActive(ctx context.Context, id string, active bool) error
	CountReferences(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// Service handles department business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all departments.
func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.repo.List(ctx)
}

// Get fetches one department.
func (s *Service) Get(ctx context.Context, id string) (Department, error) {
	return s.repo.Get(ctx, id)
}

// Upsert creates or updates a department. New departments start active.
func (s *Service) Upsert(ctx context.Context, d Department) (Department, error) {
	d.ID = strings.TrimSpace(d.ID)
	d.Name = strings.TrimSpace(d.Name)
	d.Code = strings.TrimSpace(strings.ToUpper(d.Code))
	if d.ID == "" || d.Name == "" || d.Code == "" {
		return Department{}, errors.New("departments: id, name and code required")
	}
	if existing, err := s.repo.Get(ctx, d.ID); err == nil {
		d.IsActive = existing.IsActive
	} else {
		d.IsActive = true
	}
	return s.repo.Upsert(ctx, d)
}

// Deactivate flips the active flag off. The record stays; policies scoped to
// it keep resolving.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate flips the active flag on.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, true)
}

// Delete hard-deletes a department, refusing while policies or assignments
// still reference it.
func (s *Service) Delete(ctx context.Context, id string) error {
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrReferenced
	}
	return s.repo.Delete(ctx, id)
}
