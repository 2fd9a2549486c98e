package projects

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for projects.
type RepositoryPort interface {
	List(ctx context.Context, departmentID string) ([]Project, error)
	Get(ctx context.Context, id string) (Project, error)
	Create(ctx context.Context, p Project) (Project, error)
	Update(ctx context.Context, p Project) (Project, error)
	Delete(ctx context.Context, id string) error
}

// DepartmentGate answers whether an actor's policies reach a department.
// The policy resolver satisfies it.
type DepartmentGate interface {
	CanAccessDepartment(ctx context.Context, userID, departmentID string) (bool, error)
}

// Service handles project business logic with department scoping.
type Service struct {
	repo RepositoryPort
	gate DepartmentGate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, gate DepartmentGate) *Service {
	return &Service{repo: repo, gate: gate}
}

// List returns projects the actor may see. With a department filter the gate
// is checked once; without one the full list is filtered per project.
func (s *Service) List(ctx context.Context, actorID, departmentID string) ([]Project, error) {
	if departmentID != "" {
		if err := s.checkGate(ctx, actorID, departmentID); err != nil {
			return nil, err
		}
		return s.repo.List(ctx, departmentID)
	}
	all, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var visible []Project
	for _, p := range all {
		ok, err := s.gate.CanAccessDepartment(ctx, actorID, p.DepartmentID)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// Get fetches one project, enforcing department access.
func (s *Service) Get(ctx context.Context, actorID, id string) (Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if err := s.checkGate(ctx, actorID, p.DepartmentID); err != nil {
		return Project{}, err
	}
	return p, nil
}

// Create inserts a project in a department the actor can touch.
func (s *Service) Create(ctx context.Context, actorID string, form ProjectForm) (Project, error) {
	p, err := projectFromForm(form)
	if err != nil {
		return Project{}, err
	}
	if err := s.checkGate(ctx, actorID, p.DepartmentID); err != nil {
		return Project{}, err
	}
	p.ID = uuid.NewString()
	return s.repo.Create(ctx, p)
}

// Update edits a project. Access is required to both the current and the
// target department when the project moves.
func (s *Service) Update(ctx context.Context, actorID, id string, form ProjectForm) (Project, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if err := s.checkGate(ctx, actorID, existing.DepartmentID); err != nil {
		return Project{}, err
	}
	updated, err := projectFromForm(form)
	if err != nil {
		return Project{}, err
	}
	if updated.DepartmentID != existing.DepartmentID {
		if err := s.checkGate(ctx, actorID, updated.DepartmentID); err != nil {
			return Project{}, err
		}
	}
	updated.ID = existing.ID
	return s.repo.Update(ctx, updated)
}

// Delete removes a project, enforcing department access.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkGate(ctx, actorID, existing.DepartmentID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) checkGate(ctx context.Context, actorID, departmentID string) error {
	ok, err := s.gate.CanAccessDepartment(ctx, actorID, departmentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDepartmentAccess
	}
	return nil
}

func projectFromForm(form ProjectForm) (Project, error) {
	status := form.Status
	if status == "" {
		status = StatusPlanned
	}
	if !validStatus(status) {
		return Project{}, ErrInvalidStatus
	}
	return Project{
		Code:         strings.TrimSpace(strings.ToUpper(form.Code)),
		Name:         strings.TrimSpace(form.Name),
		Description:  strings.TrimSpace(form.Description),
		DepartmentID: strings.TrimSpace(form.DepartmentID),
		Status:       status,
		BudgetMinor:  form.BudgetMinor,
	}, nil
}
