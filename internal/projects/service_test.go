package projects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/officehub/officehub/internal/shared"
)

type memoryRepo struct {
	projects map[string]Project
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{projects: make(map[string]Project)}
}

func (r *memoryRepo) List(ctx context.Context, departmentID string) ([]Project, error) {
	var out []Project
	for _, p := range r.projects {
		if departmentID == "" || p.DepartmentID == departmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, p Project) (Project, error) {
	r.projects[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, p Project) (Project, error) {
	if _, ok := r.projects[p.ID]; !ok {
		return Project{}, shared.ErrNotFound
	}
	r.projects[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.projects[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

// stubGate grants access to a fixed set of departments per user.
type stubGate struct {
	access map[string][]string
}

func (g stubGate) CanAccessDepartment(ctx context.Context, userID, departmentID string) (bool, error) {
	for _, d := range g.access[userID] {
		if d == departmentID {
			return true, nil
		}
	}
	return false, nil
}

func fixtureService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	repo.projects["p1"] = Project{ID: "p1", Code: "PHED-001", Name: "Water Supply", DepartmentID: "phed", Status: StatusActive}
	repo.projects["p2"] = Project{ID: "p2", Code: "PWD-001", Name: "Road Works", DepartmentID: "pwd", Status: StatusPlanned}
	gate := stubGate{access: map[string][]string{
		"staff": {"phed"},
		"admin": {"phed", "pwd", "it", "finance"},
	}}
	return NewService(repo, gate), repo
}

func TestListFiltersByDepartmentAccess(t *testing.T) {
	svc, _ := fixtureService()
	ctx := context.Background()

	visible, err := svc.List(ctx, "staff", "")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, "phed", visible[0].DepartmentID)

	visible, err = svc.List(ctx, "admin", "")
	require.NoError(t, err)
	require.Len(t, visible, 2)

	_, err = svc.List(ctx, "staff", "pwd")
	require.ErrorIs(t, err, ErrDepartmentAccess)
}

func TestGetEnforcesGate(t *testing.T) {
	svc, _ := fixtureService()
	ctx := context.Background()

	p, err := svc.Get(ctx, "staff", "p1")
	require.NoError(t, err)
	require.Equal(t, "PHED-001", p.Code)

	_, err = svc.Get(ctx, "staff", "p2")
	require.ErrorIs(t, err, ErrDepartmentAccess)

	_, err = svc.Get(ctx, "staff", "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateChecksTargetDepartment(t *testing.T) {
	svc, repo := fixtureService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "staff", ProjectForm{Code: "pwd-002", Name: "Bridge", DepartmentID: "pwd"})
	require.ErrorIs(t, err, ErrDepartmentAccess)

	p, err := svc.Create(ctx, "staff", ProjectForm{Code: "phed-002", Name: "Handpumps", DepartmentID: "phed"})
	require.NoError(t, err)
	require.Equal(t, "PHED-002", p.Code)
	require.Equal(t, StatusPlanned, p.Status)
	require.Contains(t, repo.projects, p.ID)
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc, _ := fixtureService()

	_, err := svc.Create(context.Background(), "admin", ProjectForm{Code: "IT-001", Name: "Portal", DepartmentID: "it", Status: "paused"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateChecksBothDepartments(t *testing.T) {
	svc, _ := fixtureService()
	ctx := context.Background()

	// Moving a project out of the actor's department needs access to the
	// target as well.
	_, err := svc.Update(ctx, "staff", "p1", ProjectForm{Code: "PHED-001", Name: "Water Supply", DepartmentID: "pwd", Status: StatusActive})
	require.ErrorIs(t, err, ErrDepartmentAccess)

	p, err := svc.Update(ctx, "admin", "p1", ProjectForm{Code: "PHED-001", Name: "Water Supply", DepartmentID: "pwd", Status: StatusOnHold})
	require.NoError(t, err)
	require.Equal(t, "pwd", p.DepartmentID)
	require.Equal(t, StatusOnHold, p.Status)
}

func TestDeleteEnforcesGate(t *testing.T) {
	svc, repo := fixtureService()
	ctx := context.Background()

	require.ErrorIs(t, svc.Delete(ctx, "staff", "p2"), ErrDepartmentAccess)
	require.NoError(t, svc.Delete(ctx, "staff", "p1"))
	require.NotContains(t, repo.projects, "p1")
}
