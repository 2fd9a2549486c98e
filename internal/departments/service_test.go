package departments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/officehub/officehub/internal/shared"
)

type memoryRepo struct {
	departments map[string]Department
	references  map[string]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{departments: make(map[string]Department), references: make(map[string]int)}
}

func (r *memoryRepo) List(ctx context.Context) ([]Department, error) {
	var out []Department
	for _, d := range r.departments {
		out = append(out, d)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (Department, error) {
	d, ok := r.departments[id]
	if !ok {
		return Department{}, shared.ErrNotFound
	}
	return d, nil
}

func (r *memoryRepo) Upsert(ctx context.Context, d Department) (Department, error) {
	r.departments[d.ID] = d
	return d, nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id string, active bool) error {
	d, ok := r.departments[id]
	if !ok {
		return shared.ErrNotFound
	}
	d.IsActive = active
	r.departments[id] = d
	return nil
}

func (r *memoryRepo) CountReferences(ctx context.Context, id string) (int, error) {
	return r.references[id], nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.departments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.departments, id)
	return nil
}

func TestUpsertValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Upsert(context.Background(), Department{ID: "phed", Name: "Public Health Engineering"})
	require.Error(t, err)

	d, err := svc.Upsert(context.Background(), Department{ID: "phed", Name: "Public Health Engineering", Code: "phed"})
	require.NoError(t, err)
	require.Equal(t, "PHED", d.Code)
	require.True(t, d.IsActive)
}

func TestUpsertKeepsActiveFlag(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, Department{ID: "pwd", Name: "Public Works", Code: "PWD"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, "pwd"))

	// Editing a deactivated department must not silently re-activate it.
	d, err := svc.Upsert(ctx, Department{ID: "pwd", Name: "Public Works Dept", Code: "PWD"})
	require.NoError(t, err)
	require.False(t, d.IsActive)
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	repo := newMemoryRepo()
	repo.departments["phed"] = Department{ID: "phed", Name: "Public Health Engineering", Code: "PHED", IsActive: true}
	repo.references["phed"] = 3
	svc := NewService(repo)

	err := svc.Delete(context.Background(), "phed")
	require.ErrorIs(t, err, ErrReferenced)
	require.Contains(t, repo.departments, "phed")

	repo.references["phed"] = 0
	require.NoError(t, svc.Delete(context.Background(), "phed"))
	require.NotContains(t, repo.departments, "phed")
}

func TestDeactivateActivate(t *testing.T) {
	repo := newMemoryRepo()
	repo.departments["it"] = Department{ID: "it", Name: "Information Technology", Code: "IT", IsActive: true}
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Deactivate(ctx, "it"))
	d, err := svc.Get(ctx, "it")
	require.NoError(t, err)
	require.False(t, d.IsActive)

	require.NoError(t, svc.Activate(ctx, "it"))
	d, err = svc.Get(ctx, "it")
	require.NoError(t, err)
	require.True(t, d.IsActive)
}
