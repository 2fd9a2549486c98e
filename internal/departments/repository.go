package departments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/officehub/officehub/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all departments.
func (r *Repository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, code, is_active, created_at, updated_at FROM departments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// Get fetches a department by id.
func (r *Repository) Get(ctx context.Context, id string) (Department, error) {
	var d Department
	err := r.pool.QueryRow(ctx, `SELECT id, name, code, is_active, created_at, updated_at FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Code, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return d, nil
}

// Upsert inserts or updates a department.
func (r *Repository) Upsert(ctx context.Context, d Department) (Department, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO departments (id, name, code, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING is_active, created_at, updated_at`,
		d.ID, d.Name, d.Code, d.IsActive).
		Scan(&d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Department{}, err
	}
	return d, nil
}

// SetActive flips the logical active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountReferences counts policies and assignments pointing at the department.
func (r *Repository) CountReferences(ctx context.Context, id string) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM policies WHERE department_id = $1)
		     + (SELECT COUNT(*) FROM user_policy_assignments WHERE department_id = $1)`, id).
		Scan(&total)
	return total, err
}

// Delete hard-deletes a department. Callers must check references first.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
