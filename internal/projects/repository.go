package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/officehub/officehub/internal/platform/httpx"
	"github.com/officehub/officehub/internal/shared"
)

const selectProject = `SELECT id, code, name, COALESCE(description, ''), department_id, status, budget_minor, created_at, updated_at FROM projects`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns projects, optionally filtered by department.
func (r *Repository) List(ctx context.Context, departmentID string) ([]Project, error) {
	query := selectProject + ` ORDER BY code`
	args := []any{}
	if departmentID != "" {
		query = selectProject + ` WHERE department_id = $1 ORDER BY code`
		args = append(args, departmentID)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.DepartmentID, &p.Status, &p.BudgetMinor, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Get fetches a project by id.
func (r *Repository) Get(ctx context.Context, id string) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, selectProject+` WHERE id = $1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.DepartmentID, &p.Status, &p.BudgetMinor, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Create inserts a new project.
func (r *Repository) Create(ctx context.Context, p Project) (Project, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO projects (id, code, name, description, department_id, status, budget_minor, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`,
		p.ID, p.Code, p.Name, p.Description, p.DepartmentID, p.Status, p.BudgetMinor).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Project{}, httpx.ErrDuplicate
		}
		return Project{}, err
	}
	return p, nil
}

// Update overwrites a project's mutable attributes.
func (r *Repository) Update(ctx context.Context, p Project) (Project, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE projects SET
			code = $2,
			name = $3,
			description = NULLIF($4, ''),
			department_id = $5,
			status = $6,
			budget_minor = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Code, p.Name, p.Description, p.DepartmentID, p.Status, p.BudgetMinor).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Project{}, httpx.ErrDuplicate
		}
		return Project{}, err
	}
	return p, nil
}

// Delete removes a project.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
