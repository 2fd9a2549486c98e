package policy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/officehub/officehub/internal/shared"
)

// Repository provides PostgreSQL backed persistence for policies,
// departments and assignments. It implements Store for the resolver and the
// mutation surface for the service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPolicies returns all policies.
func (r *Repository) ListPolicies(ctx context.Context) ([]Policy, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, permissions, COALESCE(department_id, ''), user_type, created_at, updated_at FROM policies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var policies []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Permissions, &p.DepartmentID, &p.UserType, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// GetPolicy fetches a policy by id.
func (r *Repository) GetPolicy(ctx context.Context, id string) (Policy, error) {
	var p Policy
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, permissions, COALESCE(department_id, ''), user_type, created_at, updated_at FROM policies WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Permissions, &p.DepartmentID, &p.UserType, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Policy{}, shared.ErrNotFound
		}
		return Policy{}, err
	}
	return p, nil
}

// UpsertPolicy inserts the policy or updates it in place when the id exists.
func (r *Repository) UpsertPolicy(ctx context.Context, p Policy) (Policy, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO policies (id, name, description, permissions, department_id, user_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			permissions = EXCLUDED.permissions,
			department_id = EXCLUDED.department_id,
			user_type = EXCLUDED.user_type,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Permissions, p.DepartmentID, p.UserType).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Policy{}, err
	}
	return p, nil
}

// DeletePolicy removes a policy by id. Referencing assignments are left in
// place; resolution drops them as dangling.
func (r *Repository) DeletePolicy(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListDepartments returns all departments.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
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

// ListAssignments returns every assignment, ordered by assignment time.
func (r *Repository) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, policy_id, COALESCE(department_id, ''), assigned_at, COALESCE(assigned_by, '') FROM user_policy_assignments ORDER BY assigned_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ListAssignmentsForUser returns the user's assignments ordered by
// (assigned_at, id).
func (r *Repository) ListAssignmentsForUser(ctx context.Context, userID string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, policy_id, COALESCE(department_id, ''), assigned_at, COALESCE(assigned_by, '') FROM user_policy_assignments WHERE user_id = $1 ORDER BY assigned_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// UpsertAssignment grants a policy to a user. Re-assigning an existing
// (user_id, policy_id) pair updates the record in place.
func (r *Repository) UpsertAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_policy_assignments (id, user_id, policy_id, department_id, assigned_at, assigned_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''))
		ON CONFLICT (user_id, policy_id) DO UPDATE SET
			department_id = EXCLUDED.department_id,
			assigned_at = EXCLUDED.assigned_at,
			assigned_by = EXCLUDED.assigned_by
		RETURNING id, assigned_at`,
		a.ID, a.UserID, a.PolicyID, a.DepartmentID, a.AssignedAt, a.AssignedBy).
		Scan(&a.ID, &a.AssignedAt)
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// DeleteAssignment removes the (userID, policyID) grant.
func (r *Repository) DeleteAssignment(ctx context.Context, userID, policyID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_policy_assignments WHERE user_id = $1 AND policy_id = $2`, userID, policyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAssignments(rows pgx.Rows) ([]Assignment, error) {
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.PolicyID, &a.DepartmentID, &a.AssignedAt, &a.AssignedBy); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
