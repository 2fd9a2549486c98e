// Package policy implements department-scoped, policy-based authorization
// with a legacy role fallback.
package policy

import (
	"context"
	"strings"
	"time"
)

// UserType classifies the audience a policy is written for.
type UserType string

const (
	UserTypeDepartmentStaff      UserType = "department-staff"
	UserTypeDepartmentManager    UserType = "department-manager"
	UserTypeDepartmentSupervisor UserType = "department-supervisor"
	UserTypeGlobalAdmin          UserType = "global-admin"
	UserTypeAccountant           UserType = "accountant"
	UserTypeHRManager            UserType = "hr-manager"
	UserTypeViewer               UserType = "viewer"
)

// UserTypes lists every valid user type.
func UserTypes() []UserType {
	return []UserType{
		UserTypeDepartmentStaff,
		UserTypeDepartmentManager,
		UserTypeDepartmentSupervisor,
		UserTypeGlobalAdmin,
		UserTypeAccountant,
		UserTypeHRManager,
		UserTypeViewer,
	}
}

// Valid reports whether the user type belongs to the fixed enumeration.
func (t UserType) Valid() bool {
	for _, known := range UserTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// DepartmentSpecific reports whether policies of this type must be tied to
// exactly one department.
func (t UserType) DepartmentSpecific() bool {
	return strings.HasPrefix(string(t), "department-")
}

// Policy is a named, reusable bundle of permission identifiers, optionally
// scoped to one department. An empty DepartmentID means the policy is global.
type Policy struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Permissions  []string  `json:"permissions"`
	DepartmentID string    `json:"department_id,omitempty"`
	UserType     UserType  `json:"user_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Global reports whether the policy applies across all departments.
func (p Policy) Global() bool {
	return p.DepartmentID == ""
}

// Grants reports whether the policy's permission list contains the id.
func (p Policy) Grants(permissionID string) bool {
	for _, perm := range p.Permissions {
		if perm == permissionID {
			return true
		}
	}
	return false
}

// Department is an organizational unit. Deactivation is logical; departments
// are never hard-deleted while referenced.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment grants a policy to a user, optionally within a department
// context. The (UserID, PolicyID) pair is unique; re-assigning updates the
// existing record.
type Assignment struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PolicyID     string    `json:"policy_id"`
	DepartmentID string    `json:"department_id,omitempty"`
	AssignedAt   time.Time `json:"assigned_at"`
	AssignedBy   string    `json:"assigned_by,omitempty"`
}

// UserRef carries the identity attributes permission checks operate on.
// Role is the legacy fallback; DepartmentID is the user's home department.
type UserRef struct {
	ID           string `json:"id"`
	Role         string `json:"role,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
}

// Store is the read surface the resolver depends on. Every method returns
// the latest committed state; missing records are represented by absence,
// never by an error.
type Store interface {
	ListPolicies(ctx context.Context) ([]Policy, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	// ListAssignmentsForUser returns the user's assignments ordered by
	// (assigned_at, id). The order is observable through PrimaryDepartment.
	ListAssignmentsForUser(ctx context.Context, userID string) ([]Assignment, error)
}
