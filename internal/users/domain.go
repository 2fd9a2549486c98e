package users

import "time"

// User represents a user account for management. Role is the legacy
// four-role fallback; policy assignments are the primary grant mechanism.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role,omitempty"`
	DepartmentID string    `json:"department_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserForm is the JSON payload for creating or updating a user.
type UserForm struct {
	ID           string `json:"id"`
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"required"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id"`
	Password     string `json:"password" validate:"omitempty,min=8"`
}
