package departments

import (
	"errors"
	"time"
)

// Department represents an organizational unit for management.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrReferenced is returned when deleting a department that policies or
// assignments still point at. Deactivate instead.
var ErrReferenced = errors.New("departments: still referenced by policies or assignments")

// DepartmentForm is the JSON payload for creating or updating a department.
type DepartmentForm struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}
