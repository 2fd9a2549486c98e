package projects

import (
	"errors"
	"time"
)

// Project statuses.
const (
	StatusPlanned = "planned"
	StatusActive  = "active"
	StatusOnHold  = "on-hold"
	StatusClosed  = "closed"
)

// Project represents a department project.
type Project struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DepartmentID string    `json:"department_id"`
	Status       string    `json:"status"`
	BudgetMinor  int64     `json:"budget_minor"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ErrDepartmentAccess is returned when the actor's policies do not reach the
// project's department.
var ErrDepartmentAccess = errors.New("projects: no access to department")

// ErrInvalidStatus is returned for a status outside the fixed set.
var ErrInvalidStatus = errors.New("projects: invalid status")

// ProjectForm is the JSON payload for creating or updating a project.
type ProjectForm struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	DepartmentID string `json:"department_id" validate:"required"`
	Status       string `json:"status"`
	BudgetMinor  int64  `json:"budget_minor" validate:"gte=0"`
}

func validStatus(status string) bool {
	switch status {
	case StatusPlanned, StatusActive, StatusOnHold, StatusClosed:
		return true
	}
	return false
}
