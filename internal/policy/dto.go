package policy

// PolicyForm is the JSON payload for creating or updating a policy.
type PolicyForm struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Permissions  []string `json:"permissions" validate:"dive,required"`
	DepartmentID string   `json:"department_id"`
	UserType     string   `json:"user_type" validate:"required"`
}

// AssignmentForm is the JSON payload for granting a policy to a user.
type AssignmentForm struct {
	UserID       string `json:"user_id" validate:"required"`
	PolicyID     string `json:"policy_id" validate:"required"`
	DepartmentID string `json:"department_id"`
}

// PermissionCheckResponse is the result of a single permission check.
type PermissionCheckResponse struct {
	UserID       string `json:"user_id"`
	Permission   string `json:"permission"`
	DepartmentID string `json:"department_id,omitempty"`
	Granted      bool   `json:"granted"`
}

// UserAccessResponse summarizes a user's department reach.
type UserAccessResponse struct {
	UserID                string   `json:"user_id"`
	Global                bool     `json:"global"`
	AccessibleDepartments []string `json:"accessible_departments"`
	PrimaryDepartment     string   `json:"primary_department,omitempty"`
}
