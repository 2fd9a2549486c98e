package policy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/officehub/officehub/internal/platform/httpx"
	"github.com/officehub/officehub/internal/shared"
)

// ResolverPort is the query surface the handler exposes over HTTP.
type ResolverPort interface {
	Checker
	PoliciesForUser(ctx context.Context, userID, departmentID string) ([]Policy, error)
	PermissionsForUser(ctx context.Context, userID, departmentID string) ([]string, error)
	HasPolicyPermission(ctx context.Context, userID, permissionID, departmentID string) (bool, error)
	CanAccessDepartment(ctx context.Context, userID, departmentID string) (bool, error)
	AccessibleDepartments(ctx context.Context, userID string) ([]string, error)
	PrimaryDepartment(ctx context.Context, userID string) (string, error)
	IsGlobalUser(ctx context.Context, userID string) (bool, error)
}

// Handler serves policy administration and permission query endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver ResolverPort
	guard    Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver ResolverPort, guard Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		resolver: resolver,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers policy routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.With(h.guard.RequireAny(PermReadPolicies)).Get("/", h.listPolicies)
		r.With(h.guard.RequireAny(PermReadPolicies)).Get("/{id}", h.getPolicy)
		r.With(h.guard.RequireAny(PermCreatePolicies)).Post("/", h.upsertPolicy)
		r.With(h.guard.RequireAny(PermUpdatePolicies)).Put("/{id}", h.upsertPolicy)
		r.With(h.guard.RequireAny(PermDeletePolicies)).Delete("/{id}", h.deletePolicy)
	})

	r.Route("/assignments", func(r chi.Router) {
		r.With(h.guard.RequireAny(PermReadPolicies)).Get("/", h.listAssignments)
		r.With(h.guard.RequireAny(PermUpdatePolicies)).Post("/", h.assign)
		r.With(h.guard.RequireAny(PermUpdatePolicies)).Delete("/{userID}/{policyID}", h.unassign)
	})

	r.Route("/access/users/{userID}", func(r chi.Router) {
		r.Use(h.guard.RequireAny(PermReadUsers, PermReadPolicies))
		r.Get("/policies", h.userPolicies)
		r.Get("/permissions", h.userPermissions)
		r.Get("/permissions/check", h.checkPermission)
		r.Get("/access", h.userAccess)
	})

	// Session-scoped queries for the frontend; only authentication required.
	r.Route("/me", func(r chi.Router) {
		r.Get("/permissions", h.myPermissions)
		r.Get("/access", h.myAccess)
	})
}

func (h *Handler) listPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.ListPolicies(r.Context())
	if err != nil {
		h.fail(w, "list policies", err)
		return
	}
	if policies == nil {
		policies = []Policy{}
	}
	httpx.JSON(w, http.StatusOK, policies)
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get policy", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) upsertPolicy(w http.ResponseWriter, r *http.Request) {
	var form PolicyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		form.ID = id
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	saved, err := h.service.UpsertPolicy(r.Context(), shared.CurrentUserID(r.Context()), Policy{
		ID:           form.ID,
		Name:         form.Name,
		Description:  form.Description,
		Permissions:  form.Permissions,
		DepartmentID: form.DepartmentID,
		UserType:     UserType(form.UserType),
	})
	if err != nil {
		h.fail(w, "upsert policy", err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, saved)
}

func (h *Handler) deletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePolicy(r.Context(), shared.CurrentUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete policy", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListAssignments(r.Context())
	if err != nil {
		h.fail(w, "list assignments", err)
		return
	}
	if assignments == nil {
		assignments = []Assignment{}
	}
	httpx.JSON(w, http.StatusOK, assignments)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var form AssignmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	saved, err := h.service.Assign(r.Context(), shared.CurrentUserID(r.Context()), Assignment{
		UserID:       form.UserID,
		PolicyID:     form.PolicyID,
		DepartmentID: form.DepartmentID,
	})
	if err != nil {
		h.fail(w, "assign policy", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saved)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	err := h.service.Unassign(r.Context(), shared.CurrentUserID(r.Context()), chi.URLParam(r, "userID"), chi.URLParam(r, "policyID"))
	if err != nil {
		h.fail(w, "unassign policy", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) userPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.resolver.PoliciesForUser(r.Context(), chi.URLParam(r, "userID"), r.URL.Query().Get("department_id"))
	if err != nil {
		h.fail(w, "user policies", err)
		return
	}
	if policies == nil {
		policies = []Policy{}
	}
	httpx.JSON(w, http.StatusOK, policies)
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.resolver.PermissionsForUser(r.Context(), chi.URLParam(r, "userID"), r.URL.Query().Get("department_id"))
	if err != nil {
		h.fail(w, "user permissions", err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	permission := r.URL.Query().Get("permission")
	if permission == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission query parameter is required")
		return
	}
	userID := chi.URLParam(r, "userID")
	departmentID := r.URL.Query().Get("department_id")
	granted, err := h.resolver.HasPolicyPermission(r.Context(), userID, permission, departmentID)
	if err != nil {
		h.fail(w, "check permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, PermissionCheckResponse{
		UserID:       userID,
		Permission:   permission,
		DepartmentID: departmentID,
		Granted:      granted,
	})
}

func (h *Handler) userAccess(w http.ResponseWriter, r *http.Request) {
	h.respondAccess(w, r, chi.URLParam(r, "userID"))
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	userID := shared.CurrentUserID(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	perms, err := h.resolver.PermissionsForUser(r.Context(), userID, r.URL.Query().Get("department_id"))
	if err != nil {
		h.fail(w, "my permissions", err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) myAccess(w http.ResponseWriter, r *http.Request) {
	userID := shared.CurrentUserID(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	h.respondAccess(w, r, userID)
}

func (h *Handler) respondAccess(w http.ResponseWriter, r *http.Request, userID string) {
	global, err := h.resolver.IsGlobalUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "user access", err)
		return
	}
	departments, err := h.resolver.AccessibleDepartments(r.Context(), userID)
	if err != nil {
		h.fail(w, "user access", err)
		return
	}
	primary, err := h.resolver.PrimaryDepartment(r.Context(), userID)
	if err != nil {
		h.fail(w, "user access", err)
		return
	}
	if departments == nil {
		departments = []string{}
	}
	httpx.JSON(w, http.StatusOK, UserAccessResponse{
		UserID:                userID,
		Global:                global,
		AccessibleDepartments: departments,
		PrimaryDepartment:     primary,
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidUserType),
		errors.Is(err, ErrScopeMismatch),
		errors.Is(err, ErrMalformedPermission),
		errors.Is(err, ErrMissingField):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
