package projects

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/officehub/officehub/internal/platform/httpx"
	"github.com/officehub/officehub/internal/policy"
	"github.com/officehub/officehub/internal/shared"
)

// Handler manages project endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    policy.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard policy.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireAny(policy.PermReadProjects)).Get("/", h.list)
	r.With(h.guard.RequireAny(policy.PermReadProjects)).Get("/{id}", h.get)
	r.With(h.guard.RequireAny(policy.PermCreateProjects)).Post("/", h.create)
	r.With(h.guard.RequireAny(policy.PermUpdateProjects)).Put("/{id}", h.update)
	r.With(h.guard.RequireAny(policy.PermDeleteProjects)).Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context(), shared.CurrentUserID(r.Context()), r.URL.Query().Get("department_id"))
	if err != nil {
		h.fail(w, "list projects", err)
		return
	}
	if projects == nil {
		projects = []Project{}
	}
	httpx.JSON(w, http.StatusOK, projects)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), shared.CurrentUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), shared.CurrentUserID(r.Context()), form)
	if err != nil {
		h.fail(w, "create project", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	p, err := h.service.Update(r.Context(), shared.CurrentUserID(r.Context()), chi.URLParam(r, "id"), form)
	if err != nil {
		h.fail(w, "update project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), shared.CurrentUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete project", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (ProjectForm, bool) {
	var form ProjectForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return ProjectForm{}, false
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return ProjectForm{}, false
	}
	return form, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDepartmentAccess):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, httpx.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
