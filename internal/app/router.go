package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/officehub/officehub/internal/auth"
	"github.com/officehub/officehub/internal/departments"
	"github.com/officehub/officehub/internal/policy"
	"github.com/officehub/officehub/internal/projects"
	"github.com/officehub/officehub/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Middleware MiddlewareConfig

	AuthHandler        *auth.Handler
	PolicyHandler      *policy.Handler
	DepartmentsHandler *departments.Handler
	UsersHandler       *users.Handler
	ProjectsHandler    *projects.Handler
}

// NewRouter constructs the chi.Router with OfficeHub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(params.Middleware) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	cfg := params.Middleware.Config
	r.Route("/auth", func(ar chi.Router) {
		ar.Use(httprate.LimitByIP(cfg.LoginRateLimit, cfg.LoginRateLimitWindow))
		params.AuthHandler.MountRoutes(ar)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(CSRFMiddleware(params.Middleware))
		params.PolicyHandler.MountRoutes(api)
		api.Route("/departments", params.DepartmentsHandler.MountRoutes)
		api.Route("/users", params.UsersHandler.MountRoutes)
		api.Route("/projects", params.ProjectsHandler.MountRoutes)
	})

	return r
}
