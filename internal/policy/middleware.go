package policy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/officehub/officehub/internal/shared"
)

// Checker evaluates a single permission for a user. Both Resolver and
// CachedResolver satisfy it.
type Checker interface {
	CheckPermission(ctx context.Context, user UserRef, permissionID string) (bool, error)
}

// UserDirectory resolves a session user id to the identity attributes a
// permission check needs (legacy role, home department).
type UserDirectory interface {
	FindUserRef(ctx context.Context, userID string) (UserRef, bool, error)
}

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Checker   Checker
	Directory UserDirectory
	Logger    *slog.Logger
}

// RequireAny ensures the current user holds at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			user, ok := m.currentUser(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, perm := range perms {
				granted, err := m.Checker.CheckPermission(r.Context(), user, perm)
				if err != nil {
					m.logError("require any", err)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if granted {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current user holds every required permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := m.currentUser(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, perm := range perms {
				granted, err := m.Checker.CheckPermission(r.Context(), user, perm)
				if err != nil {
					m.logError("require all", err)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if !granted {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUser(r *http.Request) (UserRef, bool) {
	userID := shared.CurrentUserID(r.Context())
	if userID == "" {
		return UserRef{}, false
	}
	if m.Directory == nil {
		return UserRef{ID: userID}, true
	}
	user, found, err := m.Directory.FindUserRef(r.Context(), userID)
	if err != nil {
		m.logError("lookup user", err)
		return UserRef{}, false
	}
	if !found {
		// Session references a deleted user; fall back to a bare id so
		// policy assignments, if any remain, still apply.
		return UserRef{ID: userID}, true
	}
	return user, true
}

func (m Middleware) logError(op string, err error) {
	if m.Logger != nil {
		m.Logger.Error("authz "+op, slog.Any("error", err))
	}
}
