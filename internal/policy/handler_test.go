package policy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/officehub/officehub/internal/shared"
	_ "github.com/officehub/officehub/testing"
)

type handlerFixture struct {
	handler *Handler
	repo    *memoryRepo
	router  http.Handler
	sm      *shared.SessionManager
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	repo := newMemoryRepo()
	repo.departments = districtStore().departments
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(repo, logger, nil, nil)
	resolver := NewResolver(repo, logger)
	guard := Middleware{
		Checker: stubChecker{grants: map[string][]string{
			"admin": Catalog(),
		}},
		Directory: stubDirectory{refs: map[string]UserRef{"admin": {ID: "admin"}}},
	}
	handler := NewHandler(logger, service, resolver, guard)

	r := chi.NewRouter()
	handler.MountRoutes(r)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", time.Hour, false)

	return &handlerFixture{handler: handler, repo: repo, router: r, sm: sm}
}

func (f *handlerFixture) do(t *testing.T, method, target, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	sess, err := f.sm.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUserID(userID)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestPolicyCRUDOverHTTP(t *testing.T) {
	f := newHandlerFixture(t)

	res := f.do(t, http.MethodPost, "/policies", `{
		"id": "phed-staff-policy",
		"name": "PHED Staff",
		"permissions": ["read:projects", "read:reports"],
		"department_id": "phed",
		"user_type": "department-staff"
	}`, "admin")
	require.Equal(t, http.StatusCreated, res.Code)

	res = f.do(t, http.MethodGet, "/policies/phed-staff-policy", "", "admin")
	require.Equal(t, http.StatusOK, res.Code)
	var p Policy
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &p))
	require.Equal(t, UserTypeDepartmentStaff, p.UserType)

	res = f.do(t, http.MethodGet, "/policies", "", "admin")
	require.Equal(t, http.StatusOK, res.Code)

	res = f.do(t, http.MethodDelete, "/policies/phed-staff-policy", "", "admin")
	require.Equal(t, http.StatusNoContent, res.Code)

	res = f.do(t, http.MethodGet, "/policies/phed-staff-policy", "", "admin")
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestPolicyValidationOverHTTP(t *testing.T) {
	f := newHandlerFixture(t)

	// Scope mismatch: department-specific type without a department.
	res := f.do(t, http.MethodPost, "/policies", `{
		"id": "bad-policy",
		"name": "Bad",
		"permissions": ["read:projects"],
		"user_type": "department-staff"
	}`, "admin")
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodPost, "/policies", `{not json`, "admin")
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestPolicyRoutesRequirePermission(t *testing.T) {
	f := newHandlerFixture(t)

	res := f.do(t, http.MethodGet, "/policies", "", "")
	require.Equal(t, http.StatusForbidden, res.Code)

	res = f.do(t, http.MethodGet, "/policies", "", "intruder")
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestAssignmentFlowOverHTTP(t *testing.T) {
	f := newHandlerFixture(t)
	f.repo.addPolicy(Policy{
		ID:           "phed-staff-policy",
		Name:         "PHED Staff",
		Permissions:  []string{PermReadProjects, PermReadReports},
		DepartmentID: "phed",
		UserType:     UserTypeDepartmentStaff,
	})

	res := f.do(t, http.MethodPost, "/assignments", `{"user_id":"u1","policy_id":"phed-staff-policy","department_id":"phed"}`, "admin")
	require.Equal(t, http.StatusCreated, res.Code)

	res = f.do(t, http.MethodGet, "/access/users/u1/permissions?department_id=phed", "", "admin")
	require.Equal(t, http.StatusOK, res.Code)
	var perms []string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &perms))
	require.Equal(t, []string{PermReadProjects, PermReadReports}, perms)

	res = f.do(t, http.MethodGet, "/access/users/u1/permissions/check?permission=read:projects&department_id=phed", "", "admin")
	require.Equal(t, http.StatusOK, res.Code)
	var check PermissionCheckResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &check))
	require.True(t, check.Granted)

	res = f.do(t, http.MethodGet, "/access/users/u1/access", "", "admin")
	require.Equal(t, http.StatusOK, res.Code)
	var access UserAccessResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &access))
	require.False(t, access.Global)
	require.Equal(t, []string{"phed"}, access.AccessibleDepartments)
	require.Equal(t, "phed", access.PrimaryDepartment)

	res = f.do(t, http.MethodDelete, "/assignments/u1/phed-staff-policy", "", "admin")
	require.Equal(t, http.StatusNoContent, res.Code)

	res = f.do(t, http.MethodGet, "/access/users/u1/permissions?department_id=phed", "", "admin")
	require.Equal(t, http.StatusOK, res.Code)
	perms = nil
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &perms))
	require.Empty(t, perms)
}

func TestAssignUnknownPolicyOverHTTP(t *testing.T) {
	f := newHandlerFixture(t)

	res := f.do(t, http.MethodPost, "/assignments", `{"user_id":"u1","policy_id":"ghost"}`, "admin")
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestMyPermissions(t *testing.T) {
	f := newHandlerFixture(t)
	f.repo.addPolicy(Policy{
		ID:          "viewer-policy",
		Name:        "Viewer",
		Permissions: []string{PermReadReports},
		UserType:    UserTypeViewer,
	})
	f.repo.assign(Assignment{ID: "a1", UserID: "someone", PolicyID: "viewer-policy"})

	res := f.do(t, http.MethodGet, "/me/permissions", "", "someone")
	require.Equal(t, http.StatusOK, res.Code)
	var perms []string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &perms))
	require.Equal(t, []string{PermReadReports}, perms)

	res = f.do(t, http.MethodGet, "/me/permissions", "", "")
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestCheckPermissionRequiresQueryParam(t *testing.T) {
	f := newHandlerFixture(t)

	res := f.do(t, http.MethodGet, "/access/users/u1/permissions/check", "", "admin")
	require.Equal(t, http.StatusBadRequest, res.Code)
}
