package policy

import (
	"context"
	"log/slog"
	"sort"
)

// DanglingRecorder receives assignments whose policy id no longer resolves.
// Resolution drops such assignments silently; the recorder is a diagnostic
// side channel for operators, not part of the query results.
type DanglingRecorder interface {
	RecordDangling(ctx context.Context, assignment Assignment)
}

// Resolver answers permission queries from the assignment graph. It is
// read-only: every call is a pure function of the store's current state.
// Missing data (unknown user, dangling policy reference, empty assignment
// list) degrades to empty results or false; only store failures surface as
// errors.
type Resolver struct {
	store    Store
	logger   *slog.Logger
	dangling DanglingRecorder
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithDanglingRecorder installs a diagnostic sink for dropped references.
func WithDanglingRecorder(rec DanglingRecorder) ResolverOption {
	return func(r *Resolver) { r.dangling = rec }
}

// NewResolver constructs a Resolver over the given store.
func NewResolver(store Store, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PoliciesForUser resolves the user's assigned policies. When departmentID
// is non-empty, assignments explicitly scoped to a different department are
// excluded; assignments with no department context pass the filter. Dangling
// policy references are dropped without error. Order follows assignment
// order.
func (r *Resolver) PoliciesForUser(ctx context.Context, userID, departmentID string) ([]Policy, error) {
	if userID == "" {
		return nil, nil
	}
	assignments, err := r.store.ListAssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, nil
	}
	byID, err := r.policyIndex(ctx)
	if err != nil {
		return nil, err
	}

	var resolved []Policy
	for _, a := range assignments {
		if departmentID != "" && a.DepartmentID != "" && a.DepartmentID != departmentID {
			continue
		}
		p, ok := byID[a.PolicyID]
		if !ok {
			r.dropDangling(ctx, a)
			continue
		}
		resolved = append(resolved, p)
	}
	return resolved, nil
}

// PermissionsForUser returns the union of permission ids granted by the
// user's resolved policies, sorted for determinism. A policy scoped to a
// department other than the requested one contributes nothing; this re-check
// is intentional even though PoliciesForUser already filters on the
// assignment's context, because an assignment may carry no context while its
// policy does.
func (r *Resolver) PermissionsForUser(ctx context.Context, userID, departmentID string) ([]string, error) {
	policies, err := r.PoliciesForUser(ctx, userID, departmentID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, p := range policies {
		if p.DepartmentID != "" && departmentID != "" && p.DepartmentID != departmentID {
			continue
		}
		for _, perm := range p.Permissions {
			set[perm] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms, nil
}

// HasPolicyPermission reports whether any of the user's policies grants the
// permission within the given department scope. The per-policy department
// re-check mirrors PermissionsForUser.
func (r *Resolver) HasPolicyPermission(ctx context.Context, userID, permissionID, departmentID string) (bool, error) {
	policies, err := r.PoliciesForUser(ctx, userID, departmentID)
	if err != nil {
		return false, err
	}
	for _, p := range policies {
		if p.DepartmentID != "" && departmentID != "" && p.DepartmentID != departmentID {
			continue
		}
		if p.Grants(permissionID) {
			return true, nil
		}
	}
	return false, nil
}

// CheckPermission is the entry point for enforcement. Resolution order,
// first match wins:
//
//  1. policy permissions scoped to the user's home department, when set;
//  2. policy permissions with no department filter; a user attached to a
//     department may still hold global policies (an accountant nominally in
//     a department, say), and the scoped pass alone would hide those grants;
//  3. the legacy role table, when the user carries a role;
//  4. deny.
func (r *Resolver) CheckPermission(ctx context.Context, user UserRef, permissionID string) (bool, error) {
	if user.ID != "" {
		if user.DepartmentID != "" {
			ok, err := r.HasPolicyPermission(ctx, user.ID, permissionID, user.DepartmentID)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		ok, err := r.HasPolicyPermission(ctx, user.ID, permissionID, "")
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	if user.Role != "" {
		return LegacyRoleGrants(user.Role, permissionID), nil
	}
	return false, nil
}

// CanAccessDepartment reports whether any of the user's policies is global
// or scoped to exactly the requested department.
func (r *Resolver) CanAccessDepartment(ctx context.Context, userID, departmentID string) (bool, error) {
	policies, err := r.PoliciesForUser(ctx, userID, "")
	if err != nil {
		return false, err
	}
	for _, p := range policies {
		if p.Global() || p.DepartmentID == departmentID {
			return true, nil
		}
	}
	return false, nil
}

// AccessibleDepartments returns the sorted set of department ids the user
// can touch. A global policy contributes every known department id; a scoped
// policy contributes only its own.
func (r *Resolver) AccessibleDepartments(ctx context.Context, userID string) ([]string, error) {
	policies, err := r.PoliciesForUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{})
	for _, p := range policies {
		if p.Global() {
			departments, err := r.store.ListDepartments(ctx)
			if err != nil {
				return nil, err
			}
			for _, d := range departments {
				set[d.ID] = struct{}{}
			}
			continue
		}
		set[p.DepartmentID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PrimaryDepartment returns the department of the first resolved policy, in
// assignment order, whose user type is department-specific. The tie-break is
// deliberate: assignments are ordered by (assigned_at, id), so the earliest
// department assignment wins. Returns "" when the user has none.
func (r *Resolver) PrimaryDepartment(ctx context.Context, userID string) (string, error) {
	policies, err := r.PoliciesForUser(ctx, userID, "")
	if err != nil {
		return "", err
	}
	for _, p := range policies {
		if p.UserType.DepartmentSpecific() {
			return p.DepartmentID, nil
		}
	}
	return "", nil
}

// IsGlobalUser reports whether any assigned policy lacks a department scope.
func (r *Resolver) IsGlobalUser(ctx context.Context, userID string) (bool, error) {
	policies, err := r.PoliciesForUser(ctx, userID, "")
	if err != nil {
		return false, err
	}
	for _, p := range policies {
		if p.Global() {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) policyIndex(ctx context.Context) (map[string]Policy, error) {
	policies, err := r.store.ListPolicies(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Policy, len(policies))
	for _, p := range policies {
		byID[p.ID] = p
	}
	return byID, nil
}

func (r *Resolver) dropDangling(ctx context.Context, a Assignment) {
	if r.logger != nil {
		r.logger.Warn("dropping assignment with dangling policy reference",
			slog.String("user_id", a.UserID),
			slog.String("policy_id", a.PolicyID))
	}
	if r.dangling != nil {
		r.dangling.RecordDangling(ctx, a)
	}
}
