package policy

import "strings"

// Permission identifiers use the "action:resource" form. The catalog is
// advisory: unknown identifiers are tolerated everywhere and simply never
// match a grant.
const (
	PermReadProjects   = "read:projects"
	PermCreateProjects = "create:projects"
	PermUpdateProjects = "update:projects"
	PermDeleteProjects = "delete:projects"

	PermReadPayments   = "read:payments"
	PermCreatePayments = "create:payments"
	PermUpdatePayments = "update:payments"

	PermReadExpenses   = "read:expenses"
	PermCreateExpenses = "create:expenses"
	PermUpdateExpenses = "update:expenses"
	PermDeleteExpenses = "delete:expenses"

	PermReadPurchaseOrders   = "read:purchase-orders"
	PermCreatePurchaseOrders = "create:purchase-orders"
	PermUpdatePurchaseOrders = "update:purchase-orders"

	PermReadVendors   = "read:vendors"
	PermCreateVendors = "create:vendors"
	PermUpdateVendors = "update:vendors"

	PermReadUsers   = "read:users"
	PermCreateUsers = "create:users"
	PermUpdateUsers = "update:users"
	PermDeleteUsers = "delete:users"

	PermReadDepartments   = "read:departments"
	PermUpdateDepartments = "update:departments"

	PermReadPolicies   = "read:policies"
	PermCreatePolicies = "create:policies"
	PermUpdatePolicies = "update:policies"
	PermDeletePolicies = "delete:policies"

	PermReadReports    = "read:reports"
	PermReadDashboards = "read:dashboards"
)

// Catalog returns every permission identifier the system knows about.
func Catalog() []string {
	return []string{
		PermReadProjects, PermCreateProjects, PermUpdateProjects, PermDeleteProjects,
		PermReadPayments, PermCreatePayments, PermUpdatePayments,
		PermReadExpenses, PermCreateExpenses, PermUpdateExpenses, PermDeleteExpenses,
		PermReadPurchaseOrders, PermCreatePurchaseOrders, PermUpdatePurchaseOrders,
		PermReadVendors, PermCreateVendors, PermUpdateVendors,
		PermReadUsers, PermCreateUsers, PermUpdateUsers, PermDeleteUsers,
		PermReadDepartments, PermUpdateDepartments,
		PermReadPolicies, PermCreatePolicies, PermUpdatePolicies, PermDeletePolicies,
		PermReadReports, PermReadDashboards,
	}
}

// WellFormedPermission reports whether the id has the "action:resource"
// shape. Catalog membership is deliberately not required.
func WellFormedPermission(id string) bool {
	action, resource, ok := strings.Cut(id, ":")
	return ok && action != "" && resource != ""
}

// Legacy roles. The four-role model predates policies and is consulted only
// when no policy assignment resolves a permission check.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleViewer     = "viewer"
)

var legacyRolePermissions = map[string][]string{
	RoleSuperadmin: Catalog(),
	RoleAdmin: {
		PermReadProjects, PermCreateProjects, PermUpdateProjects, PermDeleteProjects,
		PermReadPayments, PermCreatePayments, PermUpdatePayments,
		PermReadExpenses, PermCreateExpenses, PermUpdateExpenses, PermDeleteExpenses,
		PermReadPurchaseOrders, PermCreatePurchaseOrders, PermUpdatePurchaseOrders,
		PermReadVendors, PermCreateVendors, PermUpdateVendors,
		PermReadUsers, PermCreateUsers, PermUpdateUsers,
		PermReadDepartments, PermUpdateDepartments,
		PermReadReports, PermReadDashboards,
	},
	RoleManager: {
		PermReadProjects, PermCreateProjects, PermUpdateProjects,
		PermReadPayments,
		PermReadExpenses, PermCreateExpenses, PermUpdateExpenses,
		PermReadPurchaseOrders, PermCreatePurchaseOrders,
		PermReadVendors,
		PermReadReports, PermReadDashboards,
	},
	RoleViewer: {
		PermReadProjects,
		PermReadPayments,
		PermReadExpenses,
		PermReadPurchaseOrders,
		PermReadVendors,
		PermReadReports,
		PermReadDashboards,
	},
}

// LegacyRolePermissions returns the fixed permission list for a legacy role,
// or nil for an unknown role.
func LegacyRolePermissions(role string) []string {
	perms, ok := legacyRolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// LegacyRoleGrants reports whether the legacy role table grants the
// permission. Unknown roles grant nothing.
func LegacyRoleGrants(role, permissionID string) bool {
	for _, perm := range legacyRolePermissions[role] {
		if perm == permissionID {
			return true
		}
	}
	return false
}
