// Package rbac implements company-scoped role based access control.
package rbac

// Permission codes checked at the HTTP boundary.
const (
	PermissionAccountingView = "accounting.view"
	PermissionAccountingPost = "accounting.post"
	PermissionCompanyManage  = "company.manage"
	PermissionMembersManage  = "members.manage"
	PermissionRBACManage     = "rbac.manage"
)

// System role names created for every company.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleViewer     = "viewer"
)

// DefaultRolePermissions maps each system role to its permission grants.
var DefaultRolePermissions = map[string][]string{
	RoleOwner: {
		PermissionAccountingView,
		PermissionAccountingPost,
		PermissionCompanyManage,
		PermissionMembersManage,
		PermissionRBACManage,
	},
	RoleAdmin: {
		PermissionAccountingView,
		PermissionAccountingPost,
		PermissionMembersManage,
		PermissionRBACManage,
	},
	RoleAccountant: {
		PermissionAccountingView,
		PermissionAccountingPost,
	},
	RoleViewer: {
		PermissionAccountingView,
	},
}

// AllPermissions returns the distinct permission codes across default roles.
func AllPermissions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, perms := range DefaultRolePermissions {
		for _, p := range perms {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
