package cnst

// Role is an enumerated capability a user may hold at some scope level.
// Route handlers never compare role strings inline; they go through the
// access evaluator.
type Role string

const (
	// RoleSuperAdmin bypasses every scope check.
	RoleSuperAdmin Role = "superadmin"
	// RoleCompanyAdmin administers a company and everything under it.
	RoleCompanyAdmin Role = "company_admin"
	// RoleCondoAdmin administers a single condo and its units.
	RoleCondoAdmin Role = "condo_admin"
	// RoleAccountant reads and mutates billing data within its scope.
	RoleAccountant Role = "accountant"
	// RoleEmployee is a company staff member without admin rights.
	RoleEmployee Role = "employee"
	// RoleSecurityGuard covers gate and access-log operations.
	RoleSecurityGuard Role = "security_guard"
	// RoleResident is granted automatically alongside an active residency.
	RoleResident Role = "resident"
)

// AdminRoles are the roles that may manage condos, units, residents and
// invites inside their scope.
var AdminRoles = []Role{RoleCompanyAdmin, RoleCondoAdmin}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleCondoAdmin,
		RoleAccountant, RoleEmployee, RoleSecurityGuard, RoleResident:
		return true
	}
	return false
}
