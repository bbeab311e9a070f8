package model

import "fmt"

type UserRole string // actor role

const (
	RoleCustomer UserRole = "customer" // storefront shopper
	RoleEmployee UserRole = "employee" // warehouse or support staff, read-only back office
	RoleManager  UserRole = "manager"  // catalog and fulfillment operator
	RoleAdmin    UserRole = "admin"    // full back office access
)

// ParseUserRole validates a role string.
func ParseUserRole(s string) (UserRole, error) {
	switch r := UserRole(s); r {
	case RoleCustomer, RoleEmployee, RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown user role %q", s)
	}
}

func (r UserRole) Label() string {
	switch r {
	case RoleCustomer:
		return "Customer"
	case RoleEmployee:
		return "Employee"
	case RoleManager:
		return "Manager"
	case RoleAdmin:
		return "Administrator"
	default:
		return string(r)
	}
}

// Actor is the identity every write is attributed to.
type Actor struct {
	UserID uint     `json:"user_id"`
	Role   UserRole `json:"role"`
}

// IsStaff reports whether the actor may mutate the catalog and orders.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}
