package auth

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role (fleet operator: trips CRUD)
	RoleUser UserRole = "user"
	// RoleAdmin can additionally manage user accounts
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// NormalizeRole maps the absent role to the default. Centralized here so
// the directory read path is the only place defaults are derived.
func NormalizeRole(r UserRole) UserRole {
	if r == "" {
		return RoleUser
	}
	return r
}

// AllRoles returns the predefined roles
func AllRoles() []UserRole {
	return []UserRole{RoleUser, RoleAdmin}
}
