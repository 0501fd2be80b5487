package auth

import "strings"

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleCoach, RoleClient, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManageClients is true for roles that own client rosters
func (r Role) CanManageClients() bool {
	switch r {
	case RoleCoach, RoleAdmin:
		return true
	default:
		return false
	}
}

// Label is the display name for the role
func (r Role) Label() string {
	switch r {
	case RoleCoach:
		return "Coach"
	case RoleClient:
		return "Client"
	case RoleAdmin:
		return "Admin"
	default:
		return "Unknown"
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleCoach,
		RoleClient,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role, case insensitive
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}
