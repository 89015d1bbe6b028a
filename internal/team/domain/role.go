package domain

import "strings"

type Role string

const (
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RolePortal     Role = "portal"
)

// ParseRole accepts any profile role, including portal.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleOwner, RoleManager, RoleTechnician, RolePortal:
		return role, nil
	}
	return "", ErrInvalidRole
}

// ParseAssignableRole accepts the roles an owner or manager may hand out
// through invitations and role updates.
func ParseAssignableRole(raw string) (Role, error) {
	role, err := ParseRole(raw)
	if err != nil || role == RolePortal {
		return "", ErrInvalidRole
	}
	return role, nil
}

// CanManageTeam is the permission behind every team mutation.
func CanManageTeam(role Role) bool {
	return role == RoleOwner || role == RoleManager
}
