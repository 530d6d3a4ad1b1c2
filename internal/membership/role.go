package membership

import (
	"fmt"
	"strings"
)

// Role is a member's position on a team roster.
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
	RoleCoach  Role = "coach"
	RoleStaff  Role = "staff"
)

// ParseRole normalises s into a known Role.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("membership: unknown role %q", s)
	}
	return role, nil
}

// Valid reports whether r is one of the roster roles.
func (r Role) Valid() bool {
	switch r {
	case RolePlayer, RoleAdmin, RoleCoach, RoleStaff:
		return true
	}
	return false
}

// Invitable reports whether an invite code may grant r.
func (r Role) Invitable() bool {
	return r == RolePlayer || r == RoleAdmin
}

// CanManage reports whether r may issue invites or remove members.
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleCoach
}

func (r Role) String() string { return string(r) }
