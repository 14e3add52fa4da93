package model

import "time"

// User is an authenticated team member.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles, in decreasing order of privilege.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleEmployee   = "employee"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleEmployee:
		return true
	}
	return false
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:      3,
		RoleSupervisor: 2,
		RoleEmployee:   1,
	}
	return levels[role] >= levels[minimum]
}
