package models

import "time"

// Role is the authorization level of a principal.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole maps a case-sensitive role name to a Role. Empty input yields
// RoleStudent.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "":
		return RoleStudent, true
	case RoleStudent, RoleInstructor, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Principal is an authenticated identity. Email is the unique identifier and
// the subject of issued access tokens.
type Principal struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         Role
	Active       bool
	CreatedAt    time.Time
}
