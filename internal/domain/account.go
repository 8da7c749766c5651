package domain

import "time"

// Role governs which operations an account may invoke.
type Role string

const (
	RoleCitizen  Role = "CITIZEN"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// IsStaff is true for roles allowed to move requests through the lifecycle.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// Account is a registered identity. Email is the login identifier and
// Username the public display name; both are globally unique.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
