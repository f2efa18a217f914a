package domain

import "time"

// User is an account that creates tickets, gets assigned to them, and writes
// comments. Role is loaded alongside the user wherever permission checks run.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	RoleID       int64
	DepartmentID *int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Role *Role
}
