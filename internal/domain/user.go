package domain

import "time"

// UserRole distinguishes regular requesters from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// User is the domain model for accounts that submit tickets.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
}

// IsAdmin reports whether the user may access the admin surface.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
