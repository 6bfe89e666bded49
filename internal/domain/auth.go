package domain

// Scope restricts a ticket query to a subset of tickets: either the whole
// system (admin) or a single owner's tickets.
type Scope struct {
	OwnerID *int64
}

// ScopeAll covers every ticket in the system.
func ScopeAll() Scope {
	return Scope{}
}

// ScopeOwner covers tickets owned by a single user.
func ScopeOwner(userID int64) Scope {
	return Scope{OwnerID: &userID}
}

// Actor identifies the authenticated caller of a mutation.
type Actor struct {
	UserID int64
	Role   UserRole
}

// Admin reports whether the actor holds the admin role.
func (a Actor) Admin() bool {
	return a.Role == UserRoleAdmin
}
