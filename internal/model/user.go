package model

import "time"

// UserID uniquely identifies a registered user
type UserID string

// Role is the authorization level attached to a user
type Role string

const (
	RolePlayer Role = "PLAYER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RolePlayer || r == RoleAdmin
}

// User is the stored credential record
type User struct {
	ID           UserID
	Username     string // sanitized, byte-exact lookup key
	PasswordHash string // bcrypt hash
	Role         Role
	CreatedAt    time.Time
}

// Identity is the authenticated subject carried by a verified token
type Identity struct {
	SubjectID UserID
	Role      Role
}

// IsAdmin reports whether the identity holds the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Session records an issued token. It is written for auditing only and is never
// consulted when authenticating a request.
type Session struct {
	ID        string
	UserID    UserID
	TokenHash string // sha256 hex of the issued token
	CreatedAt time.Time
	ExpiresAt time.Time
}
