// internal/domain/auth/entity.go
package auth

import "time"

// Principal is the authenticated identity record.
type Principal struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	SecretHash string    `json:"-" db:"secret_hash"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Role is a named role grantable to principals.
type Role struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// RoleAssignment links a principal to a role.
type RoleAssignment struct {
	PrincipalID string    `json:"principal_id" db:"principal_id"`
	RoleID      int64     `json:"role_id" db:"role_id"`
	AssignedAt  time.Time `json:"assigned_at" db:"assigned_at"`
}

// Session binds one issued credential pair to a principal. A principal may
// hold any number of concurrent sessions. Revocation (Active=false) is
// permanent; expiry is detected lazily, rows are never flipped by a timer.
type Session struct {
	ID             string    `json:"id" db:"id"`
	PrincipalID    string    `json:"principal_id" db:"principal_id"`
	AccessToken    string    `json:"-" db:"access_token"`
	RefreshToken   string    `json:"-" db:"refresh_token"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
}

// Usable reports whether the session can still authenticate requests.
func (s *Session) Usable(now time.Time) bool {
	return s.Active && s.ExpiresAt.After(now)
}
