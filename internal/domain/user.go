package domain

import (
	"errors"
	"time"
)

// Role enumerates account permission levels.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// Store-level sentinel errors shared by every UserStore implementation.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is the domain model for an account. PasswordHash and the reset-token
// fields never leave the service boundary; DTOs exclude them.
type User struct {
	ID                     string
	Name                   string
	Email                  string
	Role                   Role
	PasswordHash           string
	PasswordChangedAt      *time.Time
	PasswordResetTokenHash *string
	PasswordResetExpiresAt *time.Time
	Active                 bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// PasswordChangedAfter reports whether the password was rotated after the
// given instant. Tokens issued before a rotation must be rejected.
// Comparison is at second resolution to match JWT issued-at claims.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}
