package domain

import "time"

// Role is the authorization role carried in session claims.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the authoritative identity record. Claims are always derived from it.
type User struct {
	ID                 string
	Name               string
	Email              string
	EmailVerified      *time.Time
	PasswordHash       string
	Role               Role
	IsTwoFactorEnabled bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsVerified reports whether the user's email ownership has been confirmed.
func (u *User) IsVerified() bool {
	return u != nil && u.EmailVerified != nil
}

// Account links a user to an external identity provider.
type Account struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	CreatedAt         time.Time
}

// VerificationToken proves ownership of an email address.
type VerificationToken struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TwoFactorConfirmation is a single-use proof that a second factor was validated.
type TwoFactorConfirmation struct {
	ID     string
	UserID string
}

// PasswordResetToken is a single-use token allowing a credentials user to choose a new password.
type PasswordResetToken struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token is unused and unexpired at now.
func (t PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
