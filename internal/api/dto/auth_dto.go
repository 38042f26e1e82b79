package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/auth-service/internal/domain"
)

// MinPasswordLength is the shortest password accepted on registration and reset.
const MinPasswordLength = 6

var passwordRules = []validation.Rule{
	validation.Required.Error("Password is required"),
	validation.Length(MinPasswordLength, 0).Error("Minimum 6 characters required"),
}

// LoginRequest payload for credentials sign-in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login payload.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("Email is required"), is.Email.Error("Email is required")),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration payload.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("Name is required")),
		validation.Field(&r.Email, validation.Required.Error("Email is required"), is.Email.Error("Email is required")),
		validation.Field(&r.Password, passwordRules...),
	)
}

// OAuthCallbackRequest is the identity asserted by the upstream OAuth bridge.
type OAuthCallbackRequest struct {
	ProviderAccountID string `json:"providerAccountId"`
	Email             string `json:"email"`
	Name              string `json:"name"`
}

// Validate checks the asserted identity.
func (r OAuthCallbackRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProviderAccountID, validation.Required),
		validation.Field(&r.Email, is.Email),
	)
}

// NewVerificationRequest payload for email verification.
type NewVerificationRequest struct {
	Token string `json:"token"`
}

// AuthResponse standard response for sign-in endpoints.
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Session   domain.Session `json:"user"`
}

// SessionResponse is the body of GET /api/auth/session.
type SessionResponse struct {
	User    *domain.Session `json:"user"`
	Expires *time.Time      `json:"expires,omitempty"`
}

// MessageResponse carries the user-facing success message.
type MessageResponse struct {
	Success string `json:"success"`
}

// ResetRequest payload for requesting a password reset.
type ResetRequest struct {
	Email string `json:"email"`
}

// NewPasswordRequest payload for completing a password reset.
type NewPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Validate checks the reset payload.
func (r ResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("Email is required"), is.Email.Error("Email is required")),
	)
}

// Validate checks the new password payload.
func (r NewPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required.Error("Missing token!")),
		validation.Field(&r.Password, passwordRules...),
	)
}
