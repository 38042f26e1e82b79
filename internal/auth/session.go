package auth

import "github.com/spec-kit/auth-service/internal/domain"

// Project builds the request-facing session from token claims. It never touches the store.
// The boolean is false when the claims carry no subject.
func Project(claims *Claims) (domain.Session, bool) {
	var session domain.Session
	if claims == nil || claims.Subject == "" {
		return session, false
	}

	session.UserID = claims.Subject
	if claims.Role != "" {
		session.Role = claims.Role
	}
	session.IsTwoFactorEnabled = claims.IsTwoFactorEnabled
	return session, true
}
