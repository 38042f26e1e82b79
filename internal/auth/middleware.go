package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
)

const (
	sessionKey = "auth_session"
	claimsKey  = "auth_claims"
)

// ClaimsRefresher re-derives enriched claims from the user record.
type ClaimsRefresher interface {
	Refresh(ctx context.Context, claims *Claims) (*Claims, error)
}

// RevocationChecker reports whether a token id was signed out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// SessionMiddleware resolves the session for every request. It never rejects a request;
// a missing, invalid, revoked or stale token simply leaves the request without a session.
type SessionMiddleware struct {
	tokens      *TokenManager
	refresher   ClaimsRefresher
	revocations RevocationChecker
	cookies     CookieOptions
	logger      *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, refresher ClaimsRefresher, revocations RevocationChecker, cookies CookieOptions, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:      tokens,
		refresher:   refresher,
		revocations: revocations,
		cookies:     cookies,
		logger:      logger,
	}
}

// Handle parses the token, refreshes its claims and stores the projected session.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	raw, fromCookie := m.tokenFromRequest(c)
	if raw == "" {
		return c.Next()
	}

	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		m.logger.Debug("discarding invalid session token", zap.Error(err))
		m.drop(c, fromCookie)
		return c.Next()
	}

	ctx := c.UserContext()
	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		m.logger.Error("revocation lookup failed", zap.String("jti", claims.ID), zap.Error(err))
		return c.Next()
	}
	if revoked {
		m.drop(c, fromCookie)
		return c.Next()
	}

	refreshed, err := m.refresher.Refresh(ctx, claims)
	if err != nil {
		m.logger.Error("session refresh failed", zap.String("sub", claims.Subject), zap.Error(err))
		return c.Next()
	}
	if !refreshed.Enriched() {
		m.logger.Info("session subject no longer resolves", zap.String("sub", claims.Subject))
		m.drop(c, fromCookie)
		return c.Next()
	}

	if fromCookie && !refreshed.SameEnrichment(claims) {
		if token, err := m.tokens.ReissueToken(refreshed); err != nil {
			m.logger.Warn("reissue session token", zap.Error(err))
		} else {
			SetSessionCookie(c, m.cookies, token, refreshed.ExpiresAt.Time)
		}
	}

	session, _ := Project(refreshed)
	c.Locals(sessionKey, &session)
	c.Locals(claimsKey, refreshed)
	return c.Next()
}

func (m *SessionMiddleware) tokenFromRequest(c *fiber.Ctx) (string, bool) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}
	return c.Cookies(m.cookies.Name), true
}

func (m *SessionMiddleware) drop(c *fiber.Ctx, fromCookie bool) {
	if fromCookie {
		ClearSessionCookie(c, m.cookies)
	}
}

// SessionFromContext retrieves the resolved session, if any.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	session, ok := c.Locals(sessionKey).(*domain.Session)
	return session, ok && session != nil
}

// ClaimsFromContext retrieves the refreshed claims backing the session.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
