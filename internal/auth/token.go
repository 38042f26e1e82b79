package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// ClaimsVersion is bumped whenever the claim schema changes shape.
const ClaimsVersion = 1

// TokenManager handles issuing and validating session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims is the session token payload. The subject lives in RegisteredClaims.Subject ("sub").
type Claims struct {
	Role               domain.Role `json:"role,omitempty"`
	IsTwoFactorEnabled bool        `json:"isTwoFactorEnabled"`
	Version            int         `json:"ver"`
	jwt.RegisteredClaims
}

// Enriched reports whether the claims carry a subject with derived user claims.
func (c *Claims) Enriched() bool {
	return c != nil && c.Subject != "" && c.Role != ""
}

// SameEnrichment reports whether both claim sets carry identical derived claims.
func (c *Claims) SameEnrichment(other *Claims) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Subject == other.Subject &&
		c.Role == other.Role &&
		c.IsTwoFactorEnabled == other.IsTwoFactorEnabled
}

// GenerateToken signs a fresh token for claims, assigning id, issue and expiry times.
func (tm *TokenManager) GenerateToken(claims Claims) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims.Version = ClaimsVersion
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	signed, err := tm.sign(&claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ReissueToken re-signs refreshed claims keeping the original id and expiry.
func (tm *TokenManager) ReissueToken(claims *Claims) (string, error) {
	if claims == nil || claims.ExpiresAt == nil {
		return "", errors.New("claims missing expiry")
	}
	next := *claims
	next.Version = ClaimsVersion
	return tm.sign(&next)
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Version != ClaimsVersion {
		return nil, errors.New("unsupported claims version")
	}
	return claims, nil
}

// TTL returns the lifetime of freshly issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

func (tm *TokenManager) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}
