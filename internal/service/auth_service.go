package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

const (
	verificationTokenTTL  = time.Hour
	passwordResetTokenTTL = time.Hour
)

var (
	// ErrAdmissionDenied is the single error every failed sign-in resolves to.
	ErrAdmissionDenied = errors.New("invalid credentials")
	// ErrOAuthAccountNotLinked is returned when an OAuth identity's email belongs to an unlinked user.
	ErrOAuthAccountNotLinked = errors.New("email already in use with a different provider")
	ErrEmailInUse            = errors.New("email already in use")
	ErrTokenNotFound         = errors.New("token does not exist")
	ErrTokenExpired          = errors.New("token has expired")
	ErrEmailNotFound         = errors.New("email does not exist")
)

// SignInResult is returned by successful sign-ins.
type SignInResult struct {
	User      *domain.User
	Session   domain.Session
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates sign-in, sign-out, registration and email verification.
type AuthService struct {
	users         repository.UserRepository
	accounts      repository.AccountRepository
	verifications repository.VerificationTokenRepository
	resets        repository.PasswordResetRepository
	revocations   repository.RevocationRepository
	engine        *EnrichmentEngine
	tokenMgr      *auth.TokenManager
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	bcryptCost    int
	now           func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo              repository.UserRepository
	AccountRepo           repository.AccountRepository
	VerificationTokenRepo repository.VerificationTokenRepository
	PasswordResetRepo     repository.PasswordResetRepository
	RevocationRepo        repository.RevocationRepository
	Engine                *EnrichmentEngine
	Dispatcher            events.Dispatcher
	Logger                *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg *config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:         deps.UserRepo,
		accounts:      deps.AccountRepo,
		verifications: deps.VerificationTokenRepo,
		resets:        deps.PasswordResetRepo,
		revocations:   deps.RevocationRepo,
		engine:        deps.Engine,
		tokenMgr:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL()),
		dispatcher:    deps.Dispatcher,
		logger:        logger.Named("auth"),
		bcryptCost:    cfg.Auth.BcryptCost,
		now:           time.Now,
	}
}

// LoginWithCredentials authenticates email and password and runs admission.
// Unknown email, wrong password, unverified email and missing two-factor all yield ErrAdmissionDenied.
func (s *AuthService) LoginWithCredentials(ctx context.Context, email, password string) (*SignInResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("credential lookup failed", zap.Error(err))
		}
		auth.VerifyPassword("", password)
		return nil, ErrAdmissionDenied
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrAdmissionDenied
	}

	if !user.IsVerified() {
		if _, err := s.requestVerification(ctx, user); err != nil {
			s.logger.Warn("resend verification token", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return s.signIn(ctx, user, domain.AuthMethodCredentials)
}

// SignInWithOAuth signs in an identity asserted by an upstream OAuth handshake,
// creating and linking the user on first sight.
func (s *AuthService) SignInWithOAuth(ctx context.Context, identity domain.Identity) (*SignInResult, error) {
	if identity.Provider == "" || identity.ProviderAccountID == "" {
		return nil, errors.New("provider and provider account id required")
	}

	user, err := s.resolveOAuthUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, user, domain.AuthMethodOAuth)
}

func (s *AuthService) resolveOAuthUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	account, err := s.accounts.GetByProvider(ctx, identity.Provider, identity.ProviderAccountID)
	if err == nil {
		return s.users.GetByID(ctx, account.UserID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, errors.New("oauth identity has no email")
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrOAuthAccountNotLinked
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user := &domain.User{Name: identity.Name, Email: email, Role: domain.RoleUser}
	link := &domain.Account{Provider: identity.Provider, ProviderAccountID: identity.ProviderAccountID}
	err = s.accounts.CreateUserWithAccount(ctx, user, link)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent first sign-in for the same identity may have won the insert.
		return s.resolveLinkedUser(ctx, identity)
	}
	if err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}

	s.publish(ctx, events.New(events.EventAccountLinked, user.ID, events.AccountLinkedPayload{
		Provider:          identity.Provider,
		ProviderAccountID: identity.ProviderAccountID,
	}))
	return user, nil
}

func (s *AuthService) resolveLinkedUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	account, err := s.accounts.GetByProvider(ctx, identity.Provider, identity.ProviderAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOAuthAccountNotLinked
	}
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, account.UserID)
}

func (s *AuthService) signIn(ctx context.Context, user *domain.User, method domain.AuthMethod) (*SignInResult, error) {
	admitted, err := s.engine.Admit(ctx, user, method)
	if err != nil {
		s.logger.Error("admission failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, ErrAdmissionDenied
	}
	if !admitted {
		return nil, ErrAdmissionDenied
	}

	var claims auth.Claims
	claims.Subject = user.ID
	enriched, err := s.engine.Refresh(ctx, &claims)
	if err != nil {
		s.logger.Error("claim derivation failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, ErrAdmissionDenied
	}
	if !enriched.Enriched() {
		return nil, ErrAdmissionDenied
	}

	token, exp, err := s.tokenMgr.GenerateToken(*enriched)
	if err != nil {
		return nil, err
	}
	session, _ := auth.Project(enriched)

	s.publish(ctx, events.New(events.EventSignedIn, user.ID, events.SignedInPayload{Method: method}))
	return &SignInResult{User: user, Session: session, Token: token, ExpiresAt: exp}, nil
}

// Register creates a credentials user and issues an email verification token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	if _, err := s.requestVerification(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// requestVerification replaces any outstanding token for the user's email with a fresh one.
func (s *AuthService) requestVerification(ctx context.Context, user *domain.User) (*domain.VerificationToken, error) {
	existing, err := s.verifications.GetByEmail(ctx, user.Email)
	switch {
	case err == nil:
		if err := s.verifications.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	token := &domain.VerificationToken{
		Email:     user.Email,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(verificationTokenTTL),
	}
	if err := s.verifications.Create(ctx, token); err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventVerificationRequested, user.ID, events.VerificationRequestedPayload{
		Email:     token.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}))
	return token, nil
}

// VerifyEmail consumes a verification token and marks the owning user verified.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenStr string) error {
	token, err := s.verifications.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return err
	}
	if token.Expired(s.now()) {
		return ErrTokenExpired
	}

	user, err := s.users.GetByEmail(ctx, token.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEmailNotFound
		}
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID, s.now().UTC()); err != nil {
		return err
	}
	return s.verifications.Delete(ctx, token.ID)
}

// RequestPasswordReset issues a reset token for a credentials user. Unknown emails and
// OAuth-only users are ignored so the caller cannot enumerate registered addresses.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if user.PasswordHash == "" {
		s.logger.Info("password reset skipped", zap.String("user_id", user.ID), zap.String("reason", "no_password"))
		return nil
	}

	if err := s.resets.DeleteByEmail(ctx, user.Email); err != nil {
		return err
	}
	token := &domain.PasswordResetToken{
		Email:     user.Email,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(passwordResetTokenTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return err
	}

	s.publish(ctx, events.New(events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Email:     token.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}))
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, password string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return err
	}
	if !token.Usable(s.now()) {
		if token.UsedAt != nil {
			return ErrTokenNotFound
		}
		return ErrTokenExpired
	}

	user, err := s.users.GetByEmail(ctx, token.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEmailNotFound
		}
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	redeemed, err := s.resets.Redeem(ctx, token.ID, user.ID, hash)
	if err != nil {
		return err
	}
	if !redeemed {
		return ErrTokenNotFound
	}

	s.publish(ctx, events.New(events.EventPasswordChanged, user.ID, nil))
	return nil
}

// Logout revokes the token id for the remainder of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.EventSignedOut, claims.Subject, nil))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.String("user_id", event.UserID), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
