package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

// EnrichmentEngine decides sign-in admission and derives session claims from the user record.
type EnrichmentEngine struct {
	users         repository.UserRepository
	confirmations repository.TwoFactorConfirmationRepository
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// EnrichmentDependencies encapsulates repo requirements for the engine.
type EnrichmentDependencies struct {
	UserRepo         repository.UserRepository
	ConfirmationRepo repository.TwoFactorConfirmationRepository
	Metrics          *observability.Metrics
	Logger           *zap.Logger
}

// NewEnrichmentEngine builds the engine.
func NewEnrichmentEngine(deps EnrichmentDependencies) *EnrichmentEngine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentEngine{
		users:         deps.UserRepo,
		confirmations: deps.ConfirmationRepo,
		metrics:       deps.Metrics,
		logger:        logger.Named("enrichment"),
		now:           time.Now,
	}
}

// Admit decides whether a sign-in attempt may establish a session.
// OAuth sign-ins are admitted unconditionally. Credential sign-ins require a verified
// email and, when two-factor is enabled, consume the user's confirmation.
// A non-nil error always comes with false.
func (e *EnrichmentEngine) Admit(ctx context.Context, user *domain.User, method domain.AuthMethod) (bool, error) {
	admitted, err := e.admit(ctx, user, method)
	e.metrics.RecordAdmission(string(method), admitted)
	return admitted, err
}

func (e *EnrichmentEngine) admit(ctx context.Context, user *domain.User, method domain.AuthMethod) (bool, error) {
	if method != domain.AuthMethodCredentials {
		return true, nil
	}
	if user == nil || user.ID == "" {
		return false, nil
	}

	existing, err := e.users.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			e.logger.Info("admission denied", zap.String("user_id", user.ID), zap.String("reason", "unknown_user"))
			return false, nil
		}
		return false, fmt.Errorf("load user: %w", err)
	}

	if !existing.IsVerified() {
		e.logger.Info("admission denied", zap.String("user_id", existing.ID), zap.String("reason", "email_unverified"))
		return false, nil
	}
	if !existing.IsTwoFactorEnabled {
		return true, nil
	}

	consumed, err := e.confirmations.ConsumeByUserID(ctx, existing.ID)
	if err != nil {
		return false, fmt.Errorf("consume two-factor confirmation: %w", err)
	}
	if !consumed {
		e.logger.Info("admission denied", zap.String("user_id", existing.ID), zap.String("reason", "two_factor_unconfirmed"))
	}
	return consumed, nil
}

// Refresh re-derives role and two-factor claims from the current user record.
// Claims without a subject pass through unchanged. When the subject no longer resolves
// the subject is kept but no derived claims are carried forward.
func (e *EnrichmentEngine) Refresh(ctx context.Context, claims *auth.Claims) (*auth.Claims, error) {
	if claims == nil || claims.Subject == "" {
		return claims, nil
	}

	next := *claims
	user, err := e.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			next.Role = ""
			next.IsTwoFactorEnabled = false
			return &next, nil
		}
		return nil, fmt.Errorf("load user %s: %w", claims.Subject, err)
	}

	next.Role = user.Role
	next.IsTwoFactorEnabled = user.IsTwoFactorEnabled
	return &next, nil
}

// LinkAccount marks the user's email as verified after an external account is linked.
func (e *EnrichmentEngine) LinkAccount(ctx context.Context, userID string) error {
	if err := e.users.MarkEmailVerified(ctx, userID, e.now().UTC()); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}
