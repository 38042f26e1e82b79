package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
)

// VerificationTokenRepository manages email verification tokens.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *domain.VerificationToken) error
	GetByEmail(ctx context.Context, email string) (*domain.VerificationToken, error)
	GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error)
	Delete(ctx context.Context, id string) error
}

type verificationTokenRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationTokenRepository constructs repository.
func NewVerificationTokenRepository(pool *pgxpool.Pool) VerificationTokenRepository {
	return &verificationTokenRepository{pool: pool}
}

func (r *verificationTokenRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	const query = `
        INSERT INTO verification_tokens (email, token, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id`
	return r.pool.QueryRow(ctx, query, token.Email, token.Token, token.ExpiresAt).Scan(&token.ID)
}

func (r *verificationTokenRepository) GetByEmail(ctx context.Context, email string) (*domain.VerificationToken, error) {
	const query = `
        SELECT id, email, token, expires_at
        FROM verification_tokens WHERE email=$1
        ORDER BY expires_at DESC LIMIT 1`
	return scanVerificationToken(ctx, r.pool, query, email)
}

func (r *verificationTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.VerificationToken, error) {
	const query = `
        SELECT id, email, token, expires_at
        FROM verification_tokens WHERE token=$1`
	return scanVerificationToken(ctx, r.pool, query, tokenStr)
}

func (r *verificationTokenRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE id=$1`, id)
	return err
}

func scanVerificationToken(ctx context.Context, pool *pgxpool.Pool, query string, arg string) (*domain.VerificationToken, error) {
	var token domain.VerificationToken
	if err := pool.QueryRow(ctx, query, arg).Scan(
		&token.ID,
		&token.Email,
		&token.Token,
		&token.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}
