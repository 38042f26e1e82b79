package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
)

// AccountRepository manages links between users and external identity providers.
type AccountRepository interface {
	// CreateUserWithAccount inserts the user and its first linked account atomically.
	// It returns ErrDuplicate, with nothing written, when either the email or the
	// provider identity already exists.
	CreateUserWithAccount(ctx context.Context, user *domain.User, account *domain.Account) error
	GetByProvider(ctx context.Context, provider, providerAccountID string) (*domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository constructs repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) CreateUserWithAccount(ctx context.Context, user *domain.User, account *domain.Account) error {
	const linkQuery = `
        INSERT INTO accounts (user_id, provider, provider_account_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (provider, provider_account_id) DO NOTHING
        RETURNING id, created_at`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		account.UserID = user.ID
		err := tx.QueryRow(ctx, linkQuery,
			account.UserID,
			account.Provider,
			account.ProviderAccountID,
		).Scan(&account.ID, &account.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicate
		}
		return err
	})
}

func (r *accountRepository) GetByProvider(ctx context.Context, provider, providerAccountID string) (*domain.Account, error) {
	const query = `
        SELECT id, user_id, provider, provider_account_id, created_at
        FROM accounts WHERE provider=$1 AND provider_account_id=$2`

	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, provider, providerAccountID).Scan(
		&account.ID,
		&account.UserID,
		&account.Provider,
		&account.ProviderAccountID,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
