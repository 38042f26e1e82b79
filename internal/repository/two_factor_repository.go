package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TwoFactorConfirmationRepository consumes single-use two-factor confirmations.
// Confirmations are created by the code-submission flow, which lives outside this service.
type TwoFactorConfirmationRepository interface {
	// ConsumeByUserID deletes the user's confirmation and reports whether one existed.
	// Of any number of concurrent callers, at most one observes true.
	ConsumeByUserID(ctx context.Context, userID string) (bool, error)
}

type twoFactorConfirmationRepository struct {
	pool *pgxpool.Pool
}

// NewTwoFactorConfirmationRepository constructs repository.
func NewTwoFactorConfirmationRepository(pool *pgxpool.Pool) TwoFactorConfirmationRepository {
	return &twoFactorConfirmationRepository{pool: pool}
}

func (r *twoFactorConfirmationRepository) ConsumeByUserID(ctx context.Context, userID string) (bool, error) {
	const query = `
        DELETE FROM two_factor_confirmations
        WHERE user_id=$1
        RETURNING id`

	var id string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
