package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationPrefix = "session:revoked:"

// RevocationRepository records signed-out token ids until they would have expired anyway.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type revocationRepository struct {
	client *redis.Client
}

// NewRevocationRepository returns a Redis-backed implementation.
func NewRevocationRepository(client *redis.Client) RevocationRepository {
	return &revocationRepository{client: client}
}

func (r *revocationRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("revocation: missing token id")
	}
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revocationPrefix+tokenID, 1, ttl).Err()
}

func (r *revocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revocationPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
