package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

func verifiedAt() *time.Time {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &ts
}

func newEngine(users *fakeUsers, confirmations *fakeConfirmations) *EnrichmentEngine {
	return NewEnrichmentEngine(EnrichmentDependencies{
		UserRepo:         users,
		ConfirmationRepo: confirmations,
		Metrics:          observability.NewMetrics(),
	})
}

func TestAdmit_OAuthIgnoresVerificationAndTwoFactor(t *testing.T) {
	users := newFakeUsers(&domain.User{ID: "u1", Role: domain.RoleUser, IsTwoFactorEnabled: true})
	confirmations := newFakeConfirmations()
	engine := newEngine(users, confirmations)

	admitted, err := engine.Admit(context.Background(), &domain.User{ID: "u1"}, domain.AuthMethodOAuth)

	require.NoError(t, err)
	assert.True(t, admitted)
	assert.Zero(t, confirmations.deletes)
}

func TestAdmit_Credentials(t *testing.T) {
	tests := []struct {
		name          string
		user          *domain.User
		confirmations []string
		want          bool
		wantDeletes   int
	}{
		{
			name: "unverified email",
			user: &domain.User{ID: "u1", Role: domain.RoleUser},
			want: false,
		},
		{
			name: "verified without two-factor",
			user: &domain.User{ID: "u1", Role: domain.RoleUser, EmailVerified: verifiedAt()},
			want: true,
		},
		{
			name:          "verified without two-factor leaves confirmation alone",
			user:          &domain.User{ID: "u1", Role: domain.RoleUser, EmailVerified: verifiedAt()},
			confirmations: []string{"u1"},
			want:          true,
		},
		{
			name: "two-factor without confirmation",
			user: &domain.User{ID: "u1", Role: domain.RoleUser, EmailVerified: verifiedAt(), IsTwoFactorEnabled: true},
			want: false,
		},
		{
			name:          "two-factor with confirmation",
			user:          &domain.User{ID: "u1", Role: domain.RoleUser, EmailVerified: verifiedAt(), IsTwoFactorEnabled: true},
			confirmations: []string{"u1"},
			want:          true,
			wantDeletes:   1,
		},
		{
			name:          "unverified with two-factor keeps confirmation",
			user:          &domain.User{ID: "u1", Role: domain.RoleUser, IsTwoFactorEnabled: true},
			confirmations: []string{"u1"},
			want:          false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirmations := newFakeConfirmations(tt.confirmations...)
			engine := newEngine(newFakeUsers(tt.user), confirmations)

			admitted, err := engine.Admit(context.Background(), &domain.User{ID: tt.user.ID}, domain.AuthMethodCredentials)

			require.NoError(t, err)
			assert.Equal(t, tt.want, admitted)
			assert.Equal(t, tt.wantDeletes, confirmations.deletes)
		})
	}
}

func TestAdmit_CredentialsUsesAuthoritativeRecord(t *testing.T) {
	stored := &domain.User{ID: "u1", Role: domain.RoleUser}
	engine := newEngine(newFakeUsers(stored), newFakeConfirmations())

	candidate := &domain.User{ID: "u1", EmailVerified: verifiedAt()}
	admitted, err := engine.Admit(context.Background(), candidate, domain.AuthMethodCredentials)

	require.NoError(t, err)
	assert.False(t, admitted)
}

func TestAdmit_UnknownUser(t *testing.T) {
	engine := newEngine(newFakeUsers(), newFakeConfirmations())

	admitted, err := engine.Admit(context.Background(), &domain.User{ID: "ghost"}, domain.AuthMethodCredentials)
	require.NoError(t, err)
	assert.False(t, admitted)

	admitted, err = engine.Admit(context.Background(), nil, domain.AuthMethodCredentials)
	require.NoError(t, err)
	assert.False(t, admitted)
}

func TestAdmit_FailsClosedOnStoreErrors(t *testing.T) {
	t.Run("user lookup", func(t *testing.T) {
		users := newFakeUsers()
		users.err = errors.New("connection refused")
		engine := newEngine(users, newFakeConfirmations())

		admitted, err := engine.Admit(context.Background(), &domain.User{ID: "u1"}, domain.AuthMethodCredentials)
		assert.Error(t, err)
		assert.False(t, admitted)
	})

	t.Run("confirmation delete", func(t *testing.T) {
		users := newFakeUsers(&domain.User{ID: "u1", EmailVerified: verifiedAt(), IsTwoFactorEnabled: true})
		confirmations := newFakeConfirmations("u1")
		confirmations.err = errors.New("timeout")
		engine := newEngine(users, confirmations)

		admitted, err := engine.Admit(context.Background(), &domain.User{ID: "u1"}, domain.AuthMethodCredentials)
		assert.Error(t, err)
		assert.False(t, admitted)
	})

	t.Run("cancelled context", func(t *testing.T) {
		users := newFakeUsers()
		users.err = context.DeadlineExceeded
		engine := newEngine(users, newFakeConfirmations())

		admitted, err := engine.Admit(context.Background(), &domain.User{ID: "u1"}, domain.AuthMethodCredentials)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, admitted)
	})
}

func TestAdmit_ConfirmationConsumedOnce(t *testing.T) {
	users := newFakeUsers(&domain.User{ID: "u1", Role: domain.RoleUser, EmailVerified: verifiedAt(), IsTwoFactorEnabled: true})
	confirmations := newFakeConfirmations("u1")
	engine := newEngine(users, confirmations)

	const attempts = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := engine.Admit(context.Background(), &domain.User{ID: "u1"}, domain.AuthMethodCredentials)
			if err == nil && ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, confirmations.deletes)
}

func TestRefresh(t *testing.T) {
	users := newFakeUsers(&domain.User{ID: "u1", Role: domain.RoleAdmin, IsTwoFactorEnabled: true})
	engine := newEngine(users, newFakeConfirmations())
	ctx := context.Background()

	t.Run("no subject passes through", func(t *testing.T) {
		in := &auth.Claims{Role: domain.RoleUser}
		out, err := engine.Refresh(ctx, in)
		require.NoError(t, err)
		assert.Same(t, in, out)
	})

	t.Run("overwrites claims from record", func(t *testing.T) {
		in := &auth.Claims{Role: domain.RoleUser}
		in.Subject = "u1"
		out, err := engine.Refresh(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, out.Role)
		assert.True(t, out.IsTwoFactorEnabled)
		assert.Equal(t, domain.RoleUser, in.Role)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := &auth.Claims{}
		in.Subject = "u1"
		first, err := engine.Refresh(ctx, in)
		require.NoError(t, err)
		second, err := engine.Refresh(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("propagates record changes", func(t *testing.T) {
		in := &auth.Claims{}
		in.Subject = "u1"
		before, err := engine.Refresh(ctx, in)
		require.NoError(t, err)

		users.set(&domain.User{ID: "u1", Role: domain.RoleUser, IsTwoFactorEnabled: false})
		after, err := engine.Refresh(ctx, before)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, after.Role)
		assert.False(t, after.IsTwoFactorEnabled)
	})
}

func TestRefresh_DeletedUser(t *testing.T) {
	users := newFakeUsers(&domain.User{ID: "u1", Role: domain.RoleAdmin, IsTwoFactorEnabled: true})
	engine := newEngine(users, newFakeConfirmations())
	ctx := context.Background()

	in := &auth.Claims{}
	in.Subject = "u1"
	issued, err := engine.Refresh(ctx, in)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, issued.Role)

	users.remove("u1")
	refreshed, err := engine.Refresh(ctx, issued)
	require.NoError(t, err)

	assert.Equal(t, "u1", refreshed.Subject)
	assert.False(t, refreshed.Enriched())
	session, _ := auth.Project(refreshed)
	assert.Empty(t, session.Role)
}

func TestRefresh_StoreError(t *testing.T) {
	users := newFakeUsers()
	users.err = errors.New("db down")
	engine := newEngine(users, newFakeConfirmations())

	in := &auth.Claims{Role: domain.RoleAdmin}
	in.Subject = "u1"
	out, err := engine.Refresh(context.Background(), in)
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestLinkAccount(t *testing.T) {
	users := newFakeUsers(&domain.User{ID: "u1"})
	engine := newEngine(users, newFakeConfirmations())

	require.NoError(t, engine.LinkAccount(context.Background(), "u1"))
	require.NoError(t, engine.LinkAccount(context.Background(), "u1"))

	u, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.IsVerified())
	assert.Error(t, engine.LinkAccount(context.Background(), "missing"))
}
