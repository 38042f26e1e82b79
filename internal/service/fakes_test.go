package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	seq   int
	err   error
	marks int
	// staleEmails makes GetByEmail miss, as a lookup racing a concurrent insert would.
	staleEmails bool
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return f.insertLocked(user)
}

func (f *fakeUsers) insertLocked(user *domain.User) error {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	f.seq++
	user.ID = "generated-" + strconv.Itoa(f.seq)
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.staleEmails {
		return nil, pgx.ErrNoRows
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.EmailVerified = &at
	f.marks++
	return nil
}

func (f *fakeUsers) set(u *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUsers) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

type fakeConfirmations struct {
	mu      sync.Mutex
	live    map[string]bool
	deletes int
	err     error
}

func newFakeConfirmations(userIDs ...string) *fakeConfirmations {
	f := &fakeConfirmations{live: map[string]bool{}}
	for _, id := range userIDs {
		f.live[id] = true
	}
	return f
}

func (f *fakeConfirmations) ConsumeByUserID(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if !f.live[userID] {
		return false, nil
	}
	delete(f.live, userID)
	f.deletes++
	return true, nil
}

type fakeAccounts struct {
	mu       sync.Mutex
	users    *fakeUsers
	accounts map[string]*domain.Account
	err      error
	misses   int
}

func newFakeAccounts(users *fakeUsers) *fakeAccounts {
	return &fakeAccounts{users: users, accounts: map[string]*domain.Account{}}
}

// CreateUserWithAccount writes nothing when it fails, like the transactional repository.
func (f *fakeAccounts) CreateUserWithAccount(_ context.Context, user *domain.User, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := account.Provider + "|" + account.ProviderAccountID
	if _, ok := f.accounts[key]; ok {
		return repository.ErrDuplicate
	}
	f.users.mu.Lock()
	err := f.users.insertLocked(user)
	f.users.mu.Unlock()
	if err != nil {
		return err
	}
	account.UserID = user.ID
	account.ID = "acc-" + key
	cp := *account
	f.accounts[key] = &cp
	return nil
}

func (f *fakeAccounts) link(account domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[account.Provider+"|"+account.ProviderAccountID] = &account
}

func (f *fakeAccounts) GetByProvider(_ context.Context, provider, providerAccountID string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.misses > 0 {
		f.misses--
		return nil, pgx.ErrNoRows
	}
	a, ok := f.accounts[provider+"|"+providerAccountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

type fakeVerifications struct {
	mu     sync.Mutex
	tokens map[string]*domain.VerificationToken
	seq    int
}

func newFakeVerifications() *fakeVerifications {
	return &fakeVerifications{tokens: map[string]*domain.VerificationToken{}}
}

func (f *fakeVerifications) Create(_ context.Context, token *domain.VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token.ID = "vt-" + strconv.Itoa(f.seq)
	cp := *token
	f.tokens[token.ID] = &cp
	return nil
}

func (f *fakeVerifications) GetByEmail(_ context.Context, email string) (*domain.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Email == email {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeVerifications) GetByToken(_ context.Context, token string) (*domain.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeVerifications) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, id)
	return nil
}

func (f *fakeVerifications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: map[string]time.Duration{}}
}

func (f *fakeRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = ttl
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[tokenID]
	return ok, nil
}

type fakeResets struct {
	mu     sync.Mutex
	users  *fakeUsers
	tokens map[string]*domain.PasswordResetToken
	seq    int
	err    error
}

func newFakeResets(users *fakeUsers) *fakeResets {
	return &fakeResets{users: users, tokens: map[string]*domain.PasswordResetToken{}}
}

func (f *fakeResets) Create(_ context.Context, token *domain.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token.ID = "prt-" + strconv.Itoa(f.seq)
	cp := *token
	f.tokens[token.ID] = &cp
	return nil
}

func (f *fakeResets) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// Redeem leaves both the token and the password untouched when it fails.
func (f *fakeResets) Redeem(_ context.Context, tokenID, userID, passwordHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	t, ok := f.tokens[tokenID]
	if !ok || t.UsedAt != nil {
		return false, nil
	}
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	u, ok := f.users.byID[userID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	u.PasswordHash = passwordHash
	now := time.Now()
	t.UsedAt = &now
	return true, nil
}

func (f *fakeResets) DeleteByEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.tokens {
		if t.Email == email {
			delete(f.tokens, id)
		}
	}
	return nil
}

func (f *fakeResets) only() *domain.PasswordResetToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		cp := *t
		return &cp
	}
	return nil
}
