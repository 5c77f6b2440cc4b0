// Package accountstest provides an in-memory accounts.Store for tests.
package accountstest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gamelog/services/accounts"
)

// MemStore is a goroutine-safe in-memory accounts.Store. Token consumption
// happens under one lock, matching the conditional update of the SQL store.
type MemStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]accounts.Account
	games    map[uuid.UUID]int64

	// Err, when set, is returned by every call.
	Err error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[uuid.UUID]accounts.Account),
		games:    make(map[uuid.UUID]int64),
	}
}

// Put stores account as-is, bypassing uniqueness checks.
func (m *MemStore) Put(account accounts.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

// Get returns the stored account, if any.
func (m *MemStore) Get(id uuid.UUID) (accounts.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	return a, ok
}

// SetGameCount sets the number of games CountGames reports for id.
func (m *MemStore) SetGameCount(id uuid.UUID, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[id] = n
}

func (m *MemStore) Create(_ context.Context, account accounts.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, existing := range m.accounts {
		if existing.Email == account.Email {
			return accounts.ErrEmailTaken
		}
		if existing.Username != nil && account.Username != nil && *existing.Username == *account.Username {
			return accounts.ErrUsernameTaken
		}
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *MemStore) ByEmail(_ context.Context, email string) (accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return accounts.Account{}, m.Err
	}
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return accounts.Account{}, accounts.ErrNotFound
}

func (m *MemStore) ByID(_ context.Context, id uuid.UUID) (accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return accounts.Account{}, m.Err
	}
	a, ok := m.accounts[id]
	if !ok {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return a, nil
}

func (m *MemStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.ByEmail(ctx, email)
	if err == accounts.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *MemStore) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for _, a := range m.accounts {
		if a.Username != nil && *a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) ConsumeVerificationToken(_ context.Context, token string, now time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return uuid.Nil, m.Err
	}
	for id, a := range m.accounts {
		if live(a.EmailVerificationToken, a.EmailVerificationTokenExpiry, token, now) {
			a.IsEmailVerified = true
			a.EmailVerificationToken = nil
			a.EmailVerificationTokenExpiry = nil
			a.UpdatedAt = now
			m.accounts[id] = a
			return id, nil
		}
	}
	return uuid.Nil, accounts.ErrTokenInvalid
}

func (m *MemStore) SetResetToken(_ context.Context, id uuid.UUID, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	a, ok := m.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	a.ResetToken = &token
	a.ResetTokenExpiry = &expiry
	m.accounts[id] = a
	return nil
}

func (m *MemStore) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return uuid.Nil, m.Err
	}
	for id, a := range m.accounts {
		if live(a.ResetToken, a.ResetTokenExpiry, token, now) {
			a.PasswordHash = passwordHash
			a.ResetToken = nil
			a.ResetTokenExpiry = nil
			a.UpdatedAt = now
			m.accounts[id] = a
			return id, nil
		}
	}
	return uuid.Nil, accounts.ErrTokenInvalid
}

func (m *MemStore) SetProfilePicture(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	a, ok := m.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	a.ProfilePicURL = url
	m.accounts[id] = a
	return nil
}

func (m *MemStore) CountGames(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.games[id], nil
}

func (m *MemStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.accounts[id]; !ok {
		return accounts.ErrNotFound
	}
	delete(m.accounts, id)
	delete(m.games, id)
	return nil
}

func live(stored *string, expiry *time.Time, token string, now time.Time) bool {
	return token != "" && stored != nil && *stored == token && expiry != nil && expiry.After(now)
}

var _ accounts.Store = (*MemStore)(nil)
