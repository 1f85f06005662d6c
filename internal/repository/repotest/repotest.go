// Package repotest provides in-memory repositories for tests. They enforce the
// same uniqueness and not-found contracts as the CouchDB implementations.
package repotest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/repository"
)

type AccountRepository struct {
	mu        sync.Mutex
	accounts  map[string]*domain.Account
	usernames map[string]string
	emails    map[string]string

	// CreateErr, when set, is returned by Create before anything is stored.
	CreateErr error
	// DeleteErr, when set, is returned by Delete.
	DeleteErr error
	Deleted   []string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:  make(map[string]*domain.Account),
		usernames: make(map[string]string),
		emails:    make(map[string]string),
	}
}

func (m *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, taken := m.usernames[account.Username]; taken {
		return &repository.DuplicateKeyError{Field: "username", Value: account.Username}
	}
	email := strings.ToLower(account.Email)
	if _, taken := m.emails[email]; taken {
		return &repository.DuplicateKeyError{Field: "email", Value: account.Email}
	}

	account.Kind = domain.KindAccount
	stored := *account
	m.accounts[account.ID] = &stored
	m.usernames[account.Username] = account.ID
	m.emails[email] = account.ID
	return nil
}

func (m *AccountRepository) FindByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *account
	return &found, nil
}

func (m *AccountRepository) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.usernames[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *m.accounts[id]
	return &found, nil
}

func (m *AccountRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.accounts, id)
	delete(m.usernames, account.Username)
	delete(m.emails, strings.ToLower(account.Email))
	m.Deleted = append(m.Deleted, id)
	return nil
}

// Count reports how many accounts are stored.
func (m *AccountRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

type ProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile

	CreateErr error
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{profiles: make(map[string]*domain.Profile)}
}

func (m *ProfileRepository) Create(_ context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, exists := m.profiles[profile.AccountID]; exists {
		return &repository.DuplicateKeyError{Field: "detilUid", Value: profile.AccountID}
	}
	stored := *profile
	m.profiles[profile.AccountID] = &stored
	return nil
}

func (m *ProfileRepository) FindByAccountID(_ context.Context, accountID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *profile
	return &found, nil
}

func (m *ProfileRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.profiles)
}

type ChatSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.ChatSession

	// Conflicts is the number of AppendMessage calls that fail with
	// repository.ErrConflict before one succeeds.
	Conflicts   int
	AppendCalls int
}

func NewChatSessionRepository() *ChatSessionRepository {
	return &ChatSessionRepository{sessions: make(map[string]*domain.ChatSession)}
}

func clone(s *domain.ChatSession) *domain.ChatSession {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	return &c
}

func (m *ChatSessionRepository) Create(_ context.Context, session *domain.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.ID] = clone(session)
	return nil
}

func (m *ChatSessionRepository) FindByID(_ context.Context, id string) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(session), nil
}

func (m *ChatSessionRepository) ListByUser(_ context.Context, userID string) ([]*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := []*domain.ChatSession{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			sessions = append(sessions, clone(s))
		}
	}
	slices.SortStableFunc(sessions, func(a, b *domain.ChatSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return sessions, nil
}

func (m *ChatSessionRepository) AppendMessage(_ context.Context, id string, msg domain.ChatMessage) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCalls++
	session, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.Conflicts > 0 {
		m.Conflicts--
		return nil, repository.ErrConflict
	}
	session.Messages = append(session.Messages, msg)
	session.UpdatedAt = msg.Timestamp
	return clone(session), nil
}

func (m *ChatSessionRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

type RevocationRepository struct {
	mu      sync.Mutex
	revoked map[string]time.Time

	// Err, when set, is returned by every call.
	Err error
	// Lookups counts ExpiresAt calls.
	Lookups int
}

func NewRevocationRepository() *RevocationRepository {
	return &RevocationRepository{revoked: make(map[string]time.Time)}
}

func (m *RevocationRepository) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.revoked[jti]; !exists {
		m.revoked[jti] = expiresAt
	}
	return nil
}

func (m *RevocationRepository) ExpiresAt(_ context.Context, jti string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Lookups++
	if m.Err != nil {
		return time.Time{}, false, m.Err
	}
	expiresAt, ok := m.revoked[jti]
	return expiresAt, ok, nil
}

func (m *RevocationRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	deleted := 0
	for jti, expiresAt := range m.revoked {
		if expiresAt.Before(cutoff) {
			delete(m.revoked, jti)
			deleted++
		}
	}
	return deleted, nil
}

// Count reports how many revocations are stored.
func (m *RevocationRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revoked)
}

var (
	_ repository.AccountRepository     = (*AccountRepository)(nil)
	_ repository.ProfileRepository     = (*ProfileRepository)(nil)
	_ repository.ChatSessionRepository = (*ChatSessionRepository)(nil)
	_ repository.RevocationRepository  = (*RevocationRepository)(nil)
)
