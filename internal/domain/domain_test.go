package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRole(t *testing.T) {
	tests := []struct {
		role           Role
		valid          bool
		selfAssignable bool
	}{
		{RoleDonatur, true, true},
		{RoleKomunitas, true, true},
		{RoleAdmin, true, false},
		{Role("superuser"), false, false},
		{Role(""), false, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.role.Valid(), string(tt.role))
		assert.Equal(t, tt.selfAssignable, tt.role.SelfAssignable(), string(tt.role))
	}
}

func TestAccountToPublicOmitsHash(t *testing.T) {
	account := &Account{ID: "1", Username: "alice", Email: "a@x.com", PasswordHash: "$2a$10$x", Role: RoleDonatur}

	public := account.ToPublic()

	assert.Equal(t, "alice", public.Username)
	assert.Equal(t, RoleDonatur, public.Role)

	raw, err := json.Marshal(public)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"_id":"1"`)
	assert.NotContains(t, string(raw), "$2a$10$x")
	assert.NotContains(t, string(raw), `"kind"`)
}

func TestCallerCanAccess(t *testing.T) {
	owner := Caller{AccountID: "u1", Role: RoleDonatur}
	other := Caller{AccountID: "u2", Role: RoleKomunitas}
	admin := Caller{AccountID: "u3", Role: RoleAdmin}

	assert.True(t, owner.CanAccess("u1"))
	assert.False(t, other.CanAccess("u1"))
	assert.True(t, admin.CanAccess("u1"))
}

func TestStorageErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("register: %w", &StorageError{Op: "create account", Err: cause})

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewProfileDefaults(t *testing.T) {
	p := NewProfile("acc-1", "", "", time.Time{})

	assert.Equal(t, "acc-1", p.AccountID)
	assert.NotNil(t, p.Bookmarks)
	assert.Empty(t, p.Bookmarks)
	assert.Empty(t, p.Bio)
}

func TestClientBodiesCarryNoStorageKind(t *testing.T) {
	profile, err := json.Marshal(NewProfile("acc-1", "Alice", "", time.Now()))
	assert.NoError(t, err)
	assert.NotContains(t, string(profile), `"kind"`)

	session, err := json.Marshal(&ChatSession{ID: "s-1", UserID: "acc-1", Title: DefaultChatTitle})
	assert.NoError(t, err)
	assert.NotContains(t, string(session), `"kind"`)
}
