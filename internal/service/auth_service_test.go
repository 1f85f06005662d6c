package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/repository/repotest"
	"ummahbook-server/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "auth-service-test-secret"

type authFixture struct {
	accounts *repotest.AccountRepository
	profiles *repotest.ProfileRepository
	denyList *mockDenyList
	service  *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		accounts: repotest.NewAccountRepository(),
		profiles: repotest.NewProfileRepository(),
		denyList: newMockDenyList(),
	}
	f.service = NewAuthService(f.accounts, f.profiles, f.denyList, testSecret, 72*time.Hour, discardLogger())
	return f
}

func aliceRequest() *domain.RegisterRequest {
	return &domain.RegisterRequest{
		Username:    "alice",
		Email:       "a@x.com",
		Password:    "secret1",
		Role:        domain.RoleDonatur,
		DisplayName: "Alice",
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and profile", func(t *testing.T) {
		f := newAuthFixture()

		resp, err := f.service.Register(ctx, aliceRequest())
		require.NoError(t, err)

		assert.Equal(t, RegisterSuccessMessage, resp.Message)
		assert.NotEmpty(t, resp.User.ID)
		assert.Equal(t, "alice", resp.User.Username)
		assert.Equal(t, domain.RoleDonatur, resp.User.Role)
		assert.Equal(t, resp.User.ID, resp.Profile.AccountID)
		assert.Equal(t, "Alice", resp.Profile.DisplayName)

		stored, err := f.accounts.FindByID(ctx, resp.User.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "secret1", stored.PasswordHash)
		assert.Equal(t, 1, f.profiles.Count())
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.service.Register(ctx, aliceRequest())
		require.NoError(t, err)

		req := aliceRequest()
		req.Email = "other@x.com"
		_, err = f.service.Register(ctx, req)

		var dup *domain.DuplicateIdentityError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "username", dup.Field)
		assert.Equal(t, 1, f.accounts.Count())
	})

	t.Run("duplicate email ignores case", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.service.Register(ctx, aliceRequest())
		require.NoError(t, err)

		req := aliceRequest()
		req.Username = "alice2"
		req.Email = "A@X.com"
		_, err = f.service.Register(ctx, req)

		var dup *domain.DuplicateIdentityError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "email", dup.Field)
	})

	t.Run("admin role is refused", func(t *testing.T) {
		f := newAuthFixture()
		req := aliceRequest()
		req.Role = domain.RoleAdmin

		_, err := f.service.Register(ctx, req)
		assert.ErrorIs(t, err, domain.ErrRoleNotAllowed)
		assert.Equal(t, 0, f.accounts.Count())
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newAuthFixture()
		req := aliceRequest()
		req.Role = "superuser"

		_, err := f.service.Register(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newAuthFixture()
		req := aliceRequest()
		req.Password = ""

		_, err := f.service.Register(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("account store failure", func(t *testing.T) {
		f := newAuthFixture()
		f.accounts.CreateErr = errors.New("couch unavailable")

		_, err := f.service.Register(ctx, aliceRequest())
		assert.ErrorIs(t, err, domain.ErrStorageFailure)
		assert.Equal(t, 0, f.profiles.Count())
	})

	t.Run("profile failure rolls back account", func(t *testing.T) {
		f := newAuthFixture()
		f.profiles.CreateErr = errors.New("disk full")

		_, err := f.service.Register(ctx, aliceRequest())
		assert.ErrorIs(t, err, domain.ErrStorageFailure)
		assert.Equal(t, 0, f.accounts.Count())
		assert.Len(t, f.accounts.Deleted, 1)

		f.profiles.CreateErr = nil
		_, err = f.service.Register(ctx, aliceRequest())
		assert.NoError(t, err, "username and email must be free again after rollback")
	})

	t.Run("failed rollback is reported", func(t *testing.T) {
		f := newAuthFixture()
		f.profiles.CreateErr = errors.New("disk full")
		f.accounts.DeleteErr = errors.New("couch unavailable")

		_, err := f.service.Register(ctx, aliceRequest())
		assert.ErrorIs(t, err, domain.ErrStorageFailure)
		assert.ErrorIs(t, err, f.accounts.DeleteErr)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	registered, err := f.service.Register(ctx, aliceRequest())
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     *domain.LoginRequest
		wantErr error
	}{
		{
			name: "successful login",
			req:  &domain.LoginRequest{Username: "alice", Password: "secret1"},
		},
		{
			name:    "wrong password",
			req:     &domain.LoginRequest{Username: "alice", Password: "wrong"},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "unknown username",
			req:     &domain.LoginRequest{Username: "bob", Password: "secret1"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "empty password",
			req:     &domain.LoginRequest{Username: "alice", Password: ""},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.service.Login(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, result.Token)
			assert.Equal(t, registered.User.ID, result.Account.ID)
			assert.WithinDuration(t, time.Now().Add(72*time.Hour), result.ExpiresAt, time.Minute)

			claims, err := jwt.ValidateToken(result.Token, testSecret)
			require.NoError(t, err)
			assert.Equal(t, registered.User.ID, claims.AccountID)
			assert.Equal(t, "alice", claims.Username)
			assert.Equal(t, "a@x.com", claims.Email)
			assert.Equal(t, "donatur", claims.Role)
		})
	}
}

func TestAuthService_RefetchAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	_, err := f.service.Register(ctx, aliceRequest())
	require.NoError(t, err)

	result, err := f.service.Login(ctx, &domain.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	claims, err := f.service.Refetch(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	require.NoError(t, f.service.Logout(ctx, result.Token))
	assert.Len(t, f.denyList.revoked, 1)

	_, err = f.service.Refetch(ctx, result.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = f.service.Refetch(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthService_RefetchIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	_, err := f.service.Register(ctx, aliceRequest())
	require.NoError(t, err)

	result, err := f.service.Login(ctx, &domain.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	first, err := f.service.Refetch(ctx, result.Token)
	require.NoError(t, err)
	second, err := f.service.Refetch(ctx, result.Token)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, f.denyList.revoked)
}

func TestAuthService_RefetchRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	identity := jwt.Identity{AccountID: "acc-1", Username: "alice", Role: "donatur"}

	expired, _, err := jwt.GenerateToken(identity, -time.Hour, testSecret)
	require.NoError(t, err)
	foreign, _, err := jwt.GenerateToken(identity, time.Hour, "some-other-secret")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"garbage":      "invalid.token.format",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Refetch(ctx, token)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestAuthService_LogoutWithoutValidToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	assert.NoError(t, f.service.Logout(ctx, ""))
	assert.NoError(t, f.service.Logout(ctx, "invalid.token.format"))
	assert.Empty(t, f.denyList.revoked)
}

func TestAuthService_DenyListFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	token, _, err := jwt.GenerateToken(jwt.Identity{AccountID: "acc-1"}, time.Hour, testSecret)
	require.NoError(t, err)

	f.denyList.err = errors.New("cache down")

	_, err = f.service.Refetch(ctx, token)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.ErrorIs(t, f.service.Logout(ctx, token), domain.ErrStorageFailure)
}
