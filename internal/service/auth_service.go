package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/repository"
	"ummahbook-server/internal/session"
	"ummahbook-server/pkg/errutil"
	"ummahbook-server/pkg/hash"
	"ummahbook-server/pkg/jwt"

	"github.com/google/uuid"
)

const RegisterSuccessMessage = "User dan DetilUser berhasil registrasi"

type AuthService struct {
	accounts   repository.AccountRepository
	profiles   repository.ProfileRepository
	denyList   session.DenyList
	secret     string
	expiration time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuthService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	denyList session.DenyList,
	secret string,
	expiration time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:   accounts,
		profiles:   profiles,
		denyList:   denyList,
		secret:     secret,
		expiration: expiration,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates the account and its profile. If the profile cannot be
// stored the account is deleted again, so a failed registration leaves
// nothing behind.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
	}
	if !req.Role.SelfAssignable() {
		return nil, fmt.Errorf("%w: %q", domain.ErrRoleNotAllowed, req.Role)
	}

	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		var dup *repository.DuplicateKeyError
		if errors.As(err, &dup) {
			return nil, &domain.DuplicateIdentityError{Field: dup.Field, Value: dup.Value}
		}
		return nil, &domain.StorageError{Op: "create account", Err: err}
	}

	profile := domain.NewProfile(account.ID, req.DisplayName, req.StatementURL, now)
	if err := s.profiles.Create(ctx, profile); err != nil {
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			errutil.LogError(s.logger, "failed to roll back account after profile failure", delErr,
				"account_id", account.ID,
				"username", account.Username,
			)
			err = errors.Join(err, delErr)
		}
		return nil, &domain.StorageError{Op: "create profile", Err: err}
	}

	s.logger.Info("account registered", "account_id", account.ID, "role", account.Role)

	return &domain.RegisterResponse{
		Message: RegisterSuccessMessage,
		User:    account.ToPublic(),
		Profile: profile,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResult, error) {
	account, err := s.accounts.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "find account", Err: err}
	}

	ok, err := hash.Matches(account.PasswordHash, req.Password)
	if err != nil {
		return nil, &domain.StorageError{Op: "verify password", Err: err}
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	token, claims, err := jwt.GenerateToken(jwt.Identity{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Role:      string(account.Role),
	}, s.expiration, s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &domain.LoginResult{
		Account:   account.ToPublic(),
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes token until it would have expired. Missing, malformed and
// already expired tokens need no revocation and are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := jwt.ValidateToken(token, s.secret)
	if err != nil {
		return nil
	}

	if err := s.denyList.Revoke(ctx, claims.ID, claims.Remaining()); err != nil {
		return &domain.StorageError{Op: "revoke session", Err: err}
	}

	s.logger.Info("session revoked", "account_id", claims.AccountID)
	return nil
}

// Refetch verifies token and returns the identity it carries.
func (s *AuthService) Refetch(ctx context.Context, token string) (*jwt.Claims, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := jwt.ValidateToken(token, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	revoked, err := s.denyList.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, &domain.StorageError{Op: "check revocation", Err: err}
	}
	if revoked {
		return nil, fmt.Errorf("%w: session was logged out", domain.ErrInvalidToken)
	}

	return claims, nil
}
