package service

import (
	"context"
	"errors"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/repository"
)

type ProfileService struct {
	profiles repository.ProfileRepository
}

func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (s *ProfileService) GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "get profile", Err: err}
	}
	return profile, nil
}
