package repository

import (
	"context"

	"ummahbook-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type ProfileRepository interface {
	// Create stores the profile under its account id; a second profile for the
	// same account returns *DuplicateKeyError on "detilUid".
	Create(ctx context.Context, profile *domain.Profile) error
	FindByAccountID(ctx context.Context, accountID string) (*domain.Profile, error)
}

// profileDoc adds the document kind, which stays out of the API body.
type profileDoc struct {
	Kind string `json:"kind"`
	domain.Profile
}

type profileRepository struct {
	client *kivik.Client
	dbName string
}

func NewProfileRepository(client *kivik.Client, dbName string) ProfileRepository {
	return &profileRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	db := r.client.DB(r.dbName)

	key := docID("profile", profile.AccountID)
	doc := &profileDoc{Kind: domain.KindProfile, Profile: *profile}
	if _, err := db.Put(ctx, key, doc); err != nil {
		if isConflict(err) {
			return &DuplicateKeyError{Field: "detilUid", Value: profile.AccountID}
		}
		return storageError("COUCHDB_PUT", key, err, "failed to create profile")
	}

	return nil
}

func (r *profileRepository) FindByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	db := r.client.DB(r.dbName)

	key := docID("profile", accountID)
	var profile domain.Profile
	if err := db.Get(ctx, key).ScanDoc(&profile); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storageError("COUCHDB_GET", key, err, "failed to get profile")
	}

	return &profile, nil
}
