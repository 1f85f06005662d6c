package repository

import (
	"context"
	"time"

	"github.com/go-kivik/kivik/v4"
)

const kindRevokedToken = "revoked_token"

// RevocationRepository persists logged-out session token ids (jti) until the
// token's own expiry.
type RevocationRepository interface {
	// Revoke records jti as revoked until expiresAt. Revoking twice is not an error.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// ExpiresAt returns the recorded expiry; found is false when jti was never revoked.
	ExpiresAt(ctx context.Context, jti string) (expiresAt time.Time, found bool, err error)
	// DeleteExpired removes revocations whose token expired before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// revokedToken stores the expiry as unix seconds so Mango range selectors
// compare numerically.
type revokedToken struct {
	Rev       string `json:"_rev,omitempty"`
	Kind      string `json:"kind"`
	JTI       string `json:"jti"`
	ExpiresAt int64  `json:"expires_at"`
}

type revocationRepository struct {
	client *kivik.Client
	dbName string
}

func NewRevocationRepository(client *kivik.Client, dbName string) RevocationRepository {
	return &revocationRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *revocationRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	db := r.client.DB(r.dbName)

	key := docID("revoked", jti)
	_, err := db.Put(ctx, key, &revokedToken{
		Kind:      kindRevokedToken,
		JTI:       jti,
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		if isConflict(err) {
			return nil
		}
		return storageError("COUCHDB_PUT", key, err, "failed to revoke token")
	}

	return nil
}

func (r *revocationRepository) ExpiresAt(ctx context.Context, jti string) (time.Time, bool, error) {
	db := r.client.DB(r.dbName)

	key := docID("revoked", jti)
	var doc revokedToken
	if err := db.Get(ctx, key).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, storageError("COUCHDB_GET", key, err, "failed to look up revocation")
	}

	return time.Unix(doc.ExpiresAt, 0), true, nil
}

func (r *revocationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"kind":       kindRevokedToken,
			"expires_at": map[string]interface{}{"$lt": cutoff.Unix()},
		},
		"fields": []string{"_id", "_rev"},
	}

	rows := db.Find(ctx, query)
	defer rows.Close()

	type stale struct {
		ID  string `json:"_id"`
		Rev string `json:"_rev"`
	}
	var expired []stale
	for rows.Next() {
		var doc stale
		if err := rows.ScanDoc(&doc); err != nil {
			id, _ := rows.ID()
			return 0, storageError("COUCHDB_SCAN", id, err, "failed to scan revocation")
		}
		expired = append(expired, doc)
	}
	if err := rows.Err(); err != nil {
		return 0, storageError("COUCHDB_FIND", "", err, "failed to query expired revocations")
	}

	deleted := 0
	for _, doc := range expired {
		if _, err := db.Delete(ctx, doc.ID, doc.Rev); err != nil {
			if isNotFound(err) || isConflict(err) {
				continue
			}
			return deleted, storageError("COUCHDB_DELETE", doc.ID, err, "failed to delete revocation")
		}
		deleted++
	}

	return deleted, nil
}
