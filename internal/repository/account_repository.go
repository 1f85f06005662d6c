package repository

import (
	"context"
	"errors"
	"strings"

	"ummahbook-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type AccountRepository interface {
	// Create stores the account. Username and email uniqueness is enforced here;
	// a collision returns *DuplicateKeyError.
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

// uniqueKey is a reservation document. Its id is derived from the unique value,
// so CouchDB itself refuses a second writer with 409.
type uniqueKey struct {
	Kind      string `json:"kind"`
	Field     string `json:"field"`
	Value     string `json:"value"`
	AccountID string `json:"account_id"`
}

const kindUniqueKey = "unique_key"

type accountRepository struct {
	client *kivik.Client
	dbName string
}

func NewAccountRepository(client *kivik.Client, dbName string) AccountRepository {
	return &accountRepository{
		client: client,
		dbName: dbName,
	}
}

func uniqueKeyDocID(field, value string) string {
	if field == "email" {
		value = strings.ToLower(value)
	}
	return "unique:" + field + ":" + value
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	db := r.client.DB(r.dbName)

	usernameKey := uniqueKeyDocID("username", account.Username)
	usernameRev, err := r.reserve(ctx, db, usernameKey, "username", account.Username, account.ID)
	if err != nil {
		return err
	}

	emailKey := uniqueKeyDocID("email", account.Email)
	emailRev, err := r.reserve(ctx, db, emailKey, "email", account.Email, account.ID)
	if err != nil {
		return joinRelease(err, r.release(ctx, db, usernameKey, usernameRev))
	}

	account.Kind = domain.KindAccount
	id := docID("account", account.ID)
	if _, err := db.Put(ctx, id, account); err != nil {
		putErr := storageError("COUCHDB_PUT", id, err, "failed to create account")
		return joinRelease(putErr,
			r.release(ctx, db, usernameKey, usernameRev),
			r.release(ctx, db, emailKey, emailRev),
		)
	}

	return nil
}

func (r *accountRepository) reserve(ctx context.Context, db *kivik.DB, key, field, value, accountID string) (string, error) {
	rev, err := db.Put(ctx, key, &uniqueKey{
		Kind:      kindUniqueKey,
		Field:     field,
		Value:     value,
		AccountID: accountID,
	})
	if err != nil {
		if isConflict(err) {
			return "", &DuplicateKeyError{Field: field, Value: value}
		}
		return "", storageError("COUCHDB_PUT", key, err, "failed to reserve %s", field)
	}
	return rev, nil
}

func (r *accountRepository) release(ctx context.Context, db *kivik.DB, key, rev string) error {
	if _, err := db.Delete(ctx, key, rev); err != nil && !isNotFound(err) {
		return storageError("COUCHDB_DELETE", key, err, "failed to release unique key")
	}
	return nil
}

func joinRelease(cause error, releaseErrs ...error) error {
	errs := []error{cause}
	for _, err := range releaseErrs {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	db := r.client.DB(r.dbName)

	key := docID("account", id)
	var account domain.Account
	if err := db.Get(ctx, key).ScanDoc(&account); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storageError("COUCHDB_GET", key, err, "failed to find account by ID")
	}

	return &account, nil
}

func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"kind":     domain.KindAccount,
			"username": username,
		},
		"limit": 1,
	}

	rows := db.Find(ctx, query)
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storageError("COUCHDB_FIND", "", err, "failed to query account by username")
		}
		return nil, ErrNotFound
	}

	var account domain.Account
	if err := rows.ScanDoc(&account); err != nil {
		return nil, storageError("COUCHDB_SCAN", "", err, "failed to scan account")
	}

	return &account, nil
}

// Delete removes the account document and its unique-key reservations.
func (r *accountRepository) Delete(ctx context.Context, id string) error {
	account, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	db := r.client.DB(r.dbName)
	if err := deleteDoc(ctx, db, docID("account", id)); err != nil {
		return err
	}

	return errors.Join(
		deleteDoc(ctx, db, uniqueKeyDocID("username", account.Username)),
		deleteDoc(ctx, db, uniqueKeyDocID("email", account.Email)),
	)
}
