package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connect opens a kivik client for url and waits until CouchDB answers, backing
// off exponentially from base for at most retries attempts.
func Connect(ctx context.Context, url string, retries uint64, base time.Duration) (*kivik.Client, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, oops.Code("COUCHDB_CLIENT").Wrapf(err, "failed to create CouchDB client")
	}

	backoff := retry.WithMaxRetries(retries, retry.NewExponential(base))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		up, err := client.Ping(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !up {
			return retry.RetryableError(errors.New("couchdb is not up yet"))
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("COUCHDB_UNREACHABLE").Wrapf(err, "failed to reach CouchDB")
	}

	return client, nil
}

// EnsureDatabase creates dbName when missing and reports whether it did.
func EnsureDatabase(ctx context.Context, client *kivik.Client, dbName string) (bool, error) {
	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return false, oops.Code("COUCHDB_DB_EXISTS").With("db", dbName).Wrapf(err, "failed to check database existence")
	}
	if exists {
		return false, nil
	}

	if err := client.CreateDB(ctx, dbName); err != nil {
		// Another instance may have created it in between.
		if isPreconditionFailed(err) {
			return false, nil
		}
		return false, oops.Code("COUCHDB_CREATE_DB").With("db", dbName).Wrapf(err, "failed to create database")
	}
	return true, nil
}

type mangoIndex struct {
	ddoc   string
	name   string
	fields []string
}

var indexes = []mangoIndex{
	{ddoc: "accounts", name: "kind-username", fields: []string{"kind", "username"}},
	{ddoc: "chat_sessions", name: "kind-user", fields: []string{"kind", "user_id"}},
	{ddoc: "revocations", name: "kind-expires", fields: []string{"kind", "expires_at"}},
}

// EnsureIndexes creates the Mango indexes the repositories query against.
// CouchDB treats re-creating an identical index as a no-op.
func EnsureIndexes(ctx context.Context, client *kivik.Client, dbName string) error {
	db := client.DB(dbName)
	for _, idx := range indexes {
		def := map[string]interface{}{"fields": idx.fields}
		if err := db.CreateIndex(ctx, idx.ddoc, idx.name, def); err != nil {
			return oops.Code("COUCHDB_CREATE_INDEX").With("index", idx.name).Wrapf(err, "failed to create index")
		}
	}
	return nil
}

type revOnly struct {
	Rev string `json:"_rev"`
}

// deleteDoc removes docID at its current revision. A missing document is not an error.
func deleteDoc(ctx context.Context, db *kivik.DB, docID string) error {
	var doc revOnly
	if err := db.Get(ctx, docID).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil
		}
		return storageError("COUCHDB_GET", docID, err, "failed to load %s for delete", docID)
	}

	if _, err := db.Delete(ctx, docID, doc.Rev); err != nil {
		if isNotFound(err) {
			return nil
		}
		return storageError("COUCHDB_DELETE", docID, err, "failed to delete %s", docID)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusPreconditionFailed
}

func docID(prefix, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}
