package repository

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-kivik/kivik/v4"
	"github.com/samber/oops"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict means the document revision changed under us.
	ErrConflict = errors.New("document update conflict")
)

// DuplicateKeyError is the storage-level uniqueness violation. Field names the
// unique key that collided.
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on %s: %q", e.Field, e.Value)
}

func isConflict(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusConflict
}

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}

func storageError(code, docID string, err error, format string, args ...any) error {
	return oops.
		Code(code).
		With("doc_id", docID).
		With("http_status", kivik.HTTPStatus(err)).
		Wrapf(err, format, args...)
}
