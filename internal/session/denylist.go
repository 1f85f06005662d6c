// Package session tracks session tokens that were logged out before they expired.
package session

import (
	"context"
	"time"

	"github.com/atfromhome/goreus/pkg/cache"
)

// DenyList holds revoked token identifiers (jti) until their natural expiry.
type DenyList interface {
	// Revoke denies identifier for the remaining lifetime of its token.
	Revoke(ctx context.Context, identifier string, remaining time.Duration) error
	IsRevoked(ctx context.Context, identifier string) (bool, error)
}

// RevocationStore is the durable record of revocations. It must keep every
// entry until the recorded expiry has passed.
type RevocationStore interface {
	Revoke(ctx context.Context, identifier string, expiresAt time.Time) error
	ExpiresAt(ctx context.Context, identifier string) (time.Time, bool, error)
}

// StoreDenyList answers from the store and caches positive answers. Evicting a
// cache entry only costs a store lookup, so capacity never un-revokes a token.
type StoreDenyList struct {
	store  RevocationStore
	cached *cache.InMemoryCache[string, time.Time]
	now    func() time.Time
}

// NewStoreDenyList caches up to cacheSize revocations. maxLifetime should be the
// longest token lifetime so cached entries never outlive the cache TTL.
func NewStoreDenyList(store RevocationStore, cacheSize int, maxLifetime time.Duration) *StoreDenyList {
	return &StoreDenyList{
		store:  store,
		cached: cache.NewInMemoryCache[string, time.Time](cacheSize, maxLifetime),
		now:    time.Now,
	}
}

func (d *StoreDenyList) Revoke(ctx context.Context, identifier string, remaining time.Duration) error {
	if identifier == "" || remaining <= 0 {
		return nil
	}

	deadline := d.now().Add(remaining)
	if err := d.store.Revoke(ctx, identifier, deadline); err != nil {
		return err
	}
	// The cache TTL is global, so the real deadline is kept in the value.
	d.cached.Set(ctx, identifier, deadline)
	return nil
}

func (d *StoreDenyList) IsRevoked(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, nil
	}
	if deadline, ok := d.cached.Get(ctx, identifier); ok {
		return d.now().Before(deadline), nil
	}

	deadline, found, err := d.store.ExpiresAt(ctx, identifier)
	if err != nil {
		return false, err
	}
	if !found || !d.now().Before(deadline) {
		return false, nil
	}
	d.cached.Set(ctx, identifier, deadline)
	return true, nil
}

func (d *StoreDenyList) Close() {
	d.cached.Close()
}
