package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"spendtrack/internal/cache"
	"spendtrack/internal/storage"
)

var ErrUnknownUser = errors.New("user not found")

// UserDirectory caches user display names. Users are immutable once created,
// so entries only leave the cache through TTL or eviction. Concurrent misses
// for the same id share one database lookup.
type UserDirectory struct {
	source UserNames
	cache  *cache.LRUCache[string]
	group  singleflight.Group
}

func NewUserDirectory(source UserNames, c *cache.LRUCache[string]) *UserDirectory {
	return &UserDirectory{source: source, cache: c}
}

// Name returns the display name for userID or ErrUnknownUser.
func (d *UserDirectory) Name(ctx context.Context, userID string) (string, error) {
	if name, ok := d.cache.Get(userID); ok {
		return name, nil
	}

	v, err, _ := d.group.Do(userID, func() (any, error) {
		name, err := d.source.UserName(ctx, userID)
		if err != nil {
			return "", err
		}
		d.cache.Set(userID, name)
		return name, nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	return v.(string), nil
}
