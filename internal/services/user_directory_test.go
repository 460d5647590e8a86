package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtrack/internal/cache"
)

type slowNames struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	err     error
}

func (s *slowNames) UserName(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return "", s.err
	}
	return "name-of-" + userID, nil
}

func TestUserDirectoryCaches(t *testing.T) {
	src := &slowNames{}
	dir := NewUserDirectory(src, cache.NewLRUCache[string](8, time.Minute))

	for i := 0; i < 3; i++ {
		name, err := dir.Name(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "name-of-u1", name)
	}
	assert.Equal(t, 1, src.calls)
}

func TestUserDirectoryCoalescesConcurrentMisses(t *testing.T) {
	src := &slowNames{release: make(chan struct{})}
	dir := NewUserDirectory(src, cache.NewLRUCache[string](8, time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := dir.Name(context.Background(), "u1")
			assert.NoError(t, err)
			assert.Equal(t, "name-of-u1", name)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.LessOrEqual(t, src.calls, 5)
	assert.GreaterOrEqual(t, src.calls, 1)
}

func TestUserDirectoryUnknownUser(t *testing.T) {
	store := newFakeStore()
	dir := NewUserDirectory(store, cache.NewLRUCache[string](8, time.Minute))

	_, err := dir.Name(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrUnknownUser)

	_, err = dir.Name(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrUnknownUser)
	assert.Equal(t, 2, store.nameLookups, "misses are not cached")
}

func TestUserDirectoryWrapsStoreErrors(t *testing.T) {
	src := &slowNames{err: errors.New("timeout")}
	dir := NewUserDirectory(src, cache.NewLRUCache[string](8, time.Minute))

	_, err := dir.Name(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownUser)
}
