package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// expiryGrace keeps items in go-cache past their logical expiry so the
// lazy ExpiresAt check, not the janitor, decides visibility.
const expiryGrace = time.Hour

type memoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore returns a process-local Store. cleanupInterval drives
// go-cache's janitor; <= 0 disables it.
func NewMemoryStore(cleanupInterval time.Duration) Store {
	return &memoryStore{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *memoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	v, ok := s.items.Get(key.String())
	if !ok {
		return nil, nil
	}
	e, _ := v.(*Entry)
	return e.Clone(), nil
}

func (s *memoryStore) Set(_ context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return nil
	}
	ttl := entry.ExpiresAt.Sub(entry.CreatedAt)
	if ttl < 0 {
		ttl = 0
	}
	s.items.Set(key.String(), entry.Clone(), ttl+expiryGrace)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key Key) error {
	s.items.Delete(key.String())
	return nil
}

func (s *memoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, item := range s.items.Items() {
		e, _ := item.Object.(*Entry)
		if e.ExpiredAt(now) {
			s.items.Delete(k)
			n++
		}
	}
	s.items.DeleteExpired()
	return n, nil
}
