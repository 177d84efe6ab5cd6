package cache

import (
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"sjsage522/sailingworker/pkg/errors"
)

const memcacheTimeout = 500 * time.Millisecond

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = memcacheTimeout
	return &MemcacheService{client: client}
}

// Get retrieves a value from memcache. Absent keys return ErrMiss.
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if stderrors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, errors.NewCache(key, "memcache get failed", err)
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
	if err != nil {
		return errors.NewCache(key, "memcache set failed", err)
	}
	return nil
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if err != nil && !stderrors.Is(err, memcache.ErrCacheMiss) {
		return errors.NewCache(key, "memcache delete failed", err)
	}
	return nil
}

// Ping reports whether the server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}
