package cache

import (
	"crypto/sha1"
	"encoding/hex"
	stderrors "errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = stderrors.New("cache miss")

// CacheService represents a generic byte cache
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// Key builds a memcache-safe key. Parts are hashed so arbitrary URLs and
// landing names stay under the 250 byte limit and free of whitespace.
func Key(namespace string, parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
