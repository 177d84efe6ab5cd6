package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key("discovery", "Marina Del Rey Sportfishing", "https://www.mdrsf.com/")
	assert.True(t, strings.HasPrefix(k, "discovery:"))
	assert.Len(t, k, len("discovery:")+40)
	assert.NotContains(t, k, " ")
	assert.Equal(t, k, Key("discovery", "Marina Del Rey Sportfishing", "https://www.mdrsf.com/"))
	assert.NotEqual(t, Key("discovery", "ab", "c"), Key("discovery", "a", "bc"))
}

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	key := Key("test", t.Name())
	require.NoError(t, mc.Set(key, []byte("test_value"), time.Minute))

	value, err := mc.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	require.NoError(t, mc.Delete(key))
	// deleting twice is fine
	require.NoError(t, mc.Delete(key))

	_, err = mc.Get(key)
	assert.ErrorIs(t, err, ErrMiss)
}
