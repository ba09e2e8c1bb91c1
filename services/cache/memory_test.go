package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryService(t *testing.T) {
	mc := NewMemoryService()

	_, err := mc.Get("missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Set("key", []byte("value"), time.Minute))
	value, err := mc.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "value", string(value))

	require.NoError(t, mc.Delete("key"))
	_, err = mc.Get("key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryServiceExpiration(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryService()
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set("blocked", []byte("1"), 5*time.Minute))
	require.NoError(t, mc.Set("forever", []byte("1"), 0))

	now = now.Add(4 * time.Minute)
	_, err := mc.Get("blocked")
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = mc.Get("blocked")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 1, mc.Size())

	_, err = mc.Get("forever")
	assert.NoError(t, err)
}

func TestMemoryServiceExpiredDeleteKeepsFreshSet(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryService()
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set("fetch_blocked:argos", []byte("1"), time.Minute))
	now = now.Add(2 * time.Minute)

	// a Get saw the old marker expire, then a new block landed before its delete
	require.NoError(t, mc.Set("fetch_blocked:argos", []byte("1"), 5*time.Minute))
	mc.deleteIfExpired("fetch_blocked:argos")

	_, err := mc.Get("fetch_blocked:argos")
	assert.NoError(t, err)

	now = now.Add(6 * time.Minute)
	mc.deleteIfExpired("fetch_blocked:argos")
	assert.Equal(t, 0, mc.Size())
}

func TestMemoryServiceCopiesValues(t *testing.T) {
	mc := NewMemoryService()
	buf := []byte("abc")
	require.NoError(t, mc.Set("k", buf, time.Minute))
	buf[0] = 'z'

	value, err := mc.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))
}

func TestNew(t *testing.T) {
	svc, err := New("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryService{}, svc)

	svc, err = New("memcache", "localhost:11211")
	require.NoError(t, err)
	assert.IsType(t, &MemcacheService{}, svc)

	_, err = New("etcd", "")
	assert.Error(t, err)
}
