package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/outfitkit/core"
)

// exerciseStore 对任意 core.Store 实现跑同一组用例。
func exerciseStore(t *testing.T, s core.Store, prefix string) {
	ctx := context.Background()

	_, err := s.Get(ctx, prefix+"missing")
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, s.Set(ctx, prefix+"a", []byte("1")))
	got, err := s.Get(ctx, prefix+"a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{
		prefix + "b": []byte("2"),
		prefix + "c": []byte("3"),
	}))
	vals, err := s.BatchGet(ctx, []string{prefix + "a", prefix + "c", prefix + "zz"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{prefix + "a": []byte("1"), prefix + "c": []byte("3")}, vals)

	keys, err := s.Keys(ctx, prefix)
	require.NoError(t, err)
	assert.Equal(t, []string{prefix + "a", prefix + "b", prefix + "c"}, keys)

	for _, k := range keys {
		require.NoError(t, s.Delete(ctx, k))
	}
	keys, err = s.Keys(ctx, prefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	assert.Equal(t, "memory", s.Name())
	exerciseStore(t, s, "test:")
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 10))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(11 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsNotFound(err))
	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("OUTFITKIT_REDIS_ADDR")
	if addr == "" {
		t.Skip("OUTFITKIT_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(addr, 0)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "redis", s.Name())
	exerciseStore(t, s, "outfitkit-test:"+time.Now().Format("150405.000000")+":")
}

func TestRedisStoreWithClientUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := NewRedisStoreWithClient(client)
	defer s.Close()
	assert.Equal(t, "redis", s.Name())

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, core.IsNotFound(err), "a connection failure is not a missing key")
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, globEscape("a*b?c[d]"))
}
