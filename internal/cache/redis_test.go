package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), mr.Addr(), "", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, mr
}

const sampleURL = "https://bundles.example.com/bundles/www.example.com/2024/05/01?domainkey=secret"

func TestRedis_SetGet(t *testing.T) {
	r, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, sampleURL)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, sampleURL, []byte(`{"rumBundles":[]}`)))

	body, ok, err := r.Get(ctx, sampleURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"rumBundles":[]}`, string(body))

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "secret")
	}
}

func TestRedis_Expires(t *testing.T) {
	r, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, sampleURL, []byte("x")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := r.Get(ctx, sampleURL)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_FlushOnlyTouchesNamespace(t *testing.T) {
	r, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, r.Set(ctx, fmt.Sprintf("%s&n=%d", sampleURL, i), []byte("x")))
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, r.Flush(ctx))

	assert.Equal(t, []string{"unrelated"}, mr.Keys())
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), addr, "", time.Hour)
	assert.Error(t, err)
}
