package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/stayaudit/internal/domain/providers"
	redisclient "github.com/zatekoja/stayaudit/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, providers.CacheProvider) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisAdapter(redisclient.NewClientFromRedis(client))
}

func TestRedisAdapter_SetGetDelete(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "abc", []byte("RECOMENDACAO: MANTER_INTERNACAO"), time.Hour))
	assert.True(t, mr.Exists(ReplyNamespace+"abc"))

	got, err := adapter.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "RECOMENDACAO: MANTER_INTERNACAO", string(got))

	require.NoError(t, adapter.Delete(ctx, "abc"))
	_, err = adapter.Get(ctx, "abc")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_TTL(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(ReplyNamespace+"k"))

	mr.FastForward(2 * time.Minute)
	_, err := adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_ServerDown(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	mr.Close()

	_, err := adapter.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRemoteCall))
}
