package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/stayaudit/internal/domain/providers"
	redisclient "github.com/zatekoja/stayaudit/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

// ReplyNamespace prefixes every cached model reply
const ReplyNamespace = "stayaudit:reply:"

// RedisAdapter stores model replies in Redis under a namespace so the
// cache can share a database with the recommendation channel.
type RedisAdapter struct {
	rdb       redis.Cmdable
	namespace string
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)

// NewRedisAdapter caches under ReplyNamespace
func NewRedisAdapter(client *redisclient.Client) *RedisAdapter {
	return &RedisAdapter{rdb: client.Client(), namespace: ReplyNamespace}
}

func (a *RedisAdapter) key(k string) string { return a.namespace + k }

func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := a.rdb.Get(ctx, a.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, providers.ErrCacheMiss
	case err != nil:
		return nil, apperrors.NewRemoteCallError("redis get "+key, err)
	}
	return data, nil
}

// Set stores value; a zero ttl keeps it until evicted
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := a.rdb.Set(ctx, a.key(key), value, ttl).Err(); err != nil {
		return apperrors.NewRemoteCallError("redis set "+key, err)
	}
	return nil
}

func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.rdb.Del(ctx, a.key(key)).Err(); err != nil {
		return apperrors.NewRemoteCallError("redis delete "+key, err)
	}
	return nil
}
