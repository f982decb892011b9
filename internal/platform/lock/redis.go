package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ogurasousui/employee-link-api/internal/platform/config"
)

const (
	keyPrefix   = "lock:"
	pingTimeout = 5 * time.Second
)

// releaseScript は自身が取得したロックのみを削除します。
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisClient は RedisGuard が利用する go-redis の操作です。
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	goredis.Scripter
}

// RedisGuard は Redis の SET NX を用いた複数レプリカ間の排他制御です。
// TTL を過ぎたロックは自動的に失効します。
type RedisGuard struct {
	rdb redisClient
	ttl time.Duration
}

// NewRedisClient は設定から Redis クライアントを生成し、疎通を確認します。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("lock: ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// NewRedisGuard は RedisGuard を生成します。
func NewRedisGuard(rdb redisClient, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// TryAcquire はロックの取得を 1 回だけ試みます。他の保持者がいる場合は false を返します。
func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	fullKey := keyPrefix + key

	ok, err := g.rdb.SetNX(ctx, fullKey, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, g.rdb, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("lock: release %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}
