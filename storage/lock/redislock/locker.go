// Package redislock implements result.KeyLocker on Redis so several API instances share key locks.
package redislock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/result"
)

const (
	keyPrefix    = "bulletin:lock:"
	defaultTTL   = 10 * time.Second
	retryBackoff = 20 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type locker struct {
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ result.KeyLocker = (*locker)(nil) // interface compliance check

// Open connects to the configured Redis server.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// New returns a KeyLocker whose locks expire after `ttl` if never released.
func New(client *redis.Client, ttl time.Duration, logger core.Logger) result.KeyLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &locker{client: client, ttl: ttl, logger: logger}
}

func (l *locker) Lock(ctx context.Context, key string) (func(), error) {
	key = keyPrefix + key
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "locking %s", key)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "locking %s", key)
		case <-time.After(retryBackoff):
		}
	}

	return func() {
		// release even if the caller's context is done
		if err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
			l.logger.Error("releasing lock "+key, errors.Wrap(err, "releasing lock"))
		}
	}, nil
}
