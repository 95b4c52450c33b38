package lock

import (
	"context"
	"fmt"
	"time"

	apperrors "courtsync/internal/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type ValkeyLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeyLocker(cfg Config) (*ValkeyLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.ValkeyAddr,
		Password:     cfg.ValkeyPassword,
		DB:           cfg.ValkeyDB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return NewValkeyLockerWithClient(rdb, cfg.TTL), nil
}

func NewValkeyLockerWithClient(client *redis.Client, ttl time.Duration) *ValkeyLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ValkeyLocker{client: client, ttl: ttl}
}

// TryLock sets key with a random token. The TTL bounds how long a crashed
// holder can block other runs.
func (v *ValkeyLocker) TryLock(ctx context.Context, key string) (Unlock, error) {
	token := uuid.NewString()

	ok, err := v.client.SetNX(ctx, key, token, v.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to take lock %s: %w", key, err)
	}
	if !ok {
		return nil, apperrors.ErrSyncInProgress
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, v.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

func (v *ValkeyLocker) Close() error {
	return v.client.Close()
}
