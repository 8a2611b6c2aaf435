package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/Jackson16868/mcshop-bot/internal/logger"
)

const keyPrefix = "bucket_lock:"

// BucketLock serialises bookings into the same capacity bucket across processes.
type BucketLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewBucketLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *BucketLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &BucketLock{Client: client, TTL: ttl, Logger: log}
}

// Acquire takes the lock for bucketKey. It returns ok=false when someone else holds it.
// The returned release function only deletes the key while it still carries our token.
func (l *BucketLock) Acquire(ctx context.Context, bucketKey string) (release func(), ok bool, err error) {
	key := keyPrefix + bucketKey
	token := uuid.NewString()

	ok, err = l.Client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock bucket %s: %w", bucketKey, err)
	}
	if !ok {
		l.Logger.Debug("REDIS", fmt.Sprintf("Bucket %s is locked", bucketKey))
		return nil, false, nil
	}

	return func() {
		if err := l.unlock(context.Background(), key, token); err != nil {
			l.Logger.Warn("REDIS", fmt.Sprintf("Failed to release bucket %s: %v", bucketKey, err))
		}
	}, true, nil
}

// IsLocked reports whether a booking currently holds bucketKey.
func (l *BucketLock) IsLocked(ctx context.Context, bucketKey string) (bool, error) {
	_, err := l.Client.Get(ctx, keyPrefix+bucketKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *BucketLock) unlock(ctx context.Context, key, token string) error {
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // expired
	}
	if err != nil {
		return err
	}
	if val != token {
		return nil
	}
	return l.Client.Del(ctx, key).Err()
}
