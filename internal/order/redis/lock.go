package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis holds a per-order confirmation lock. The store-level
// compare-and-swap on the order status is the correctness guarantee;
// this lock only keeps a concurrent confirmation from wasting number
// claims it would immediately have to roll back.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{Client: client, TTL: ttl}
}

func lockKey(orderID string) string {
	return "confirm_lock:" + orderID
}

// LockOrder takes the confirmation lock for an order. The value carries
// a caller token so only the holder can release it. The TTL bounds how
// long a crashed confirmation can block retries.
func (r *Redis) LockOrder(orderID, token string) (bool, error) {
	return r.Client.SetNX(context.Background(), lockKey(orderID), token, r.TTL).Result()
}

// UnlockOrder releases the lock if this caller still holds it. A lock
// that expired or was taken over is left alone.
func (r *Redis) UnlockOrder(orderID, token string) error {
	ctx := context.Background()
	key := lockKey(orderID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
