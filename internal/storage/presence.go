package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence keeps a per-user connection counter in redis so that every
// instance (and the notification worker) can tell whether a user is online.
// Counters expire after ttl unless refreshed, which clears users of crashed
// instances.
type Presence struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewPresence(rdb *redis.Client, prefix string, ttl time.Duration) *Presence {
	return &Presence{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (p *Presence) key(userID string) string {
	return p.prefix + "presence:" + userID
}

// SetOnline counts one more live connection for the user.
func (p *Presence) SetOnline(ctx context.Context, userID string) error {
	key := p.key(userID)
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, p.ttl)
		return nil
	})
	return err
}

// SetOffline counts one connection less and drops the key at zero.
func (p *Presence) SetOffline(ctx context.Context, userID string) error {
	key := p.key(userID)
	n, err := p.rdb.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return p.rdb.Del(ctx, key).Err()
	}
	return nil
}

// Touch extends the lifetime of the user's counter.
func (p *Presence) Touch(ctx context.Context, userID string) error {
	return p.rdb.Expire(ctx, p.key(userID), p.ttl).Err()
}

func (p *Presence) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := p.rdb.Get(ctx, p.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
