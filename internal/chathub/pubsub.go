package chathub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBackplane fans events out through redis pub/sub so that rooms span
// every instance connected to the same redis. Room events go to
// "<prefix>chat:room:<roomID>", presence events to "<prefix>chat:presence".
type RedisBackplane struct {
	rdb    *redis.Client
	prefix string

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func NewRedisBackplane(rdb *redis.Client, prefix string) *RedisBackplane {
	return &RedisBackplane{rdb: rdb, prefix: prefix + "chat:"}
}

func (b *RedisBackplane) channel(ev models.Event) string {
	if ev.IsGlobal() {
		return b.prefix + "presence"
	}
	return b.prefix + "room:" + ev.RoomID
}

func (b *RedisBackplane) Publish(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(ev), payload).Err()
}

// Subscribe listens on every chat channel under the prefix.
func (b *RedisBackplane) Subscribe(ctx context.Context, handler func(models.Event)) error {
	pubsub := b.rdb.PSubscribe(ctx, b.prefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.mu.Unlock()

	go func() {
		log := logrus.WithField("component", "redis-backplane")
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !strings.HasPrefix(msg.Channel, b.prefix) {
					continue
				}
				var ev models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.WithError(err).WithField("channel", msg.Channel).Warn("Error unmarshalling Redis message")
					continue
				}
				handler(ev)
			}
		}
	}()
	return nil
}

func (b *RedisBackplane) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	b.pubsub = nil
	return err
}
