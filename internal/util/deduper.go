package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper guards against duplicate MQ deliveries. Mail events are delivered
// at least once, but each send attempt must produce exactly one snapshot.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce tries to acquire a dedup lock for a given handler + message ID.
// Returns true if this is the first time the message is processed, false for
// a duplicate. When redis is unavailable it fails open and returns true.
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, messageID string) bool {
	key := fmt.Sprintf("dedup:%s:%s", handler, messageID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Release drops the dedup lock so a redelivered message is processed again.
// Must be called when handling fails in a way that requeues the delivery,
// otherwise the redelivery would be dropped as a duplicate without ever being
// processed.
func (d *Deduper) Release(ctx context.Context, handler string, messageID string) {
	key := fmt.Sprintf("dedup:%s:%s", handler, messageID)
	_ = d.rdb.Del(ctx, key).Err()
}
