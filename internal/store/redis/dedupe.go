package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Deduper is a fast-path duplicate-delivery guard in front of Postgres.
// Stripe retries aggressively; SETNX on the event id absorbs most duplicates
// before they cost a database round-trip. It is advisory only: the unique
// constraint on webhook_events remains the source of truth, so a Redis outage
// degrades to DB-only dedupe instead of breaking intake.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(addr string) *Deduper {
	if addr == "" {
		return nil
	}
	return &Deduper{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: 24 * time.Hour,
	}
}

// Seen marks the event id and reports whether it was already marked. Errors
// are logged and treated as "not seen" so intake never depends on Redis.
func (d *Deduper) Seen(ctx context.Context, eventID string) bool {
	if d == nil {
		return false
	}
	set, err := d.rdb.SetNX(ctx, "vaultpay:evt:"+eventID, 1, d.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("stripe_event_id", eventID).Msg("redis dedupe unavailable")
		return false
	}
	return !set
}

// Forget releases the event id so a later delivery can take the fast path
// again. Called when intake fails after Seen marked the key; without it a
// transient storage error would leave the key set and every retry would be
// acknowledged without the event ever being stored. Best-effort: on a Redis
// error the key expires with its TTL and the database constraint still holds.
func (d *Deduper) Forget(ctx context.Context, eventID string) {
	if d == nil {
		return
	}
	if err := d.rdb.Del(ctx, "vaultpay:evt:"+eventID).Err(); err != nil {
		log.Warn().Err(err).Str("stripe_event_id", eventID).Msg("redis dedupe release failed")
	}
}

// Close releases the underlying connection pool.
func (d *Deduper) Close() error {
	if d == nil {
		return nil
	}
	return d.rdb.Close()
}
