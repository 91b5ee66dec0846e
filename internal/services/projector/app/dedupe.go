package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/courtapps/internal/platform/timeouts"
)

const (
	defaultDedupeTTL    = 24 * time.Hour
	defaultDedupePrefix = "courtapps:projector:processed:"
)

// Deduper remembers which events were already handled. An event is marked
// only after the applier is done with it, so a failed or interrupted attempt
// leaves nothing behind and the redelivery is applied again.
type Deduper interface {
	// Seen reports whether eventID was marked processed.
	Seen(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed records eventID so later deliveries are skipped.
	MarkProcessed(ctx context.Context, eventID string) error
}

// RedisDeduper keeps processed event ids in Redis with a TTL.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper wraps client. A non-positive ttl uses one day.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &RedisDeduper{client: client, prefix: defaultDedupePrefix, ttl: ttl}
}

// OpenRedis connects to addr, which is either host:port or a redis:// URL,
// and pings it.
func OpenRedis(ctx context.Context, addr string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = timeouts.RedisDial

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.RedisDial)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (d *RedisDeduper) key(eventID string) string {
	return d.prefix + eventID
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (d *RedisDeduper) MarkProcessed(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, d.key(eventID), time.Now().UTC().Format(time.RFC3339Nano), d.ttl).Err(); err != nil {
		return fmt.Errorf("mark event %s: %w", eventID, err)
	}
	return nil
}
