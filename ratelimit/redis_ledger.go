package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps one sorted set per collector. Members are random ids,
// scores are unix microseconds.
type RedisLedger struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// RedisLedgerOption configures a RedisLedger.
type RedisLedgerOption func(*RedisLedger)

// WithKeyPrefix overrides the key prefix (default "ratelimit:calls:").
func WithKeyPrefix(prefix string) RedisLedgerOption {
	return func(l *RedisLedger) { l.prefix = prefix }
}

// WithRetention sets how long records are kept before pruning (default 24h).
func WithRetention(d time.Duration) RedisLedgerOption {
	return func(l *RedisLedger) {
		if d > 0 {
			l.retention = d
		}
	}
}

// NewRedisLedger creates a ledger backed by client.
func NewRedisLedger(client redis.UniversalClient, opts ...RedisLedgerOption) *RedisLedger {
	l := &RedisLedger{
		client:    client,
		prefix:    "ratelimit:calls:",
		retention: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLedger) key(collectorID string) string {
	return l.prefix + collectorID
}

func (l *RedisLedger) Append(ctx context.Context, rec CallRecord) error {
	key := l.key(rec.CollectorID)
	score := float64(rec.Timestamp.UnixMicro())
	cutoff := rec.Timestamp.Add(-l.retention).UnixMicro()

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: uuid.NewString()})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, key, l.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append api call: %w", err)
	}
	return nil
}

func (l *RedisLedger) CountSince(ctx context.Context, collectorID string, since time.Time) (int, error) {
	lo := "(" + strconv.FormatInt(since.UnixMicro(), 10)
	n, err := l.client.ZCount(ctx, l.key(collectorID), lo, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count api calls: %w", err)
	}
	return int(n), nil
}
