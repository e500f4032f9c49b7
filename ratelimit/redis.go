package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger stores hits as sorted sets so several instances share limits.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger connects to the server at url (redis://host:port/db) and
// verifies the connection.
func NewRedisLedger(ctx context.Context, url, prefix string) (*RedisLedger, error) {
	if url == "" {
		return nil, errors.New("ratelimit: redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisLedgerFromClient(client, prefix), nil
}

// NewRedisLedgerFromClient wraps an existing client.
func NewRedisLedgerFromClient(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "mdblog:ratelimit:"
	}
	return &RedisLedger{client: client, prefix: prefix}
}

// Close closes the client.
func (r *RedisLedger) Close() error {
	return r.client.Close()
}

// Load implements Ledger.
func (r *RedisLedger) Load(ctx context.Context, key string) ([]time.Time, error) {
	vals, err := r.client.ZRangeWithScores(ctx, r.prefix+key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	hits := make([]time.Time, 0, len(vals))
	for _, z := range vals {
		hits = append(hits, time.UnixMilli(int64(z.Score)))
	}
	return hits, nil
}

// Save implements Ledger. The key expires ttl after the write.
func (r *RedisLedger) Save(ctx context.Context, key string, hits []time.Time, ttl time.Duration) error {
	k := r.prefix + key
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, k)
	if len(hits) > 0 {
		members := make([]redis.Z, 0, len(hits))
		for i, t := range hits {
			ms := t.UnixMilli()
			members = append(members, redis.Z{
				Score:  float64(ms),
				Member: strconv.FormatInt(ms, 10) + "-" + strconv.Itoa(i),
			})
		}
		pipe.ZAdd(ctx, k, members...)
		if ttl > 0 {
			pipe.Expire(ctx, k, ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
