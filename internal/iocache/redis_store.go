package iocache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "propensity:market:"
	redisTimeout   = 5 * time.Second
	redisScanCount = 500
)

// RedisStore keeps market-data lookups as Redis hashes.
// Each entry is a hash with value, version and ts fields.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ contract.CacheStore = &RedisStore{} // Compile-time check

// NewRedisStore connects to the Redis server at connStr (redis:// or rediss://).
func NewRedisStore(connStr string) (*RedisStore, error) {
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis connection string: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, prefix: redisKeyPrefix}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

// Get implements contract.CacheStore. A miss returns redis.Nil.
func (r *RedisStore) Get(key string) ([]byte, int, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, r.prefix+key).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(fields) == 0 {
		return nil, 0, 0, redis.Nil
	}
	version, err := strconv.Atoi(fields["version"])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache version for %s: %w", key, err)
	}
	ts, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache timestamp for %s: %w", key, err)
	}
	return []byte(fields["value"]), version, ts, nil
}

// Set implements contract.CacheStore.
func (r *RedisStore) Set(key string, value []byte, version int, timestamp int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return r.client.HSet(ctx, r.prefix+key, "value", value, "version", version, "ts", timestamp).Err()
}

// Clear removes every key under the store prefix.
func (r *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	keys, err := r.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Unlink(ctx, keys...).Err()
}

// Prune unlinks every snapshot whose ts field is older than cutoff.
// Entries with an unreadable ts are treated as stale.
func (r *RedisStore) Prune(cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	keys, err := r.keys(ctx)
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, key := range keys {
		raw, err := r.client.HGet(ctx, key, "ts").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("failed to read %s: %w", key, err)
		}
		ts, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || ts < cutoff.Unix() {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	return r.client.Unlink(ctx, stale...).Result()
}

// GetStatus implements contract.CacheStore.
func (r *RedisStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.RedisBackend)}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return status, nil
	}
	status.Connected = true

	keys, err := r.keys(ctx)
	if err != nil {
		return status, err
	}
	status.TotalEntries = len(keys)

	var oldest, newest int64
	for _, key := range keys {
		fields, err := r.client.HMGet(ctx, key, "ts", "value").Result()
		if err != nil {
			return status, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if s, ok := fields[0].(string); ok {
			if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
				if oldest == 0 || ts < oldest {
					oldest = ts
				}
				newest = max(newest, ts)
			}
		}
		if s, ok := fields[1].(string); ok {
			status.TableSizeBytes += int64(len(s))
		}
	}
	if status.TotalEntries > 0 {
		status.LastEntryTime = time.Unix(newest, 0)
		status.OldestEntryTime = time.Unix(oldest, 0)
	}
	return status, nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return keys, nil
}
