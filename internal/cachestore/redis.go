package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/posdesk/posd/pkg/config"
	"github.com/redis/go-redis/v9"
)

const redisKeyNamespace = "posd:cache"

// Redis is a Store backend shared by terminals pointing at the same instance.
// Entries are JSON blobs; partitions are key prefixes enumerated via SCAN.
type Redis struct {
	raw *redis.Client
}

var _ Store = (*Redis)(nil)

// NewRedis bootstraps the backend and verifies connectivity.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (r *Redis) Match(ctx context.Context, partition, key string) (*Entry, bool, error) {
	raw, err := r.raw.Get(ctx, entryKey(partition, key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return &entry, true, nil
}

func (r *Redis) Put(ctx context.Context, partition, key string, entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := r.raw.Set(ctx, entryKey(partition, key), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Partitions(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var names []string

	iter := r.raw.Scan(ctx, 0, redisKeyNamespace+":*", 0).Iterator()
	for iter.Next(ctx) {
		partition, ok := partitionFromKey(iter.Val())
		if !ok {
			continue
		}
		if _, dup := seen[partition]; dup {
			continue
		}
		seen[partition] = struct{}{}
		names = append(names, partition)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return names, nil
}

func (r *Redis) DeletePartition(ctx context.Context, partition string) error {
	iter := r.raw.Scan(ctx, 0, redisKeyNamespace+":"+partition+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.raw.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close shuts down the underlying client.
func (r *Redis) Close() error {
	return r.raw.Close()
}

func entryKey(partition, key string) string {
	return redisKeyNamespace + ":" + partition + ":" + key
}

// partitionFromKey pulls the partition segment out of a stored key.
// Partition names never contain colons, the request key after them may.
func partitionFromKey(full string) (string, bool) {
	rest, ok := strings.CutPrefix(full, redisKeyNamespace+":")
	if !ok {
		return "", false
	}
	partition, _, ok := strings.Cut(rest, ":")
	if !ok || partition == "" {
		return "", false
	}
	return partition, true
}
