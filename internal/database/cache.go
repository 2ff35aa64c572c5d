package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// Cache key prefixes
	CacheKeySettings   = "ackportal:settings"
	CacheKeyBusinesses = "ackportal:businesses:all"
	CacheKeyProgress   = "ackportal:progress:"
	CacheKeyMilestone  = "ackportal:milestone:"

	// Cache TTLs
	CacheTTLSettings   = 5 * time.Minute
	CacheTTLBusinesses = 5 * time.Minute
	CacheTTLProgress   = 30 * time.Second
)

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes a key from Redis cache
func CacheDelete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// CacheDeletePattern deletes all keys matching a pattern (use with caution)
func CacheDeletePattern(pattern string) error {
	ctx := context.Background()
	iter := Redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return Redis.Del(ctx, keys...).Err()
	}
	return nil
}

// CacheSetNX sets a key only if it does not exist. Returns true if the key
// was set by this call. Used as a cheap guard in front of the milestone
// ledger's unique constraint.
func CacheSetNX(key, value string, ttl time.Duration) (bool, error) {
	ctx := context.Background()
	return Redis.SetNX(ctx, key, value, ttl).Result()
}

// InvalidateSettingsCache clears settings cache
func InvalidateSettingsCache() {
	CacheDelete(CacheKeySettings)
}

// InvalidateBusinessesCache clears the business lookup cache
func InvalidateBusinessesCache() {
	CacheDelete(CacheKeyBusinesses)
}

// InvalidateProgressCache clears cached progress for a batch
func InvalidateProgressCache(batchID uint) {
	CacheDeletePattern(fmt.Sprintf("%s%d:*", CacheKeyProgress, batchID))
}
