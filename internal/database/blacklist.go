package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const blacklistKeyPrefix = "ackportal:token:blacklist:"

// blacklistKey hashes the token so raw JWTs never land in Redis
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistKeyPrefix + hex.EncodeToString(sum[:])
}

// BlacklistToken marks a token as revoked until it would have expired anyway
func BlacklistToken(token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	ctx := context.Background()
	return Redis.Set(ctx, blacklistKey(token), "revoked", ttl).Err()
}

// IsTokenBlacklisted reports whether a token has been revoked via logout
func IsTokenBlacklisted(token string) bool {
	ctx := context.Background()
	n, err := Redis.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		// Redis unavailable: treat the token as not revoked
		return false
	}
	return n > 0
}
