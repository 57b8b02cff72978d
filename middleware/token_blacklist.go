package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist remembers tokens invalidated by logout until they would have expired anyway.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, token string, expiresAt time.Time) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

// NewTokenBlacklist stores revoked tokens in Redis, or in process memory when client is nil.
func NewTokenBlacklist(client *redis.Client) TokenBlacklist {
	if client == nil {
		return NewMemoryBlacklist()
	}
	return &RedisBlacklist{client: client}
}

// RedisBlacklist keeps one key per revoked token with a TTL matching the token's expiry.
type RedisBlacklist struct {
	client *redis.Client
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "blacklisted_token:" + hex.EncodeToString(sum[:])
}

func (b *RedisBlacklist) BlacklistToken(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKey(token), 1, ttl).Err()
}

func (b *RedisBlacklist) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryBlacklist is a single-instance fallback. Expired entries are swept on every write.
type MemoryBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{tokens: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) BlacklistToken(_ context.Context, token string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for t, expiry := range b.tokens {
		if !now.Before(expiry) {
			delete(b.tokens, t)
		}
	}
	if now.Before(expiresAt) {
		b.tokens[blacklistKey(token)] = expiresAt
	}
	return nil
}

func (b *MemoryBlacklist) IsTokenBlacklisted(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.tokens[blacklistKey(token)]
	return ok && b.now().Before(expiry), nil
}
