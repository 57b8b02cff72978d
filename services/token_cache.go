package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/monitoring"
	"github.com/punguzo/mlm_backend/repositories"
)

// tokenExpiryMargin retires tokens slightly before the provider does.
const tokenExpiryMargin = 30 * time.Second

// TokenFetcher obtains a fresh token and its lifetime from a provider.
type TokenFetcher func(ctx context.Context) (token string, ttl time.Duration, err error)

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenCache is a process-wide access token cache keyed by provider. Concurrent
// misses for one provider share a single fetch. Tokens are also persisted so other
// processes can reuse them.
type TokenCache struct {
	mu       sync.Mutex
	tokens   map[string]cachedToken
	rejected map[string]string
	group    singleflight.Group
	store    repositories.AccessRepository
	now      func() time.Time
}

func NewTokenCache(store repositories.AccessRepository) *TokenCache {
	return &TokenCache{
		tokens:   make(map[string]cachedToken),
		rejected: make(map[string]string),
		store:    store,
		now:      time.Now,
	}
}

func storeKey(provider string) string {
	return provider + "_token"
}

func (c *TokenCache) lookup(provider string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tokens[provider]
	if !ok || !c.now().Add(tokenExpiryMargin).Before(t.expiresAt) {
		return "", false
	}
	return t.value, true
}

// Get returns a valid token for provider, fetching one if none is cached.
func (c *TokenCache) Get(ctx context.Context, provider string, fetch TokenFetcher) (string, error) {
	if token, ok := c.lookup(provider); ok {
		return token, nil
	}

	v, err, _ := c.group.Do(provider, func() (interface{}, error) {
		if token, ok := c.lookup(provider); ok {
			return token, nil
		}
		if token, ok := c.loadPersisted(ctx, provider); ok {
			return token, nil
		}

		token, ttl, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		monitoring.FeedTokenRefreshes.Inc()

		now := c.now()
		expiresAt := now.Add(ttl)
		c.mu.Lock()
		c.tokens[provider] = cachedToken{value: token, expiresAt: expiresAt}
		delete(c.rejected, provider)
		c.mu.Unlock()

		if c.store != nil {
			if err := c.store.Put(ctx, &models.AccessToken{
				Key:       storeKey(provider),
				Value:     token,
				ExpiresAt: expiresAt,
				UpdatedAt: now,
			}); err != nil {
				logging.Logger.Warn("failed to persist access token", zap.String("provider", provider), zap.Error(err))
			}
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *TokenCache) loadPersisted(ctx context.Context, provider string) (string, bool) {
	if c.store == nil {
		return "", false
	}
	saved, err := c.store.Get(ctx, storeKey(provider))
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logging.Logger.Warn("failed to read persisted access token", zap.String("provider", provider), zap.Error(err))
		}
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if saved.Value == "" || saved.Value == c.rejected[provider] ||
		!c.now().Add(tokenExpiryMargin).Before(saved.ExpiresAt) {
		return "", false
	}
	c.tokens[provider] = cachedToken{value: saved.Value, expiresAt: saved.ExpiresAt}
	return saved.Value, true
}

// Invalidate drops token if it is still the cached one for provider, and keeps the
// persisted copy from being reloaded.
func (c *TokenCache) Invalidate(provider, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tokens[provider]; ok && t.value == token {
		delete(c.tokens, provider)
	}
	c.rejected[provider] = token
}
