package actions

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/onwatch/sentinel/internal/cache"
)

// TokenSource caches an OAuth2 client-credentials token per config,
// refetching only once the cached token's remaining lifetime runs out.
// The cache TTL undershoots the token's own expiry (min(expires_in-5s,
// 60s)) so a token is never handed out within 5 seconds of expiring,
// while still never caching a short-lived token for longer than its
// own life.
type TokenSource struct {
	cache *cache.TTLCache[*oauth2.Token]
}

func NewTokenSource() *TokenSource {
	return &TokenSource{cache: cache.New[*oauth2.Token]()}
}

func (t *TokenSource) Token(ctx context.Context, cfg clientcredentials.Config) (*oauth2.Token, error) {
	key := cfg.ClientID + "|" + cfg.TokenURL
	if tok, ok := t.cache.Get(key); ok {
		return tok, nil
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("actions: fetching oauth2 token: %w", err)
	}

	ttl := 60 * time.Second
	if !tok.Expiry.IsZero() {
		if remaining := time.Until(tok.Expiry) - 5*time.Second; remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		t.cache.Set(key, tok, ttl)
	}
	return tok, nil
}
