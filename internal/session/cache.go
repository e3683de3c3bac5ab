package session

import (
	"context"
	"fmt"

	"github.com/giantswarm/mcp-oauth/storage"
	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/google"
)

var _ google.TokenProvider = (*TokenCache)(nil)

// TokenCache remembers the latest token seen for each validated account so
// background jobs can act on a user's behalf between requests.
type TokenCache struct {
	store storage.TokenStore
}

// NewTokenCache wraps store. The caller owns the store's lifecycle.
func NewTokenCache(store storage.TokenStore) *TokenCache {
	return &TokenCache{store: store}
}

// Save stores token for account.
func (c *TokenCache) Save(ctx context.Context, account string, token *oauth2.Token) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if err := c.store.SaveToken(ctx, account, token); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// Get returns the cached token for account.
func (c *TokenCache) Get(ctx context.Context, account string) (*oauth2.Token, error) {
	token, err := c.store.GetToken(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no cached token for account: %w", err)
	}
	return token, nil
}

// GetTokenForAccount implements google.TokenProvider.
func (c *TokenCache) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	return c.Get(ctx, account)
}

// HasTokenForAccount implements google.TokenProvider.
func (c *TokenCache) HasTokenForAccount(account string) bool {
	_, err := c.store.GetToken(context.Background(), account)
	return err == nil
}
