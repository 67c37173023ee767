package auth

import (
	"context"
	"time"

	"userhub/internal/cache"
)

const accessTokenKeyPrefix = "blacklist:access_token:"

// BlacklistStore records revoked access-token IDs until their natural
// expiry. Backed by Redis and fail-safe: if Redis is down, tokens are
// treated as not blacklisted and expire on their own.
type BlacklistStore interface {
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

type blacklistStore struct {
	cache *cache.Client
}

var _ BlacklistStore = (*blacklistStore)(nil)

// NewBlacklistStore creates a Redis-backed blacklist store.
func NewBlacklistStore(cache *cache.Client) BlacklistStore {
	return &blacklistStore{cache: cache}
}

// BlacklistAccessToken marks a token ID revoked for the remaining lifetime
// of the token.
func (s *blacklistStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := accessTokenKeyPrefix + tokenID
	return s.cache.Set(ctx, key, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks whether a token ID has been revoked.
func (s *blacklistStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	key := accessTokenKeyPrefix + tokenID
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return false, nil
	}
	return data != nil, nil
}
