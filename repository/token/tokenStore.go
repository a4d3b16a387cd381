// repository/token/tokenStore.go
package tokenrepo

import (
	"context"
	"time"

	"librarycatalog/util/cache"
)

const blacklistPrefix = "blacklist:jti:"

// Store keeps logged-out token IDs in redis until the tokens would have
// expired anyway.
type Store interface {
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

type store struct{ cache *cache.Client }

func New(c *cache.Client) Store { return &store{cache: c} }

func (s *store) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	return s.cache.Set(ctx, blacklistPrefix+jti, []byte("1"), ttl)
}

func (s *store) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	data, err := s.cache.Get(ctx, blacklistPrefix+jti)
	if err != nil {
		// fail safe: treat redis trouble as not blacklisted
		return false, nil
	}
	return data != nil, nil
}
