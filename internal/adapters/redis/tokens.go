package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/observability"
)

// TokenCache keeps exchanged access tokens warm across job invocations,
// keyed by organization. Strictly best-effort: every failure degrades to a
// fresh exchange at the vault.
type TokenCache struct{ c *redis.Client }

func New(addr, pass string, db int) *TokenCache {
	return &TokenCache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func key(orgID int64) string { return fmt.Sprintf("gbp_token:%d", orgID) }

func (t *TokenCache) Get(ctx context.Context, orgID int64) (string, bool, error) {
	v, err := t.c.Get(ctx, key(orgID)).Result()
	if err == redis.Nil {
		observability.ObserveTokenCache("miss")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	observability.ObserveTokenCache("hit")
	return v, true, nil
}

func (t *TokenCache) Set(ctx context.Context, orgID int64, token string, ttl time.Duration) error {
	observability.ObserveTokenCache("set")
	return t.c.Set(ctx, key(orgID), token, ttl).Err()
}
