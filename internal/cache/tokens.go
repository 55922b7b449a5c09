package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Token namespaces.
const (
	ForgetPasswordPrefix = "forget-password:"
	OAuthStatePrefix     = "oauth-state:"
)

// ErrNoStore is returned when Redis is not configured.
var ErrNoStore = errors.New("token store unavailable")

// TokenStore keeps single-use tokens in Redis.
type TokenStore struct {
	rdb *redis.Client
}

// NewTokenStore returns a store backed by rdb.
func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// Issue stores value under a fresh random token and returns the token.
func (s *TokenStore) Issue(ctx context.Context, prefix, value string, ttl time.Duration) (string, error) {
	if s.rdb == nil {
		return "", ErrNoStore
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, prefix+token, value, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume returns the value stored for token and deletes it. ok is false if
// the token is unknown or expired.
func (s *TokenStore) Consume(ctx context.Context, prefix, token string) (value string, ok bool, err error) {
	if s.rdb == nil {
		return "", false, ErrNoStore
	}
	value, err = s.rdb.GetDel(ctx, prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
