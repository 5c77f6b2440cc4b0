package accounts

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Revocations records sessions that must no longer authenticate even though
// their signature and expiry are still valid.
type Revocations interface {
	RevokeSession(ctx context.Context, sess Session) error
	RevokeAccount(ctx context.Context, accountID uuid.UUID, at time.Time) error
	IsRevoked(ctx context.Context, sess Session) (bool, error)
}

// NoRevocations is used when no revocation store is configured. Logout then
// relies on the client dropping its cookie.
type NoRevocations struct{}

func (NoRevocations) RevokeSession(context.Context, Session) error              { return nil }
func (NoRevocations) RevokeAccount(context.Context, uuid.UUID, time.Time) error { return nil }
func (NoRevocations) IsRevoked(context.Context, Session) (bool, error)          { return false, nil }

type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisRevocations keeps revoked session ids, and per-account "logged out
// everywhere" cutoffs, in Redis. Keys expire once no session they could
// match is still valid.
type RedisRevocations struct {
	client     redisClient
	sessionTTL time.Duration
}

// NewRedisRevocations returns a revocation set on client. sessionTTL bounds
// how long account cutoffs are kept.
func NewRedisRevocations(client redisClient, sessionTTL time.Duration) *RedisRevocations {
	return &RedisRevocations{client: client, sessionTTL: sessionTTL}
}

func sessionKey(id string) string    { return "gamelog:revoked:session:" + id }
func accountKey(id uuid.UUID) string { return "gamelog:revoked:account:" + id.String() }

func (r *RedisRevocations) RevokeSession(ctx context.Context, sess Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, sessionKey(sess.ID), 1, ttl).Err()
}

func (r *RedisRevocations) RevokeAccount(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return r.client.Set(ctx, accountKey(accountID), at.UnixMilli(), r.sessionTTL).Err()
}

// IsRevoked reports whether sess was revoked individually, or was issued no
// later than its account's cutoff millisecond.
func (r *RedisRevocations) IsRevoked(ctx context.Context, sess Session) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(sess.ID)).Result()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	raw, err := r.client.Get(ctx, accountKey(sess.AccountID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, err
	}
	return sess.IssuedAt.UnixMilli() <= cutoff, nil
}
