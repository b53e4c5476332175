package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/app"
)

var ErrTokenInvalid = errors.New("invalid or expired token")

// ResetTokens keeps password-reset tokens in Redis so they expire on
// their own and survive a server restart, unlike the in-memory chat
// state which is deliberately ephemeral.
type ResetTokens struct {
	rdb *redis.Client
	log *slog.Logger
	ttl time.Duration
}

// NewResetTokens connects to redis and verifies connectivity
func NewResetTokens(ctx context.Context, cfg app.Config, log *slog.Logger) (*ResetTokens, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &ResetTokens{rdb: rdb, log: log, ttl: time.Hour}, nil
}

// Issue creates a single-use token for the user.
func (t *ResetTokens) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := t.rdb.Set(ctx, key(token), userID, t.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume validates a token and burns it, returning the user it was
// issued for. GETDEL makes consumption atomic; a token can only ever
// reset one password.
func (t *ResetTokens) Consume(ctx context.Context, token string) (string, error) {
	userID, err := t.rdb.GetDel(ctx, key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// Close shuts down the redis connection
func (t *ResetTokens) Close() { _ = t.rdb.Close() }

// key namespacing for reset tokens
func key(token string) string { return "pwreset:" + token }
