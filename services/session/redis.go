package sessionsvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
)

const revokedPrefix = "aurora:session:revoked:"

// RedisStore keeps revoked token ids as keys expiring with the token.
type RedisStore struct {
	client *redis.Client
}

var _ core.SessionStore = (*RedisStore)(nil)

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := s.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err()
	return errors.Wrap(err, "revoking session")
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, revokedPrefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, errors.Wrap(err, "checking session")
	}
}
