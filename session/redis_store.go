package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session under a single Redis key.
//
//	Performance: 1 Redis command per operation.
type RedisStore struct {
	redis  redis.UniversalClient
	key    string
	ttl    time.Duration
	sealer *Sealer
}

// NewRedisStore creates a [RedisStore]. ttl of zero keeps the key without expiry;
// sealer may be nil.
func NewRedisStore(client redis.UniversalClient, key string, ttl time.Duration, sealer *Sealer) *RedisStore {
	if key == "" {
		key = "authclient:session"
	}
	return &RedisStore{
		redis:  client,
		key:    key,
		ttl:    ttl,
		sealer: sealer,
	}
}

func (s *RedisStore) Load(ctx context.Context) (Session, error) {
	blob, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Anonymous(), nil
		}
		return Session{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return unmarshal(s.sealer, blob)
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	blob, err := marshal(s.sealer, sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
