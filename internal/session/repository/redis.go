package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	profiledomain "staff-dashboard/internal/profile/domain"
)

const (
	fieldToken   = "token"
	fieldProfile = "profile"
)

// RedisStore keeps the session for one client in a Redis hash at staffdash:session:<clientID>.
type RedisStore struct {
	rdb      *redis.Client
	clientID string
	ttl      time.Duration
}

// NewRedisStore returns a store for clientID. A positive ttl sets the key expiry on every Save.
func NewRedisStore(rdb *redis.Client, clientID string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, clientID: clientID, ttl: ttl}
}

func (s *RedisStore) key() string {
	return "staffdash:session:" + s.clientID
}

func (s *RedisStore) GetToken(ctx context.Context) (string, error) {
	token, err := s.rdb.HGet(ctx, s.key(), fieldToken).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) GetCachedProfile(ctx context.Context) (*profiledomain.Profile, error) {
	raw, err := s.rdb.HGet(ctx, s.key(), fieldProfile).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis session: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var p profiledomain.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("redis session: decode profile: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Save(ctx context.Context, token string, p *profiledomain.Profile) error {
	var profileJSON []byte
	if p != nil {
		var err error
		if profileJSON, err = json.Marshal(p); err != nil {
			return err
		}
	}
	key := s.key()
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldToken, token, fieldProfile, string(profileJSON))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("redis session: %w", err)
	}
	return nil
}
