package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quickref/internal/models"
	"quickref/internal/redis"
)

const redisKeyPrefix = "quickref:session:"

// RedisStore keeps sessions as JSON values whose redis TTL matches the session TTL, so expiry
// needs no cleaner.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore takes ownership of client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, content string) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		se := newSession(content, time.Now().UTC(), s.ttl)
		payload, err := json.Marshal(se)
		if err != nil {
			return "", fmt.Errorf("encode session: %w", err)
		}
		ok, err := s.client.SetNX(ctx, redisKey(se.ID), payload, s.ttl)
		if err != nil {
			return "", fmt.Errorf("store session: %w", err)
		}
		if ok {
			return se.ID, nil
		}
	}
	return "", errors.New("store session: could not allocate a unique id")
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.ContextSession, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	raw, err := s.client.Get(ctx, redisKey(id))
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var se models.ContextSession
	if err := json.Unmarshal([]byte(raw), &se); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if se.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &se, nil
}

func (s *RedisStore) Invalidate(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	n, err := s.client.Del(ctx, redisKey(id))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
