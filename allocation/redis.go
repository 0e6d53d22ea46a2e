package allocation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis so a handheld that reconnects, or lands
// on another instance, resumes where it left off.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(palletCode, operator string) string {
	return fmt.Sprintf("crossdock:session:%s:%s", palletCode, operator)
}

func (r *RedisStore) Get(ctx context.Context, palletCode, operator string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(palletCode, operator)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	return &s, json.Unmarshal(data, &s)
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(s.PalletCode, s.Operator), data, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, palletCode, operator string) error {
	return r.client.Del(ctx, sessionKey(palletCode, operator)).Err()
}
