package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the redis backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis keeps the resolution cache in a redis instance
type Redis struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedis connects and pings the server
func NewRedis(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client:    client,
		keyPrefix: "url:",
		ttl:       ttl,
	}
}

func (r *Redis) Get(ctx context.Context, code string) (string, error) {
	v, err := r.client.Get(ctx, r.keyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, code, originalURL string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, r.keyPrefix+code, originalURL, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	return r.client.Del(ctx, r.keyPrefix+code).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
