// Package ratelimit backs fiber's limiter middleware with redis so counters are shared across instances.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "civisense:rl:"

// Storage implements fiber.Storage on a redis client. Keys are namespaced by Prefix.
type Storage struct {
	Client  *redis.Client
	Prefix  string
	Timeout time.Duration
}

var _ fiber.Storage = (*Storage)(nil)

func New(client *redis.Client) *Storage {
	return &Storage{Client: client, Prefix: defaultPrefix, Timeout: 2 * time.Second}
}

// Open parses a redis:// URL and verifies the server is reachable.
func Open(ctx context.Context, url string) (*Storage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client), nil
}

func (s *Storage) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	val, err := s.Client.Get(ctx, s.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.Client.Set(ctx, s.Prefix+key, val, exp).Err()
}

func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.Client.Del(ctx, s.Prefix+key).Err()
}

// Reset removes every key under Prefix.
func (s *Storage) Reset() error {
	ctx, cancel := s.ctx()
	defer cancel()
	iter := s.Client.Scan(ctx, 0, s.Prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(ctx, keys...).Err()
}

func (s *Storage) Close() error {
	return s.Client.Close()
}
