// Package redisflags keeps the one-shot automatic sync flag in Redis.
package redisflags

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 90 * 24 * time.Hour

// Store implements billing.AttemptFlags with SET NX.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func New(client redis.UniversalClient, prefix string) *Store {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "storyforge:sync_attempted"
	}
	return &Store{client: client, prefix: p, ttl: defaultTTL}
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func (s *Store) key(subscriptionID string) string {
	return s.prefix + ":" + subscriptionID
}

// MarkAttempted reports true only for the first caller per subscription id.
func (s *Store) MarkAttempted(ctx context.Context, subscriptionID string, userID uint) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(subscriptionID), userID, s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Attempted reports whether the flag is set, without setting it.
func (s *Store) Attempted(ctx context.Context, subscriptionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(subscriptionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
