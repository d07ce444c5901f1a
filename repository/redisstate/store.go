// Package redisstate stores authorization states in Redis. Expiry is left
// to key TTLs and consumption uses GETDEL.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the state keys.
const DefaultPrefix = "socialflow:oauth:state:"

// Store implements oauth.StateStore.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ oauth.StateStore = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New wraps client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewFromURL parses a redis:// URL.
func NewFromURL(rawURL string, opts ...Option) (*Store, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(options), opts...), nil
}

// CreateState implements oauth.StateStore.
func (s *Store) CreateState(ctx context.Context, state *oauth.OAuthState) error {
	if state == nil {
		return errors.New("oauth state is nil")
	}

	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("oauth state already expired at %s", state.ExpiresAt.Format(time.RFC3339))
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode oauth state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(state.Platform, state.State), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return errors.New("oauth state already exists")
	}
	return nil
}

// ConsumeState implements oauth.StateStore. Keys are scoped by platform so
// a mismatched platform never touches the stored record.
func (s *Store) ConsumeState(ctx context.Context, platform oauth.Platform, value string, now time.Time) (*oauth.OAuthState, error) {
	raw, err := s.client.GetDel(ctx, s.key(platform, value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, oauth.NewInvalidState()
		}
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}

	record := new(oauth.OAuthState)
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}
	// TTL resolution is coarser than the stored expiry.
	if record.Expired(now) {
		return nil, oauth.NewInvalidState()
	}
	return record, nil
}

// DeleteExpiredStates implements oauth.StateStore. Redis already evicts
// expired keys, so there is never anything to sweep.
func (s *Store) DeleteExpiredStates(ctx context.Context, now time.Time) (int64, error) {
	return 0, ctx.Err()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(platform oauth.Platform, value string) string {
	return s.prefix + string(platform) + ":" + value
}
