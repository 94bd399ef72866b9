package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second

	// DefaultKeyPrefix namespaces every key written by the store.
	DefaultKeyPrefix = "vid:"

	defaultConnectAttempts = 5
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces keys, "vid:" when empty.
	KeyPrefix string

	// TTL is the record lifetime from the last write.
	TTL time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore implements RequestStore on Redis. Each record is a JSON string
// written with SET EX; a set indexes the live ids for List and is pruned
// lazily as members expire.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ RequestStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis, retrying the initial PING with exponential backoff.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if err := validateRedisConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid redis configuration: %w", err)
	}

	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond
	expBackoff.MaxInterval = 5 * time.Second
	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(defaultConnectAttempts),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Warnf("redis at %s not reachable (%v), retrying in %v", cfg.Addr, err, d)
		}),
	)
	if err != nil {
		// Close the client to prevent resource leak
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisStoreWithClient creates a RedisStore with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func validateRedisConfig(cfg *RedisConfig) error {
	if cfg.Addr == "" {
		return errors.New("address is required")
	}
	if cfg.TTL <= 0 {
		return errors.New("ttl must be positive")
	}
	return nil
}

func (s *RedisStore) recordKey(requestID string) string {
	return s.keyPrefix + "request:" + requestID
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "requests"
}

// Put writes the record and adds it to the index.
func (s *RedisStore) Put(ctx context.Context, req *IssuanceRequest) error {
	if req == nil || req.RequestID == "" {
		return errors.New("request id cannot be empty")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal issuance request: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(req.RequestID), data, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), req.RequestID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store issuance request: %w", err)
	}
	return nil
}

// Get reads a record.
func (s *RedisStore) Get(ctx context.Context, requestID string) (*IssuanceRequest, error) {
	data, err := s.client.Get(ctx, s.recordKey(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get issuance request: %w", err)
	}

	var req IssuanceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal issuance request: %w", err)
	}
	return &req, nil
}

// Delete removes a record and its index entry.
func (s *RedisStore) Delete(ctx context.Context, requestID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(requestID))
		pipe.SRem(ctx, s.indexKey(), requestID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete issuance request: %w", err)
	}
	return nil
}

// List returns every live record. Index members whose record has expired
// are removed from the index.
func (s *RedisStore) List(ctx context.Context) ([]*IssuanceRequest, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list issuance requests: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load issuance requests: %w", err)
	}

	out := make([]*IssuanceRequest, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var req IssuanceRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			logger.Warnf("skipping unreadable issuance request %s: %v", ids[i], err)
			continue
		}
		out = append(out, &req)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			logger.Debugf("failed to prune request index: %v", err)
		}
	}
	return out, nil
}

// DeleteOlderThan removes records created before cutoff.
func (s *RedisStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rec := range records {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, rec.RequestID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Health checks Redis connectivity.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
