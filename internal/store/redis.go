package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/models"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key holds the JSON array written by the ingestion service
	Key         string
	DialTimeout time.Duration
	ReadTimeout time.Duration
	PoolSize    int
	MaxRetries  int
}

// DefaultRedisConfig returns the settings used by the ingestion service.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		Key:         "analyzed_errors",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 5 * time.Second,
		PoolSize:    10,
		MaxRetries:  3,
	}
}

// RedisStore reads the record array from a single Redis string key.
type RedisStore struct {
	config  RedisConfig
	client  *redis.Client
	decoder *Decoder
	logger  *logging.Logger
}

// NewRedisStore creates the client. No connection is made until first use.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	if config.Key == "" {
		return nil, fmt.Errorf("redis key must not be empty")
	}
	decoder, err := NewDecoder()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.DialTimeout,
		ReadTimeout: config.ReadTimeout,
		PoolSize:    config.PoolSize,
		MaxRetries:  config.MaxRetries,
	})

	return &RedisStore{
		config:  config,
		client:  client,
		decoder: decoder,
		logger:  logging.GetLogger("store.redis"),
	}, nil
}

// Snapshot reads and decodes the record key. A missing key means no data
// has been uploaded yet and yields an empty snapshot.
func (s *RedisStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	payload, err := s.client.Get(ctx, s.config.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.Debug("Key %s not present, returning empty snapshot", s.config.Key)
		return s.decoder.Decode(nil)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: read %s from redis at %s: %v", models.ErrUpstreamUnavailable, s.config.Key, s.config.Addr, err)
	}

	snap, err := s.decoder.Decode(payload)
	if err != nil {
		return nil, err
	}
	s.logger.DebugWithFields("Loaded snapshot from redis",
		logging.Field("key", s.config.Key),
		logging.Field("records", len(snap.Records)),
		logging.Field("bytes", len(payload)),
	)
	return snap, nil
}

// Ping checks that Redis answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
