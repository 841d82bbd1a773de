package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agbru/zkfib/internal/publicvalues"
)

// RedisConfig describes the redis connection.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// TTL is the lifetime of a record. Zero keeps records forever.
	TTL time.Duration
}

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisStore keeps records as JSON strings in redis.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisStore connects to redis and checks the connection with PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("store: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: connecting to redis at %s: %w", cfg.Address, err)
	}
	return newRedisStore(client, cfg.TTL), nil
}

func newRedisStore(client redisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get reads and decodes the record stored for (algo, n). A missing key is a
// miss, not an error.
func (s *RedisStore) Get(ctx context.Context, algo string, n uint32) (publicvalues.PublicValues, bool, error) {
	raw, err := s.client.Get(ctx, Key(algo, n)).Bytes()
	if errors.Is(err, redis.Nil) {
		return publicvalues.PublicValues{}, false, nil
	}
	if err != nil {
		return publicvalues.PublicValues{}, false, fmt.Errorf("store: redis get: %w", err)
	}
	var pv publicvalues.PublicValues
	if err := json.Unmarshal(raw, &pv); err != nil {
		return publicvalues.PublicValues{}, false, fmt.Errorf("store: decoding cached record: %w", err)
	}
	if pv.N != n {
		return publicvalues.PublicValues{}, false, fmt.Errorf("store: cached record for n=%d holds n=%d", n, pv.N)
	}
	return pv, true, nil
}

// Put stores pv as JSON under (algo, pv.N) with the configured TTL.
func (s *RedisStore) Put(ctx context.Context, algo string, pv publicvalues.PublicValues) error {
	raw, err := json.Marshal(pv)
	if err != nil {
		return fmt.Errorf("store: encoding record: %w", err)
	}
	if err := s.client.Set(ctx, Key(algo, pv.N), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

// Close closes the redis client. It is safe on a nil store.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
