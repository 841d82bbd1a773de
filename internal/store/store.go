// Package store caches computed public values by algorithm and index, so that
// repeated requests do not recompute them. Two backends exist: a bounded
// in-process LRU and redis.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agbru/zkfib/internal/logging"
	"github.com/agbru/zkfib/internal/publicvalues"
)

// Store is a cache of public values keyed by (algorithm, n).
type Store interface {
	// Get returns the cached record. ok is false on a miss.
	Get(ctx context.Context, algo string, n uint32) (pv publicvalues.PublicValues, ok bool, err error)
	// Put stores the record computed by algo.
	Put(ctx context.Context, algo string, pv publicvalues.PublicValues) error
	// Close releases the backend.
	Close() error
}

// DefaultCapacity is the number of records kept by the in-memory store.
const DefaultCapacity = 4096

// Key returns the cache key of a record.
func Key(algo string, n uint32) string {
	return fmt.Sprintf("zkfib:pv:%s:%d", algo, n)
}

// Open returns a redis-backed Store when addr is set and an in-memory one
// otherwise.
func Open(ctx context.Context, addr string, ttl time.Duration, logger logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if addr == "" {
		logger.Debug("using in-memory record cache", logging.Int("capacity", DefaultCapacity))
		return NewMemoryStore(DefaultCapacity), nil
	}
	s, err := NewRedisStore(ctx, RedisConfig{Address: addr, TTL: ttl})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to redis record cache", logging.String("addr", addr))
	return s, nil
}
