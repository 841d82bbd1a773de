package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agbru/zkfib/internal/publicvalues"
)

// MemoryStore is a bounded in-process cache that evicts the least recently
// used record. It is safe for concurrent use.
type MemoryStore struct {
	cache *lru.Cache[string, publicvalues.PublicValues]
}

// NewMemoryStore returns a store holding at most capacity records.
// A capacity below 1 is treated as 1.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = 1
	}
	// lru.New only fails on a non-positive size.
	cache, err := lru.New[string, publicvalues.PublicValues](capacity)
	if err != nil {
		panic("store: " + err.Error())
	}
	return &MemoryStore{cache: cache}
}

// Get returns the record cached for (algo, n) and marks it as recently used.
func (s *MemoryStore) Get(_ context.Context, algo string, n uint32) (publicvalues.PublicValues, bool, error) {
	pv, ok := s.cache.Get(Key(algo, n))
	return pv, ok, nil
}

// Put caches pv under (algo, pv.N), replacing any previous record and
// evicting the oldest one when the store is full.
func (s *MemoryStore) Put(_ context.Context, algo string, pv publicvalues.PublicValues) error {
	s.cache.Add(Key(algo, pv.N), pv)
	return nil
}

// Len returns the number of cached records.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Close drops every cached record.
func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
