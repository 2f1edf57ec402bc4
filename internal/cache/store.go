// Package cache holds the in-process lead cache: a size-bounded LRU whose
// entries expire by TTL checked at read time.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_cache_hits_total",
		Help: "Total lead cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_cache_misses_total",
		Help: "Total lead cache misses, expired entries included.",
	})
	cacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_cache_invalidated_keys_total",
		Help: "Total keys removed by explicit invalidation.",
	})
)

type entry struct {
	value    any
	storedAt time.Time
}

// Store is safe for concurrent use. There is no background sweep; an expired
// entry stays resident until it is read, evicted by size, or invalidated.
//
// Every Invalidate bumps a generation counter. A reader that loads from the
// row store takes the generation first and stores with SetIfGeneration, so a
// snapshot read before an invalidation is never cached after it.
type Store struct {
	entries *lru.Cache[string, entry]
	ttl     time.Duration
	now     func() time.Time

	mu         sync.Mutex
	generation uint64
}

func NewStore(maxEntries int, ttl time.Duration) (*Store, error) {
	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &Store{entries: entries, ttl: ttl, now: time.Now}, nil
}

// Get returns the value and the time it was stored. A hit older than the TTL
// is removed and reported as a miss.
func (s *Store) Get(key string) (any, time.Time, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		cacheMissesTotal.Inc()
		return nil, time.Time{}, false
	}
	if s.now().Sub(e.storedAt) >= s.ttl {
		s.entries.Remove(key)
		cacheMissesTotal.Inc()
		return nil, time.Time{}, false
	}
	cacheHitsTotal.Inc()
	return e.value, e.storedAt, true
}

func (s *Store) Set(key string, value any) {
	s.entries.Add(key, entry{value: value, storedAt: s.now()})
}

// Generation returns the current invalidation generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// SetIfGeneration stores value only if no Invalidate ran since gen was read.
func (s *Store) SetIfGeneration(key string, value any, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.entries.Add(key, entry{value: value, storedAt: s.now()})
	return true
}

// Invalidate bumps the generation and removes every key under the given
// prefixes. It returns how many keys were removed.
func (s *Store) Invalidate(prefixes ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	removed := 0
	for _, prefix := range prefixes {
		removed += s.DeletePrefix(prefix)
	}
	return removed
}

func (s *Store) Delete(key string) {
	s.entries.Remove(key)
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (s *Store) DeletePrefix(prefix string) int {
	removed := 0
	for _, key := range s.entries.Keys() {
		if strings.HasPrefix(key, prefix) && s.entries.Remove(key) {
			removed++
		}
	}
	cacheInvalidationsTotal.Add(float64(removed))
	return removed
}

func (s *Store) Len() int {
	return s.entries.Len()
}
