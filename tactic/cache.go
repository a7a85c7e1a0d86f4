package tactic

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// SuggestionCache remembers ranked candidates per (model, state, prefix) so
// repeated queries from a prover's search loop skip the provider round trip.
// Only successful results are stored.
type SuggestionCache struct {
	mu      sync.RWMutex
	cache   map[string]*cachedSuggestions
	ttl     time.Duration
	maxSize int
	hits    int64
	misses  int64
}

type cachedSuggestions struct {
	cands     []Candidate
	timestamp time.Time
}

// NewSuggestionCache creates a cache with the specified TTL and max size.
func NewSuggestionCache(ttl time.Duration, maxSize int) *SuggestionCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &SuggestionCache{
		cache:   make(map[string]*cachedSuggestions),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// cacheKey hashes model, state and prefix with separators so that field
// boundaries cannot collide.
func (sc *SuggestionCache) cacheKey(model, state, prefix string) string {
	h := sha256.New()
	for _, part := range []string{model, state, prefix} {
		fmt.Fprintf(h, "%d:%s", len(part), part)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns a copy of the cached candidates if present and not expired.
func (sc *SuggestionCache) Get(model, state, prefix string) ([]Candidate, bool) {
	key := sc.cacheKey(model, state, prefix)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	cached, exists := sc.cache[key]
	if !exists || time.Since(cached.timestamp) > sc.ttl {
		sc.misses++
		return nil, false
	}
	sc.hits++
	return append([]Candidate(nil), cached.cands...), true
}

// Set stores candidates, evicting the oldest entry when full.
func (sc *SuggestionCache) Set(model, state, prefix string, cands []Candidate) {
	key := sc.cacheKey(model, state, prefix)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if _, exists := sc.cache[key]; !exists && len(sc.cache) >= sc.maxSize {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range sc.cache {
			if oldestTime.IsZero() || v.timestamp.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.timestamp
			}
		}
		if oldestKey != "" {
			delete(sc.cache, oldestKey)
		}
	}

	sc.cache[key] = &cachedSuggestions{
		cands:     append([]Candidate(nil), cands...),
		timestamp: time.Now(),
	}
}

// Stats returns cache hit/miss statistics.
func (sc *SuggestionCache) Stats() (hits, misses int64) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.hits, sc.misses
}

// Len reports the number of stored entries, expired ones included.
func (sc *SuggestionCache) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

// Clear removes all cached entries.
func (sc *SuggestionCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache = make(map[string]*cachedSuggestions)
	sc.hits = 0
	sc.misses = 0
}
