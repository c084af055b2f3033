package memory

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CacheSearchResult stores a search result for later semantic lookup.
// Upsert keyed by a content hash of (query, source): re-running the same
// search replaces the previous cache entry instead of accumulating
// near-duplicates.
func (s *Store) CacheSearchResult(ctx context.Context, query, result, source string) bool {
	col, ok := s.collection(CategorySearchResult)
	if !ok {
		return false
	}
	rec, err := shapeSearchResult(query, result, source, s.now())
	if err != nil {
		log.Printf("[MEMORY] cache search result: %v", err)
		return false
	}
	if !s.write(ctx, col.Upsert, CategorySearchResult, rec) {
		return false
	}

	if s.hot != nil {
		s.hot.set(query, result, s.now())
	}
	return true
}

// AddSearchResult is an alias for CacheSearchResult; the search-result
// category has no storage of its own beyond the cache.
func (s *Store) AddSearchResult(ctx context.Context, query, result, source string) bool {
	return s.CacheSearchResult(ctx, query, result, source)
}

// GetCachedSearch returns the cached result nearest to the query, if one
// exists that was written less than maxAge ago. The freshness test is
// strict, so maxAge of zero always misses.
//
// This is an approximate cache: a hit is the nearest semantic neighbor
// within the freshness window, not an exact key match. Callers must
// tolerate a hit produced by a near-duplicate rather than identical
// query.
func (s *Store) GetCachedSearch(ctx context.Context, query string, maxAge time.Duration) (string, bool) {
	col, ok := s.collection(CategorySearchResult)
	if !ok {
		return "", false
	}

	// Exact-key fast path. Best effort: a miss here says nothing, the
	// semantic path below is authoritative.
	if s.hot != nil {
		if result, ok := s.hot.get(query, maxAge, s.now()); ok {
			return result, true
		}
	}

	hits, err := col.Query(ctx, query, 1, nil)
	if err != nil {
		log.Printf("[MEMORY] cached search lookup: %v", err)
		return "", false
	}
	if len(hits) == 0 {
		return "", false
	}

	hit := hits[0]
	ts, ok := recordTime(Record{Metadata: hit.Metadata})
	if !ok {
		log.Printf("[MEMORY] cached search hit has no usable timestamp, treating as miss")
		return "", false
	}
	if s.now().Sub(ts) >= maxAge {
		return "", false
	}

	idx := strings.Index(hit.Document, resultMarker)
	if idx < 0 {
		log.Printf("[MEMORY] cached search hit has no result payload, treating as miss")
		return "", false
	}
	return hit.Document[idx+len(resultMarker):], true
}

// hotCache is a small in-process exact-key layer in front of the semantic
// cache. Entries carry their write time so reads apply the caller's own
// freshness window; the TTL only bounds residency.
type hotCache struct {
	cache *ristretto.Cache
}

type hotEntry struct {
	result  string
	written time.Time
}

func newHotCache() (*hotCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 22, // 4 MiB of payloads
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &hotCache{cache: cache}, nil
}

func (h *hotCache) set(query, result string, now time.Time) {
	h.cache.SetWithTTL(query, hotEntry{result: result, written: now}, int64(len(result)), DefaultCacheWindow)
}

func (h *hotCache) get(query string, maxAge time.Duration, now time.Time) (string, bool) {
	v, ok := h.cache.Get(query)
	if !ok {
		return "", false
	}
	entry, ok := v.(hotEntry)
	if !ok {
		return "", false
	}
	if now.Sub(entry.written) >= maxAge {
		return "", false
	}
	return entry.result, true
}
