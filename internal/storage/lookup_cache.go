package storage

import (
	"context"
	"fmt"

	"github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/docbase/docbase/internal/types"
)

// LookupCache memoizes the simple (equality) form of $lookup: the
// result array for a given (foreign collection, join value) pair, so a
// pipeline joining N outer documents against the same foreign
// collection doesn't rescan it N times. The pipeline form of $lookup
// is never cached here since its result additionally depends on
// per-document `let` bindings.
type LookupCache struct {
	store *cache.Cache[[]*types.Document]
}

// NewLookupCache creates a LookupCache backed by an in-process
// go-cache store (the teacher's process-local caching idiom), with no
// expiration -- a pipeline run's cache lifetime is the run itself.
func NewLookupCache() *LookupCache {
	client := gocache.New(gocache.NoExpiration, gocache.NoExpiration)
	store := gocache_store.NewGoCache(client)

	return &LookupCache{store: cache.New[[]*types.Document](store)}
}

func lookupCacheKey(from string, joinValue any) string {
	return fmt.Sprintf("%s\x00%v\x00%T", from, joinValue, joinValue)
}

// Get returns the cached join result for (from, joinValue), if present.
func (c *LookupCache) Get(ctx context.Context, from string, joinValue any) ([]*types.Document, bool) {
	v, err := c.store.Get(ctx, lookupCacheKey(from, joinValue))
	if err != nil {
		return nil, false
	}

	return v, true
}

// Set stores the join result for (from, joinValue).
func (c *LookupCache) Set(ctx context.Context, from string, joinValue any, result []*types.Document) {
	_ = c.store.Set(ctx, lookupCacheKey(from, joinValue), result)
}
