package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/example/chainbadge/internal/metrics"
	"github.com/example/chainbadge/internal/query"
	"github.com/example/chainbadge/internal/source"
)

const (
	DefaultTTL          = 15 * time.Second
	DefaultSize         = 10_000
	DefaultFetchTimeout = 30 * time.Second

	SourceCache = "cache"
	SourceRPC   = "rpc"
)

// Fetcher is the uncached data source. *source.Source implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q query.Query) (*source.Response, error)
}

// Cache provides a bounded TTL cache of balance responses with singleflight
// coalescing per query key. Errors are never cached.
type Cache struct {
	next  Fetcher
	lru   *expirable.LRU[string, *source.Response]
	ttl   time.Duration
	group singleflight.Group

	// FetchTimeout bounds a shared fetch, which outlives any single caller.
	FetchTimeout time.Duration
}

// New returns a Cache in front of next. ttl <= 0 disables caching but keeps
// coalescing.
func New(next Fetcher, ttl time.Duration, size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	c := &Cache{next: next, ttl: ttl, FetchTimeout: DefaultFetchTimeout}
	if ttl > 0 {
		c.lru = expirable.NewLRU[string, *source.Response](size, nil, ttl)
	}
	return c
}

// GetOrFetch returns a cached response if valid; otherwise it coalesces
// concurrent fetches for the same query and stores the result.
// Returns the response, source ("cache" or "rpc"), and error if fetching failed.
func (c *Cache) GetOrFetch(ctx context.Context, q query.Query) (*source.Response, string, error) {
	if q == nil {
		resp, err := c.next.Fetch(ctx, q)
		return resp, "", err
	}
	key := q.Key()

	if c.lru != nil {
		if v, ok := c.lru.Get(key); ok {
			metrics.CacheLookups.WithLabelValues(SourceCache).Inc()
			return v, SourceCache, nil
		}
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// the fetch is shared, so it must survive the caller that started it
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		v, err := c.next.Fetch(fctx, q)
		if err != nil {
			return nil, err
		}
		if c.lru != nil {
			c.lru.Add(key, v)
		}
		return v, nil
	})
	select {
	case <-ctx.Done():
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			metrics.CacheLookups.WithLabelValues("error").Inc()
			return nil, "", r.Err
		}
		metrics.CacheLookups.WithLabelValues(SourceRPC).Inc()
		return r.Val.(*source.Response), SourceRPC, nil
	}
}

func (c *Cache) fetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return DefaultFetchTimeout
	}
	return c.FetchTimeout
}

// Fetch makes Cache usable wherever a Fetcher is expected.
func (c *Cache) Fetch(ctx context.Context, q query.Query) (*source.Response, error) {
	v, _, err := c.GetOrFetch(ctx, q)
	return v, err
}

// Len returns the number of cached responses.
func (c *Cache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
