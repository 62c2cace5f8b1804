package resolve

import (
	"context"
	"net/netip"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type cacheKey struct {
	network string
	host    string
}

type cacheValue struct {
	addrs []netip.Addr
	err   error
}

// Cached is a Resolver that memoises answers, including failures, for a
// bounded time.
type Cached struct {
	cache *ttlcache.Cache[cacheKey, cacheValue]
}

// NewCached wraps r.  Successful answers live for posTTL, failures for
// negTTL; each miss is resolved with its own timeout, independent of
// the caller's context so concurrent waiters share one lookup.
func NewCached(r Resolver, size int, posTTL, negTTL, timeout time.Duration) *Cached {
	loader := ttlcache.LoaderFunc[cacheKey, cacheValue](
		func(c *ttlcache.Cache[cacheKey, cacheValue], key cacheKey) *ttlcache.Item[cacheKey, cacheValue] {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			addrs, err := r.LookupNetIP(ctx, key.network, key.host)
			ttl := negTTL
			if err == nil {
				ttl = posTTL
			}
			return c.Set(key, cacheValue{addrs: addrs, err: err}, ttl)
		},
	)
	cache := ttlcache.New[cacheKey, cacheValue](
		ttlcache.WithDisableTouchOnHit[cacheKey, cacheValue](),
		ttlcache.WithLoader[cacheKey, cacheValue](ttlcache.NewSuppressedLoader[cacheKey, cacheValue](loader, nil)),
		ttlcache.WithCapacity[cacheKey, cacheValue](uint64(size)),
	)
	return &Cached{cache: cache}
}

// LookupNetIP implements Resolver.
func (c *Cached) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item := c.cache.Get(cacheKey{network: network, host: host})
	if item == nil {
		return nil, &lookupError{host: host}
	}
	v := item.Value()
	return v.addrs, v.err
}

// Len returns the number of cached answers.
func (c *Cached) Len() int { return c.cache.Len() }

type lookupError struct{ host string }

func (e *lookupError) Error() string { return "cache lookup failed for " + e.host }
