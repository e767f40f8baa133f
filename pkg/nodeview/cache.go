package nodeview

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	gocache "github.com/patrickmn/go-cache"

	"github.com/waypost/waypost/pkg/nodeid"
)

// Cache TTL defaults. Misses are cached for less time than hits so a
// record created after a miss becomes visible quickly.
const (
	DefaultCacheTTL         = 30 * time.Second
	DefaultNegativeCacheTTL = 5 * time.Second
)

// notFound is the cached value for a confirmed miss.
type notFound struct{}

// CachedResolver is a read-through cache in front of a Resolver. Entries
// are keyed by (view generation, id), so every rebuild implicitly
// invalidates everything cached against the previous view. Only point
// lookups are cached; batches always hit the view.
type CachedResolver struct {
	resolver *Resolver
	manager  *Manager
	cache    *gocache.Cache
	ttl      time.Duration
	negTTL   time.Duration
	log      hclog.Logger
}

// NewCachedResolver wraps a resolver with a generation-keyed cache.
// The manager supplies the generation.
func NewCachedResolver(resolver *Resolver, manager *Manager, log hclog.Logger) *CachedResolver {
	return NewCachedResolverTTL(resolver, manager, DefaultCacheTTL, DefaultNegativeCacheTTL, log)
}

// NewCachedResolverTTL creates a cached resolver with explicit TTLs for
// hits and misses.
func NewCachedResolverTTL(resolver *Resolver, manager *Manager, ttl, negTTL time.Duration, log hclog.Logger) *CachedResolver {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if negTTL <= 0 {
		negTTL = DefaultNegativeCacheTTL
	}
	return &CachedResolver{
		resolver: resolver,
		manager:  manager,
		cache:    gocache.New(ttl, 2*ttl),
		ttl:      ttl,
		negTTL:   negTTL,
		log:      log,
	}
}

func (c *CachedResolver) key(id nodeid.ID) string {
	return fmt.Sprintf("g%d:%s", c.manager.Generation(), id.String())
}

// Resolve implements NodeResolver.
func (c *CachedResolver) Resolve(ctx context.Context, id nodeid.ID) (*Node, bool, error) {
	key := c.key(id)
	if cached, ok := c.cache.Get(key); ok {
		if _, miss := cached.(notFound); miss {
			return nil, false, nil
		}
		node := cached.(Node)
		return &node, true, nil
	}

	node, found, err := c.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !found {
		c.cache.Set(key, notFound{}, c.negTTL)
		return nil, false, nil
	}

	c.cache.Set(key, *node, c.ttl)
	return node, true, nil
}

// ResolveBatch implements NodeResolver by delegating to the underlying
// resolver.
func (c *CachedResolver) ResolveBatch(ctx context.Context, ids []nodeid.ID, allowZero bool) ([]Node, error) {
	return c.resolver.ResolveBatch(ctx, ids, allowZero)
}

// Flush drops every cached entry regardless of generation.
func (c *CachedResolver) Flush() {
	c.cache.Flush()
}

// ItemCount returns the number of live cache entries, expired or not.
func (c *CachedResolver) ItemCount() int {
	return c.cache.ItemCount()
}
