package source

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/logger"
)

// Cache keeps one loaded frame per location until Reload or Invalidate.
// Concurrent Gets for the same location share a single load, and a failed
// load is never stored.
type Cache struct {
	loader *Loader
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string]*engine.Frame
	gen     map[string]uint64
}

// NewCache returns an empty cache reading through loader. A nil loader
// uses the default one.
func NewCache(loader *Loader) *Cache {
	if loader == nil {
		loader = defaultLoader
	}
	return &Cache{
		loader:  loader,
		entries: make(map[string]*engine.Frame),
		gen:     make(map[string]uint64),
	}
}

// Get returns the cached frame for loc, loading it on first use.
func (c *Cache) Get(ctx context.Context, loc Location) (*engine.Frame, error) {
	key := loc.String()
	c.mu.RLock()
	frame, ok := c.entries[key]
	gen := c.gen[key]
	c.mu.RUnlock()
	if ok {
		return frame, nil
	}
	return c.load(ctx, loc, key, gen)
}

// Reload drops loc and loads it again. Loads already running for the old
// entry do not overwrite the new one.
func (c *Cache) Reload(ctx context.Context, loc Location) (*engine.Frame, error) {
	key := loc.String()
	c.mu.Lock()
	delete(c.entries, key)
	c.gen[key]++
	gen := c.gen[key]
	c.mu.Unlock()

	logger.Infof("🔄 lens: reloading %s", key)
	return c.load(ctx, loc, key, gen)
}

// Invalidate drops loc; the next Get loads it again.
func (c *Cache) Invalidate(loc Location) {
	key := loc.String()
	c.mu.Lock()
	delete(c.entries, key)
	c.gen[key]++
	c.mu.Unlock()
}

// Len is the number of cached frames.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load(ctx context.Context, loc Location, key string, gen uint64) (*engine.Frame, error) {
	v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		frame, err := c.loader.Load(ctx, loc)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen[key] == gen {
			c.entries[key] = frame
		}
		c.mu.Unlock()
		return frame, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*engine.Frame), nil
}
