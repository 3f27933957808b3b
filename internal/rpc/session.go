package rpc

import (
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goProgIndex/internal/pager"
	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_types"
)

// FetcherFactory builds the fetcher, and with it the index, of a new session.
type FetcherFactory func(session string) *pager.Fetcher

// SessionCache keeps one page fetcher per client session. Each session owns
// its own index so one client's search does not invalidate another's pages.
// The least recently used session is dropped when the cache is full.
//
// The factory runs outside any lock so building one session never blocks
// lookups of others. Two concurrent first uses of the same id may both build a
// fetcher; the first one added wins.
type SessionCache struct {
	sessions *lru.Cache[string, *pager.Fetcher]
	factory  FetcherFactory
	capacity int

	// Metrics
	hits    atomic.Uint64
	misses  atomic.Uint64
	evicted atomic.Uint64
}

// NewSessionCache creates a cache holding at most capacity sessions.
func NewSessionCache(capacity int, factory FetcherFactory) (*SessionCache, error) {
	if capacity <= 0 {
		capacity = 256 // Default cache size
	}

	c := &SessionCache{factory: factory, capacity: capacity}
	sessions, err := lru.NewWithEvict[string, *pager.Fetcher](capacity, func(string, *pager.Fetcher) {
		c.evicted.Add(1)
	})
	if err != nil {
		return nil, err
	}
	c.sessions = sessions
	return c, nil
}

// Get returns the fetcher of session, creating it on first use.
func (c *SessionCache) Get(session string) *pager.Fetcher {
	if f, found := c.sessions.Get(session); found {
		c.hits.Add(1)
		return f
	}

	f := c.factory(session)
	if prev, found, _ := c.sessions.PeekOrAdd(session, f); found {
		c.hits.Add(1)
		return prev
	}
	c.misses.Add(1)
	return f
}

// Len is the number of live sessions.
func (c *SessionCache) Len() int {
	return c.sessions.Len()
}

// Stats returns cache statistics
func (c *SessionCache) Stats() rpc_types.SessionStats {
	return rpc_types.SessionStats{
		Sessions: c.sessions.Len(),
		Capacity: c.capacity,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Evicted:  c.evicted.Load(),
	}
}
