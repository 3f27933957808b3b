// Package index maintains the ordered list of program accounts that the page
// fetcher paginates over.
//
// The cache is a single immutable Snapshot published through an atomic
// pointer. Readers always see a complete snapshot; rebuilds are coalesced per
// search term so at most one owner query per term is in flight.
package index

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/LeJamon/goProgIndex/internal/ledger"
)

// Store persists snapshots so a restarted process can warm start.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
}

// Option configures an Index.
type Option func(*Index)

// WithLayout overrides DefaultLayout.
func WithLayout(l Layout) Option {
	return func(ix *Index) { ix.layout = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// WithStore persists every successful rebuild to s.
func WithStore(s Store) Option {
	return func(ix *Index) { ix.store = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) { ix.now = now }
}

// Index owns the account ordering for one program.
type Index struct {
	client  ledger.Client
	program ledger.Handle
	layout  Layout
	store   Store
	logger  *zap.Logger
	now     func() time.Time

	current atomic.Pointer[Snapshot]
	flights singleflight.Group

	// generation increases on every rebuild start; a finished rebuild only
	// publishes when no later one has started.
	generation atomic.Uint64
	waiting    atomic.Int64

	rebuilds  atomic.Uint64
	failures  atomic.Uint64
	coalesced atomic.Uint64
	hits      atomic.Uint64
}

// New creates an empty index over program's accounts.
func New(client ledger.Client, program ledger.Handle, opts ...Option) *Index {
	ix := &Index{
		client:  client,
		program: program,
		layout:  DefaultLayout,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Program returns the program whose accounts are indexed.
func (ix *Index) Program() ledger.Handle {
	return ix.program
}

// Layout returns the account layout in use.
func (ix *Index) Layout() Layout {
	return ix.layout
}

// Snapshot returns the current cache, nil before the first build.
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Len is the number of cached handles.
func (ix *Index) Len() int {
	return ix.current.Load().Len()
}

// Seed installs a snapshot built elsewhere, typically loaded from a Store.
// It is ignored when the index already holds a snapshot.
func (ix *Index) Seed(snap *Snapshot) bool {
	if snap == nil {
		return false
	}
	return ix.current.CompareAndSwap(nil, snap)
}

// Ensure returns a snapshot valid for term, rebuilding when the cache is
// empty, was built for another term, or force is set.
func (ix *Index) Ensure(ctx context.Context, term string, force bool) (*Snapshot, error) {
	if cur := ix.current.Load(); !force && cur.Len() > 0 && cur.Term == term {
		ix.hits.Add(1)
		return cur, nil
	}
	return ix.Rebuild(ctx, term)
}

// Rebuild queries the ledger for every account of the program matching term,
// orders them and replaces the cache. On failure the previous cache stays in
// place and an *UnavailableError is returned.
//
// Concurrent calls for the same term share one owner query. The shared query
// is not cancelled with any single caller; each caller stops waiting when its
// own ctx is done.
func (ix *Index) Rebuild(ctx context.Context, term string) (*Snapshot, error) {
	shared := context.WithoutCancel(ctx)
	led := false
	ch := ix.flights.DoChan(term, func() (interface{}, error) {
		led = true
		return ix.rebuild(shared, term)
	})
	ix.waiting.Add(1)
	defer ix.waiting.Add(-1)

	select {
	case <-ctx.Done():
		return nil, &UnavailableError{Op: "query accounts", Term: term, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared && !led {
			ix.coalesced.Add(1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (ix *Index) rebuild(ctx context.Context, term string) (*Snapshot, error) {
	started := ix.now()
	gen := ix.generation.Add(1)

	accounts, err := ix.client.QueryAccountsByOwner(ctx, ix.program, ix.layout.Slice(), ix.layout.Filter(term))
	if err != nil {
		ix.failures.Add(1)
		ix.logger.Warn("index rebuild failed",
			zap.String("search", term),
			zap.Error(err))
		return nil, &UnavailableError{Op: "query accounts", Term: term, Err: err}
	}

	keys := make([]sortKey, len(accounts))
	for i, acct := range accounts {
		keys[i] = sortKey{handle: acct.Handle, name: nameRegion(acct.Data)}
	}
	slices.SortFunc(keys, compareKeys)

	handles := make([]ledger.Handle, len(keys))
	for i, k := range keys {
		handles[i] = k.handle
	}

	snap := &Snapshot{Term: term, Handles: handles, BuiltAt: ix.now()}
	ix.rebuilds.Add(1)
	if gen == ix.generation.Load() {
		ix.current.Store(snap)
	} else {
		ix.logger.Debug("newer rebuild in flight, not publishing",
			zap.String("search", term))
	}

	ix.logger.Info("index rebuilt",
		zap.String("search", term),
		zap.Int("accounts", len(handles)),
		zap.Duration("took", snap.BuiltAt.Sub(started)))

	if ix.store != nil {
		if err := ix.store.Save(ctx, snap); err != nil {
			ix.logger.Warn("failed to persist index snapshot", zap.String("search", term), zap.Error(err))
		}
	}
	return snap, nil
}

// Stats holds rebuild counters.
type Stats struct {
	Rebuilds  uint64 `json:"rebuilds"`
	Failures  uint64 `json:"rebuild_failures"`
	Coalesced uint64 `json:"coalesced_waits"`
	Hits      uint64 `json:"cache_hits"`
	Accounts  int    `json:"account_count"`
	Term      string `json:"search"`
}

// Stats returns a copy of the counters.
func (ix *Index) Stats() Stats {
	snap := ix.current.Load()
	s := Stats{
		Rebuilds:  ix.rebuilds.Load(),
		Failures:  ix.failures.Load(),
		Coalesced: ix.coalesced.Load(),
		Hits:      ix.hits.Load(),
		Accounts:  snap.Len(),
	}
	if snap != nil {
		s.Term = snap.Term
	}
	return s
}
