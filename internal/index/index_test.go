package index

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goProgIndex/internal/codec/record"
	"github.com/LeJamon/goProgIndex/internal/ledger"
	"github.com/LeJamon/goProgIndex/internal/ledger/memory"
	"github.com/LeJamon/goProgIndex/internal/ledger/mock"
)

var program = ledger.MustParseHandle("HdE95RSVsdb315jfJtaykXhXY478h53X6okDupVfY9yf")

func addRecord(t *testing.T, l *memory.Ledger, name, message string) ledger.Handle {
	t.Helper()
	data, err := record.EncodeAccount(name, message, DefaultLayout.RecordOffset)
	require.NoError(t, err)
	return l.Add(program, data)
}

func TestRebuildOrdersByName(t *testing.T) {
	l := memory.New()
	bob := addRecord(t, l, "bob", "second")
	ann := addRecord(t, l, "ann", "first")
	zed := addRecord(t, l, "zed", "last")
	anna := addRecord(t, l, "anna", "between")

	ix := New(l, program)
	snap, err := ix.Rebuild(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []ledger.Handle{ann, anna, bob, zed}, snap.Handles)
	assert.Equal(t, "", snap.Term)
	assert.Equal(t, 4, ix.Len())
	assert.Same(t, snap, ix.Snapshot())
}

func TestRebuildComparesRawBytes(t *testing.T) {
	l := memory.New()
	lower := addRecord(t, l, "alice", "")
	upper := addRecord(t, l, "Zoe", "")
	accent := addRecord(t, l, "Émile", "")

	ix := New(l, program)
	snap, err := ix.Rebuild(context.Background(), "")
	require.NoError(t, err)

	// 'Z' (0x5a) < 'a' (0x61) < 0xc3 lead byte of É
	assert.Equal(t, []ledger.Handle{upper, lower, accent}, snap.Handles)
}

func TestRebuildSearchUsesRawPrefixMatch(t *testing.T) {
	l := memory.New()
	addRecord(t, l, "ann", "")
	bob := addRecord(t, l, "bob", "")
	bobby := addRecord(t, l, "bobby", "")
	addRecord(t, l, "jimbob", "")

	ix := New(l, program)
	snap, err := ix.Rebuild(context.Background(), "bob")
	require.NoError(t, err)

	assert.Equal(t, []ledger.Handle{bob, bobby}, snap.Handles)
	assert.Equal(t, "bob", snap.Term)
}

func TestRebuildFailureKeepsCache(t *testing.T) {
	l := memory.New()
	addRecord(t, l, "ann", "")
	addRecord(t, l, "bob", "")

	ix := New(l, program)
	before, err := ix.Rebuild(context.Background(), "")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	l.FailQueries(boom)

	snap, err := ix.Rebuild(context.Background(), "ann")
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.True(t, errors.Is(err, boom))

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "ann", unavailable.Term)

	assert.Same(t, before, ix.Snapshot())
	assert.Equal(t, uint64(1), ix.Stats().Failures)
}

func TestEnsure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)
	ctx := context.Background()

	h1 := ledger.Handle{1}
	h2 := ledger.Handle{2}
	entry := func(h ledger.Handle, name string) ledger.KeyedSlice {
		data, err := record.Encode(name, "")
		require.NoError(t, err)
		return ledger.KeyedSlice{Handle: h, Data: ledger.ApplySlice(data, ledger.DataSlice{Length: 12})}
	}

	gomock.InOrder(
		client.EXPECT().
			QueryAccountsByOwner(gomock.Any(), program, DefaultLayout.Slice(), gomock.Nil()).
			Return([]ledger.KeyedSlice{entry(h2, "bob"), entry(h1, "ann")}, nil).
			Times(1),
		client.EXPECT().
			QueryAccountsByOwner(gomock.Any(), program, DefaultLayout.Slice(), DefaultLayout.Filter("bo")).
			Return([]ledger.KeyedSlice{entry(h2, "bob")}, nil).
			Times(1),
		client.EXPECT().
			QueryAccountsByOwner(gomock.Any(), program, DefaultLayout.Slice(), DefaultLayout.Filter("bo")).
			Return([]ledger.KeyedSlice{entry(h2, "bob")}, nil).
			Times(1),
	)

	ix := New(client, program)

	snap, err := ix.Ensure(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Handle{h1, h2}, snap.Handles)

	again, err := ix.Ensure(ctx, "", false)
	require.NoError(t, err)
	assert.Same(t, snap, again, "same term reuses the cache")

	snap, err = ix.Ensure(ctx, "bo", false)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Handle{h2}, snap.Handles)

	_, err = ix.Ensure(ctx, "bo", true)
	require.NoError(t, err)

	stats := ix.Stats()
	assert.Equal(t, uint64(3), stats.Rebuilds)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, "bo", stats.Term)
}

func TestEnsureRebuildsEmptyCache(t *testing.T) {
	l := memory.New()
	ix := New(l, program)

	_, err := ix.Ensure(context.Background(), "", false)
	require.NoError(t, err)
	_, err = ix.Ensure(context.Background(), "", false)
	require.NoError(t, err)

	queries, _ := l.Calls()
	assert.Equal(t, 2, queries, "an empty cache is never served as valid")
}

type gatedClient struct {
	ledger.Client
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedClient) QueryAccountsByOwner(ctx context.Context, owner ledger.Handle, slice ledger.DataSlice, filter *ledger.MemcmpFilter) ([]ledger.KeyedSlice, error) {
	g.calls.Add(1)
	<-g.release
	return g.Client.QueryAccountsByOwner(ctx, owner, slice, filter)
}

func TestConcurrentRebuildsAreCoalesced(t *testing.T) {
	l := memory.New()
	addRecord(t, l, "ann", "")
	addRecord(t, l, "bob", "")

	gated := &gatedClient{Client: l, release: make(chan struct{})}
	ix := New(gated, program)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := ix.Rebuild(context.Background(), "")
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}
	// every caller has joined the flight before the query may finish
	require.Eventually(t, func() bool { return ix.waiting.Load() == callers }, time1s, tick)
	close(gated.release)
	wg.Wait()

	assert.Equal(t, int32(1), gated.calls.Load())
	assert.Equal(t, uint64(callers-1), ix.Stats().Coalesced)
	assert.Equal(t, uint64(1), ix.Stats().Rebuilds)
	for _, snap := range results {
		require.NotNil(t, snap)
		assert.Equal(t, 2, snap.Len())
	}
	assert.Equal(t, 2, ix.Len())
}

func TestCancelledCallerDoesNotFailSharedRebuild(t *testing.T) {
	l := memory.New()
	addRecord(t, l, "ann", "")

	gated := &gatedClient{Client: l, release: make(chan struct{})}
	ix := New(gated, program)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := ix.Ensure(first, "", false)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return gated.calls.Load() == 1 }, time1s, tick)

	second := make(chan error, 1)
	var snap *Snapshot
	go func() {
		var err error
		snap, err = ix.Ensure(context.Background(), "", false)
		second <- err
	}()
	require.Eventually(t, func() bool { return ix.waiting.Load() == 2 }, time1s, tick)

	cancel()
	err := <-firstErr
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	close(gated.release)
	require.NoError(t, <-second)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, int32(1), gated.calls.Load())
	assert.Equal(t, 1, ix.Len())
}

// termGatedClient blocks owner queries for one search term until released.
type termGatedClient struct {
	ledger.Client
	term    string
	entered chan struct{}
	release chan struct{}
}

func (g *termGatedClient) QueryAccountsByOwner(ctx context.Context, owner ledger.Handle, slice ledger.DataSlice, filter *ledger.MemcmpFilter) ([]ledger.KeyedSlice, error) {
	if filter != nil && string(filter.Bytes) == g.term {
		close(g.entered)
		<-g.release
	}
	return g.Client.QueryAccountsByOwner(ctx, owner, slice, filter)
}

func TestSlowOlderRebuildDoesNotReplaceNewer(t *testing.T) {
	l := memory.New()
	addRecord(t, l, "ann", "")
	addRecord(t, l, "bob", "")
	addRecord(t, l, "bea", "")

	gated := &termGatedClient{Client: l, term: "a", entered: make(chan struct{}), release: make(chan struct{})}
	ix := New(gated, program)

	slow := make(chan *Snapshot, 1)
	go func() {
		snap, err := ix.Rebuild(context.Background(), "a")
		assert.NoError(t, err)
		slow <- snap
	}()
	<-gated.entered

	fast, err := ix.Rebuild(context.Background(), "b")
	require.NoError(t, err)
	assert.Same(t, fast, ix.Snapshot())

	close(gated.release)
	older := <-slow
	require.NotNil(t, older)
	assert.Equal(t, 1, older.Len(), "the caller still gets its own ordering")

	assert.Same(t, fast, ix.Snapshot())
	assert.Equal(t, "b", ix.Snapshot().Term)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, uint64(2), ix.Stats().Rebuilds)
}

type recordingStore struct {
	saved []*Snapshot
	err   error
}

func (s *recordingStore) Save(_ context.Context, snap *Snapshot) error {
	s.saved = append(s.saved, snap)
	return s.err
}

func TestRebuildPersistsSnapshot(t *testing.T) {
	l := memory.New()
	addRecord(t, l, "ann", "")

	store := &recordingStore{err: errors.New("disk full")}
	ix := New(l, program, WithStore(store))

	snap, err := ix.Rebuild(context.Background(), "")
	require.NoError(t, err, "store failures never fail a rebuild")
	require.Len(t, store.saved, 1)
	assert.Same(t, snap, store.saved[0])
}

func TestSeed(t *testing.T) {
	ix := New(memory.New(), program)
	seed := &Snapshot{Term: "", Handles: []ledger.Handle{{9}}}

	assert.True(t, ix.Seed(seed))
	assert.False(t, ix.Seed(&Snapshot{}), "seed only fills an empty index")
	assert.Same(t, seed, ix.Snapshot())
	assert.False(t, ix.Seed(nil))
}
