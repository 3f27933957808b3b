package pager

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goProgIndex/internal/codec/record"
	"github.com/LeJamon/goProgIndex/internal/index"
	"github.com/LeJamon/goProgIndex/internal/ledger"
	"github.com/LeJamon/goProgIndex/internal/ledger/memory"
	"github.com/LeJamon/goProgIndex/internal/ledger/mock"
)

var program = ledger.MustParseHandle("HdE95RSVsdb315jfJtaykXhXY478h53X6okDupVfY9yf")

func seedLedger(t *testing.T, names ...string) (*memory.Ledger, []ledger.Handle) {
	t.Helper()
	l := memory.New()
	out := make([]ledger.Handle, len(names))
	for i, name := range names {
		data, err := record.EncodeAccount(name, "msg-"+name, index.DefaultLayout.RecordOffset)
		require.NoError(t, err)
		out[i] = l.Add(program, data)
	}
	return l, out
}

func newFetcher(l ledger.Client) *Fetcher {
	return New(index.New(l, program), l, nil)
}

func names(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestFetchPageOrdering(t *testing.T) {
	l, _ := seedLedger(t, "bob", "ann")
	f := newFetcher(l)

	records, err := f.FetchPage(context.Background(), 1, 10, "", false)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, record.Record{Name: "ann", Message: "msg-ann"}, records[0])
	assert.Equal(t, record.Record{Name: "bob", Message: "msg-bob"}, records[1])
}

func TestFetchPageBounds(t *testing.T) {
	l, _ := seedLedger(t, "a1", "a2", "a3", "a4", "a5", "a6", "a7")
	f := newFetcher(l)
	ctx := context.Background()

	p1, err := f.FetchPageInfo(ctx, 1, 5, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3", "a4", "a5"}, names(p1.Records))
	assert.True(t, p1.HasNext)
	assert.Equal(t, 7, p1.AccountCount)

	p2, err := f.FetchPageInfo(ctx, 2, 5, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a6", "a7"}, names(p2.Records))
	assert.False(t, p2.HasNext)

	_, fetchesBefore := l.Calls()
	p3, err := f.FetchPageInfo(ctx, 3, 5, "", false)
	require.NoError(t, err)
	assert.Empty(t, p3.Records)
	assert.NotNil(t, p3.Records)
	assert.False(t, p3.HasNext)

	queries, fetchesAfter := l.Calls()
	assert.Equal(t, fetchesBefore, fetchesAfter, "an empty window makes no ledger call")
	assert.Equal(t, 1, queries, "the index is built once")
	assert.Equal(t, 7, f.CachedAccountCount())
}

func TestFetchPageInvalid(t *testing.T) {
	l, _ := seedLedger(t, "ann")
	f := newFetcher(l)

	for _, tc := range []struct{ page, size int }{{0, 5}, {1, 0}, {-1, 5}, {1, -3}} {
		t.Run(fmt.Sprintf("page=%d size=%d", tc.page, tc.size), func(t *testing.T) {
			_, err := f.FetchPage(context.Background(), tc.page, tc.size, "", false)
			assert.ErrorIs(t, err, ErrInvalidPage)
		})
	}
	queries, fetches := l.Calls()
	assert.Zero(t, queries)
	assert.Zero(t, fetches)
}

func TestFetchPageRebuildsOnNewTerm(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)
	ctx := context.Background()

	bobData, err := record.EncodeAccount("bob", "hi", 1)
	require.NoError(t, err)
	bob := ledger.Handle{7}
	slice := index.DefaultLayout.Slice()

	client.EXPECT().
		QueryAccountsByOwner(gomock.Any(), program, slice, gomock.Nil()).
		Return([]ledger.KeyedSlice{{Handle: bob, Data: ledger.ApplySlice(bobData, slice)}}, nil).
		Times(1)
	client.EXPECT().
		QueryAccountsByOwner(gomock.Any(), program, slice, index.DefaultLayout.Filter("bo")).
		Return([]ledger.KeyedSlice{{Handle: bob, Data: ledger.ApplySlice(bobData, slice)}}, nil).
		Times(1)
	client.EXPECT().
		GetAccountsByHandles(gomock.Any(), []ledger.Handle{bob}).
		Return([][]byte{bobData}, nil).
		Times(4)

	f := New(index.New(client, program), client, nil)

	for i := 0; i < 2; i++ {
		records, err := f.FetchPage(ctx, 1, 10, "", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, names(records))
	}
	for i := 0; i < 2; i++ {
		records, err := f.FetchPage(ctx, 1, 10, "bo", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, names(records))
	}
}

func TestFetchPageReload(t *testing.T) {
	l, _ := seedLedger(t, "ann")
	f := newFetcher(l)
	ctx := context.Background()

	_, err := f.FetchPage(ctx, 1, 5, "", false)
	require.NoError(t, err)

	data, err := record.EncodeAccount("aaron", "new", 1)
	require.NoError(t, err)
	l.Add(program, data)

	records, err := f.FetchPage(ctx, 1, 5, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, names(records), "cached ordering is served without reload")

	records, err = f.FetchPage(ctx, 1, 5, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaron", "ann"}, names(records))
}

func TestFetchPageDropsCorruptAndMissing(t *testing.T) {
	l, handles := seedLedger(t, "a1", "a2", "a3", "a4", "a5")
	f := newFetcher(l)
	ctx := context.Background()

	_, err := f.FetchPage(ctx, 1, 10, "", false)
	require.NoError(t, err)

	// a3 keeps its prefix but its message length now runs past the account
	corrupt, err := record.EncodeAccount("a3", "", 1)
	require.NoError(t, err)
	corrupt[len(corrupt)-4] = 0xff
	l.Put(program, handles[2], corrupt)

	records, err := f.FetchPage(ctx, 1, 10, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a4", "a5"}, names(records))

	l.Remove(handles[0])
	records, err = f.FetchPage(ctx, 1, 10, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a4", "a5"}, names(records))
}

func TestFetchPageUnavailable(t *testing.T) {
	l, _ := seedLedger(t, "ann", "bob")
	f := newFetcher(l)
	ctx := context.Background()

	boom := errors.New("rpc timeout")
	l.FailQueries(boom)
	_, err := f.FetchPage(ctx, 1, 5, "", false)
	assert.ErrorIs(t, err, index.ErrIndexUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.CachedAccountCount())

	l.FailQueries(nil)
	_, err = f.FetchPage(ctx, 1, 5, "", false)
	require.NoError(t, err)

	l.FailFetches(boom)
	_, err = f.FetchPage(ctx, 1, 5, "", false)
	var unavailable *index.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "fetch accounts", unavailable.Op)
	assert.Equal(t, 2, f.CachedAccountCount(), "a failed page leaves the index alone")
}
