// Package memory is an in-process ledger used for fixtures and tests. It
// applies data slices and memcmp filters the way the remote RPC does.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/LeJamon/goProgIndex/internal/ledger"
)

type account struct {
	owner ledger.Handle
	data  []byte
}

// Ledger holds accounts in insertion order.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[ledger.Handle]*account
	order    []ledger.Handle
	seq      uint64

	queryErr error
	fetchErr error

	queries int
	fetches int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[ledger.Handle]*account)}
}

var _ ledger.Client = (*Ledger)(nil)

// Put stores data under handle, replacing any previous account.
func (l *Ledger) Put(owner, handle ledger.Handle, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[handle]; !ok {
		l.order = append(l.order, handle)
	}
	l.accounts[handle] = &account{owner: owner, data: append([]byte(nil), data...)}
}

// Add stores data under a fresh deterministic handle and returns it.
func (l *Ledger) Add(owner ledger.Handle, data []byte) ledger.Handle {
	l.mu.Lock()
	l.seq++
	seed := make([]byte, 0, ledger.HandleSize+8)
	seed = append(seed, owner[:]...)
	seed = binary.BigEndian.AppendUint64(seed, l.seq)
	l.mu.Unlock()

	h := ledger.Handle(sha256.Sum256(seed))
	l.Put(owner, h, data)
	return h
}

// Remove deletes an account. Later bulk fetches report it as absent.
func (l *Ledger) Remove(handle ledger.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.accounts, handle)
	for i, h := range l.order {
		if h == handle {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// FailQueries makes every owner query return err until cleared with nil.
func (l *Ledger) FailQueries(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queryErr = err
}

// FailFetches makes every bulk fetch return err until cleared with nil.
func (l *Ledger) FailFetches(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchErr = err
}

// Calls returns how many owner queries and bulk fetches were served.
func (l *Ledger) Calls() (queries, fetches int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.queries, l.fetches
}

// QueryAccountsByOwner implements ledger.Client.
func (l *Ledger) QueryAccountsByOwner(ctx context.Context, owner ledger.Handle, slice ledger.DataSlice, filter *ledger.MemcmpFilter) ([]ledger.KeyedSlice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.queries++
	if l.queryErr != nil {
		return nil, l.queryErr
	}

	var out []ledger.KeyedSlice
	for _, h := range l.order {
		acct, ok := l.accounts[h]
		if !ok || acct.owner != owner {
			continue
		}
		if !filter.Matches(acct.data) {
			continue
		}
		out = append(out, ledger.KeyedSlice{Handle: h, Data: ledger.ApplySlice(acct.data, slice)})
	}
	return out, nil
}

// GetAccountsByHandles implements ledger.Client.
func (l *Ledger) GetAccountsByHandles(ctx context.Context, handles []ledger.Handle) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.fetches++
	if l.fetchErr != nil {
		return nil, l.fetchErr
	}

	out := make([][]byte, len(handles))
	for i, h := range handles {
		if acct, ok := l.accounts[h]; ok {
			out[i] = append([]byte(nil), acct.data...)
		}
	}
	return out, nil
}
