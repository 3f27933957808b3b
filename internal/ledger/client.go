// Package ledger defines the narrow view of the external ledger client that
// the account index depends on. Transport, signing and confirmation are owned
// by the client implementations, never by the index.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// HandleSize is the size of an account address in bytes.
const HandleSize = 32

// Handle is an opaque account address assigned by the ledger.
type Handle [HandleSize]byte

// ErrInvalidHandle is returned when a textual handle does not decode to HandleSize bytes.
var ErrInvalidHandle = errors.New("invalid account handle")

// ParseHandle decodes a base58 account address.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	b, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	if len(b) != HandleSize {
		return h, fmt.Errorf("%w: %d bytes", ErrInvalidHandle, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// MustParseHandle is ParseHandle for constants; it panics on error.
func MustParseHandle(s string) Handle {
	h, err := ParseHandle(s)
	if err != nil {
		panic(err)
	}
	return h
}

// String returns the base58 form.
func (h Handle) String() string {
	return base58.Encode(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// DataSlice selects the byte window of each account returned by an owner query.
type DataSlice struct {
	Offset uint64
	Length uint64
}

// MemcmpFilter restricts an owner query to accounts holding Bytes at Offset.
// The comparison runs on raw account data on the ledger side.
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// KeyedSlice is one result of an owner query: the account handle and the
// requested window of its data.
type KeyedSlice struct {
	Handle Handle
	Data   []byte
}

// Client is the subset of the ledger client the index consumes.
type Client interface {
	// QueryAccountsByOwner returns every account owned by owner, restricted to
	// slice, optionally pre-filtered by filter.
	QueryAccountsByOwner(ctx context.Context, owner Handle, slice DataSlice, filter *MemcmpFilter) ([]KeyedSlice, error)

	// GetAccountsByHandles returns the full data of each handle in input order.
	// A nil entry marks an account that does not exist.
	GetAccountsByHandles(ctx context.Context, handles []Handle) ([][]byte, error)
}

// ApplySlice cuts the slice window out of data, clamping to the data length
// the same way the ledger RPC does.
func ApplySlice(data []byte, slice DataSlice) []byte {
	if slice.Offset >= uint64(len(data)) {
		return []byte{}
	}
	end := slice.Offset + slice.Length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	out := make([]byte, end-slice.Offset)
	copy(out, data[slice.Offset:end])
	return out
}

// Matches reports whether data satisfies the filter. A nil filter matches everything.
func (f *MemcmpFilter) Matches(data []byte) bool {
	if f == nil {
		return true
	}
	end := f.Offset + uint64(len(f.Bytes))
	if end > uint64(len(data)) {
		return false
	}
	for i, b := range f.Bytes {
		if data[f.Offset+uint64(i)] != b {
			return false
		}
	}
	return true
}
