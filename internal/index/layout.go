package index

import (
	"bytes"
	"encoding/binary"

	"github.com/LeJamon/goProgIndex/internal/ledger"
)

// Layout describes where the record sits inside a program account and how
// much of it the owner query asks for.
type Layout struct {
	// RecordOffset is the size of the account header before the record.
	RecordOffset int
	// PrefixLength is the prefix window fetched per account for ordering:
	// the name length prefix plus the leading name bytes.
	PrefixLength int
}

// DefaultLayout matches the intro program: one initialized byte, then a
// 12 byte window holding the u32 name length and up to 8 name bytes.
var DefaultLayout = Layout{RecordOffset: 1, PrefixLength: 12}

// Slice is the data slice requested from the ledger.
func (l Layout) Slice() ledger.DataSlice {
	return ledger.DataSlice{Offset: uint64(l.RecordOffset), Length: uint64(l.PrefixLength)}
}

// Filter returns the raw byte sub-match for term, or nil when term is empty.
// The match is anchored right after the name length prefix, so it only finds
// names that start with term.
func (l Layout) Filter(term string) *ledger.MemcmpFilter {
	if term == "" {
		return nil
	}
	return &ledger.MemcmpFilter{
		Offset: uint64(l.RecordOffset + 4),
		Bytes:  []byte(term),
	}
}

// nameRegion returns the name bytes visible in a prefix window, bounded by
// the embedded length and clamped to the window.
func nameRegion(prefix []byte) []byte {
	if len(prefix) < 4 {
		return nil
	}
	end := 4 + uint64(binary.LittleEndian.Uint32(prefix))
	if end > uint64(len(prefix)) {
		end = uint64(len(prefix))
	}
	return prefix[4:end]
}

type sortKey struct {
	handle ledger.Handle
	name   []byte
}

// compareKeys orders by raw name bytes, unsigned, then by handle so equal
// prefixes still sort reproducibly.
func compareKeys(a, b sortKey) int {
	if c := bytes.Compare(a.name, b.name); c != 0 {
		return c
	}
	return bytes.Compare(a.handle[:], b.handle[:])
}
