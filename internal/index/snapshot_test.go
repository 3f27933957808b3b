package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LeJamon/goProgIndex/internal/ledger"
)

const (
	time1s = time.Second
	tick   = 5 * time.Millisecond
)

func handles(n int) []ledger.Handle {
	out := make([]ledger.Handle, n)
	for i := range out {
		out[i][0] = byte(i)
	}
	return out
}

func TestSnapshotWindow(t *testing.T) {
	snap := &Snapshot{Handles: handles(7)}

	tests := []struct {
		name string
		page int
		size int
		want []ledger.Handle
	}{
		{"first page", 1, 5, snap.Handles[0:5]},
		{"partial last page", 2, 5, snap.Handles[5:7]},
		{"past the end", 3, 5, nil},
		{"far past the end", 1 << 40, 1 << 20, nil},
		{"single", 4, 1, snap.Handles[3:4]},
		{"page larger than cache", 1, 50, snap.Handles},
		{"zero page", 0, 5, nil},
		{"zero size", 1, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snap.Window(tt.page, tt.size))
		})
	}
}

func TestNilSnapshot(t *testing.T) {
	var snap *Snapshot
	assert.Equal(t, 0, snap.Len())
	assert.Nil(t, snap.Window(1, 5))
}

func TestNameRegion(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
	}{
		{"short window", []byte{3, 0}, nil},
		{"bounded by length", []byte{2, 0, 0, 0, 'a', 'b', 'c'}, []byte("ab")},
		{"clamped to window", []byte{20, 0, 0, 0, 'a', 'b'}, []byte("ab")},
		{"empty name", []byte{0, 0, 0, 0, 'x'}, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nameRegion(tt.prefix))
		})
	}
}

func TestLayoutFilter(t *testing.T) {
	assert.Nil(t, DefaultLayout.Filter(""))

	f := DefaultLayout.Filter("ann")
	assert.Equal(t, uint64(5), f.Offset)
	assert.Equal(t, []byte("ann"), f.Bytes)

	assert.Equal(t, ledger.DataSlice{Offset: 1, Length: 12}, DefaultLayout.Slice())
}
