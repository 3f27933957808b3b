package index

import (
	"time"

	"github.com/LeJamon/goProgIndex/internal/ledger"
)

// Snapshot is one complete build of the index. It is never modified after
// it has been published; a rebuild publishes a new one.
type Snapshot struct {
	Term    string
	Handles []ledger.Handle
	BuiltAt time.Time
}

// Len returns the number of handles, zero for a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Handles)
}

// Window returns the handles of page (1-based) for the given page size,
// clamped to the snapshot. A page past the end yields nil.
func (s *Snapshot) Window(page, size int) []ledger.Handle {
	n := s.Len()
	if page < 1 || size < 1 || n == 0 {
		return nil
	}
	if page-1 > n/size {
		return nil
	}
	start := (page - 1) * size
	if start >= n {
		return nil
	}
	end := start + min(size, n-start)
	return s.Handles[start:end]
}
