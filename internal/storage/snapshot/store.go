// Package snapshot persists index orderings so a restarted server can answer
// its first page without a full owner query.
//
// Only handles are stored, never account payloads. Entries are msgpack
// encoded and compressed, keyed by program and search term.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ugorji/go/codec"
	"go.uber.org/zap"

	"github.com/LeJamon/goProgIndex/internal/index"
	"github.com/LeJamon/goProgIndex/internal/ledger"
	"github.com/LeJamon/goProgIndex/internal/storage/compression"
	"github.com/LeJamon/goProgIndex/internal/storage/database"
)

var (
	// ErrNotFound is returned by Load when no snapshot exists for a term.
	ErrNotFound = errors.New("snapshot not found")
	// ErrStale is returned by Load for snapshots older than the max age.
	ErrStale = errors.New("snapshot is stale")
)

const keyPrefix = "snap/"

// entry is the persisted form. Handles are concatenated 32 byte keys.
type entry struct {
	Program []byte `codec:"program"`
	Term    string `codec:"term"`
	Handles []byte `codec:"handles"`
	BuiltAt int64  `codec:"built_at"`
}

var mh = &codec.MsgpackHandle{}

// Option configures a Store.
type Option func(*Store)

// WithCompressor replaces the default lz4 compressor.
func WithCompressor(c compression.Compressor) Option {
	return func(s *Store) { s.comp = c }
}

// WithMaxAge makes Load report snapshots older than d as stale. Zero
// disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store keeps snapshots of one program in a database.DB.
type Store struct {
	db      database.DB
	program ledger.Handle
	comp    compression.Compressor
	maxAge  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

var _ index.Store = (*Store)(nil)

// New returns a store for program's snapshots.
func New(db database.DB, program ledger.Handle, opts ...Option) *Store {
	s := &Store{
		db:      db,
		program: program,
		comp:    compression.LZ4Compressor{},
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) prefix() []byte {
	return []byte(keyPrefix + s.program.String() + "/")
}

func (s *Store) key(term string) []byte {
	return append(s.prefix(), term...)
}

// Save writes snap, replacing any earlier snapshot for the same term.
func (s *Store) Save(ctx context.Context, snap *index.Snapshot) error {
	e := entry{
		Program: s.program[:],
		Term:    snap.Term,
		Handles: make([]byte, 0, len(snap.Handles)*ledger.HandleSize),
		BuiltAt: snap.BuiltAt.UnixNano(),
	}
	for _, h := range snap.Handles {
		e.Handles = append(e.Handles, h[:]...)
	}

	var raw []byte
	if err := codec.NewEncoderBytes(&raw, mh).Encode(&e); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	packed, err := s.comp.Compress(raw)
	if err != nil {
		return err
	}
	// first byte names the compressor so a config change does not orphan
	// existing entries
	value := append([]byte{compressorTag(s.comp.Name())}, packed...)

	if err := s.db.Write(ctx, s.key(snap.Term), value); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Debug("snapshot saved",
		zap.String("search", snap.Term),
		zap.Int("accounts", len(snap.Handles)),
		zap.Int("bytes", len(value)))
	return nil
}

// Load returns the snapshot saved for term.
func (s *Store) Load(ctx context.Context, term string) (*index.Snapshot, error) {
	value, err := s.db.Read(ctx, s.key(term))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	e, err := decodeEntry(value)
	if err != nil {
		return nil, err
	}
	if ledger.Handle(e.Program) != s.program {
		return nil, fmt.Errorf("snapshot belongs to another program")
	}

	snap := &index.Snapshot{
		Term:    e.Term,
		Handles: make([]ledger.Handle, len(e.Handles)/ledger.HandleSize),
		BuiltAt: time.Unix(0, e.BuiltAt),
	}
	for i := range snap.Handles {
		copy(snap.Handles[i][:], e.Handles[i*ledger.HandleSize:])
	}

	if s.stale(snap.BuiltAt) {
		return nil, ErrStale
	}
	return snap, nil
}

func (s *Store) stale(builtAt time.Time) bool {
	return s.maxAge > 0 && s.now().Sub(builtAt) > s.maxAge
}

// Prune deletes the program's stale snapshots and returns how many it
// removed.
func (s *Store) Prune(ctx context.Context) (int, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}

	prefix := s.prefix()
	it, err := s.db.Iterator(ctx, prefix, database.PrefixEnd(prefix))
	if err != nil {
		return 0, err
	}

	var ops []database.BatchOperation
	for it.Next() {
		e, err := decodeEntry(it.Value())
		if err != nil {
			s.logger.Warn("dropping unreadable snapshot", zap.ByteString("key", it.Key()), zap.Error(err))
		} else if !s.stale(time.Unix(0, e.BuiltAt)) {
			continue
		}
		ops = append(ops, database.BatchOperation{Type: database.BatchDelete, Key: it.Key()})
	}
	err = it.Error()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	if len(ops) == 0 {
		return 0, nil
	}
	if err := s.db.Batch(ctx, ops); err != nil {
		return 0, err
	}
	return len(ops), nil
}

func compressorTag(name string) byte {
	if name == "lz4" {
		return 1
	}
	return 0
}

func decodeEntry(value []byte) (*entry, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("empty snapshot value")
	}

	var comp compression.Compressor
	switch value[0] {
	case 0:
		comp = compression.NoCompressor{}
	case 1:
		comp = compression.LZ4Compressor{}
	default:
		return nil, fmt.Errorf("unknown snapshot compression tag %d", value[0])
	}

	raw, err := comp.Decompress(value[1:])
	if err != nil {
		return nil, err
	}

	var e entry
	if err := codec.NewDecoderBytes(raw, mh).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(e.Program) != ledger.HandleSize || len(e.Handles)%ledger.HandleSize != 0 {
		return nil, fmt.Errorf("malformed snapshot")
	}
	return &e, nil
}
