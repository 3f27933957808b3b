package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LeJamon/goProgIndex/internal/config"
	"github.com/LeJamon/goProgIndex/internal/index"
	"github.com/LeJamon/goProgIndex/internal/ledger"
	"github.com/LeJamon/goProgIndex/internal/ledger/memory"
	"github.com/LeJamon/goProgIndex/internal/ledger/solana"
	"github.com/LeJamon/goProgIndex/internal/pager"
	"github.com/LeJamon/goProgIndex/internal/storage"
	"github.com/LeJamon/goProgIndex/internal/storage/compression"
	"github.com/LeJamon/goProgIndex/internal/storage/database"
	"github.com/LeJamon/goProgIndex/internal/storage/snapshot"
)

// app holds the components shared by the server and page commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	program ledger.Handle
	layout  index.Layout
	client  ledger.Client
	db      database.DB
	store   *snapshot.Store
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		program: cfg.Index.ProgramHandle(),
		layout: index.Layout{
			RecordOffset: cfg.Index.RecordOffset,
			PrefixLength: cfg.Index.PrefixLength,
		},
	}

	client, err := a.openLedger()
	if err != nil {
		return nil, err
	}
	a.client = client

	if cfg.Snapshot.Enabled {
		if err := a.openSnapshots(ctx); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openLedger() (ledger.Client, error) {
	lc := a.cfg.Ledger
	switch lc.Backend {
	case "solana":
		a.logger.Info("using solana ledger",
			zap.String("endpoint", lc.Endpoint),
			zap.String("commitment", lc.Commitment))
		return solana.New(solana.Config{
			Endpoint:   lc.Endpoint,
			Commitment: lc.Commitment,
			Timeout:    lc.Timeout,
		}, a.logger.Named("ledger")), nil

	case "memory":
		l := memory.New()
		if lc.FixtureFile != "" {
			fx, err := memory.LoadFixtureFile(lc.FixtureFile)
			if err != nil {
				return nil, err
			}
			if err := fx.Apply(l, a.program, a.layout.RecordOffset); err != nil {
				return nil, err
			}
			a.logger.Info("loaded ledger fixture",
				zap.String("file", lc.FixtureFile),
				zap.Int("accounts", len(fx.Accounts)))
		}
		return l, nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", lc.Backend)
	}
}

func (a *app) openSnapshots(ctx context.Context) error {
	sc := a.cfg.Snapshot
	db, err := storage.Open(ctx, sc.Backend, sc.Path, sc.DSN)
	if err != nil {
		return err
	}
	comp, err := compression.Get(sc.Compression)
	if err != nil {
		db.Close()
		return err
	}

	a.db = db
	a.store = snapshot.New(db, a.program,
		snapshot.WithCompressor(comp),
		snapshot.WithMaxAge(sc.MaxAge),
		snapshot.WithLogger(a.logger.Named("snapshot")))

	pruned, err := a.store.Prune(ctx)
	if err != nil {
		a.logger.Warn("failed to prune snapshots", zap.Error(err))
	} else if pruned > 0 {
		a.logger.Info("pruned stale snapshots", zap.Int("count", pruned))
	}
	return nil
}

// newFetcher builds an index and page fetcher. With a snapshot store the
// index is persisted after each rebuild and warm starts from the saved
// ordering of the empty search term.
func (a *app) newFetcher(ctx context.Context, session string) *pager.Fetcher {
	logger := a.logger.With(zap.String("session", session))

	opts := []index.Option{
		index.WithLayout(a.layout),
		index.WithLogger(logger.Named("index")),
	}
	if a.store != nil {
		opts = append(opts, index.WithStore(a.store))
	}
	ix := index.New(a.client, a.program, opts...)

	if a.store != nil {
		snap, err := a.store.Load(ctx, "")
		switch {
		case err == nil:
			ix.Seed(snap)
			logger.Debug("index warm started", zap.Int("accounts", snap.Len()))
		case errors.Is(err, snapshot.ErrNotFound), errors.Is(err, snapshot.ErrStale):
		default:
			logger.Warn("failed to load snapshot", zap.Error(err))
		}
	}

	return pager.New(ix, a.client, logger.Named("pager"))
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
