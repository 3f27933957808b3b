// Package pager materializes pages of records on top of an account index.
//
// Only handles are cached. Every page fetch asks the ledger for the full
// payloads of that page's accounts in a single batched call, so records are
// always as fresh as the ledger.
package pager

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/LeJamon/goProgIndex/internal/codec/record"
	"github.com/LeJamon/goProgIndex/internal/index"
	"github.com/LeJamon/goProgIndex/internal/ledger"
)

// ErrInvalidPage is returned for a page number or page size below one.
var ErrInvalidPage = errors.New("page and page size must be at least 1")

// Fetcher serves pages for one index.
type Fetcher struct {
	idx    *index.Index
	client ledger.Client
	logger *zap.Logger
}

// New returns a Fetcher reading payloads through client. client is usually
// the same ledger the index was built from.
func New(idx *index.Index, client ledger.Client, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{idx: idx, client: client, logger: logger}
}

// Index returns the underlying account index.
func (f *Fetcher) Index() *index.Index {
	return f.idx
}

// Page is one fetched page plus the data needed to offer a next page.
type Page struct {
	Records      []record.Record `json:"records"`
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	Search       string          `json:"search"`
	AccountCount int             `json:"account_count"`
	HasNext      bool            `json:"has_next"`
}

// FetchPage returns the decoded records of page (1-based) for term. The
// index is rebuilt first when it is empty, was built for another term, or
// reload is set. Accounts that disappeared or fail to decode are dropped.
func (f *Fetcher) FetchPage(ctx context.Context, page, pageSize int, term string, reload bool) ([]record.Record, error) {
	p, err := f.FetchPageInfo(ctx, page, pageSize, term, reload)
	if err != nil {
		return nil, err
	}
	return p.Records, nil
}

// FetchPageInfo is FetchPage with pagination metadata.
func (f *Fetcher) FetchPageInfo(ctx context.Context, page, pageSize int, term string, reload bool) (*Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}

	snap, err := f.idx.Ensure(ctx, term, reload)
	if err != nil {
		return nil, err
	}

	out := &Page{
		Records:      []record.Record{},
		Page:         page,
		PageSize:     pageSize,
		Search:       term,
		AccountCount: snap.Len(),
	}

	window := snap.Window(page, pageSize)
	if len(window) == 0 {
		return out, nil
	}
	// window is non-empty so (page-1)*pageSize did not overflow
	out.HasNext = (page-1)*pageSize+len(window) < snap.Len()

	payloads, err := f.client.GetAccountsByHandles(ctx, window)
	if err != nil {
		f.logger.Warn("page fetch failed",
			zap.Int("page", page),
			zap.Int("accounts", len(window)),
			zap.Error(err))
		return nil, &index.UnavailableError{Op: "fetch accounts", Term: term, Err: err}
	}

	headerLen := f.idx.Layout().RecordOffset
	for i, h := range window {
		var data []byte
		if i < len(payloads) {
			data = payloads[i]
		}
		rec, err := record.DecodeAccount(data, headerLen)
		if err != nil {
			f.logger.Debug("dropping undecodable account",
				zap.Stringer("account", h),
				zap.Error(err))
			continue
		}
		if rec == nil {
			f.logger.Debug("dropping missing account", zap.Stringer("account", h))
			continue
		}
		out.Records = append(out.Records, *rec)
	}
	return out, nil
}

// CachedAccountCount is the size of the current ordering. It never touches
// the ledger.
func (f *Fetcher) CachedAccountCount() int {
	return f.idx.Len()
}
