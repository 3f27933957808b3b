// Package solana adapts the gagliardetto/solana-go JSON-RPC client to the
// ledger.Client interface.
package solana

import (
	"context"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/LeJamon/goProgIndex/internal/ledger"
)

// MaxAccountsPerRequest is the getMultipleAccounts key limit enforced by RPC nodes.
const MaxAccountsPerRequest = 100

// rpcAPI is the part of *rpc.Client used here.
type rpcAPI interface {
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solanago.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solanago.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
}

// Config configures the adapter.
type Config struct {
	Endpoint   string
	Commitment string
	Timeout    time.Duration
}

// Client talks to a Solana RPC endpoint.
type Client struct {
	rpc        rpcAPI
	commitment rpc.CommitmentType
	timeout    time.Duration
	logger     *zap.Logger
}

var _ ledger.Client = (*Client)(nil)

// New creates a client for cfg.Endpoint.
func New(cfg Config, logger *zap.Logger) *Client {
	return newWithAPI(rpc.New(cfg.Endpoint), cfg, logger)
}

func newWithAPI(api rpcAPI, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	commitment := rpc.CommitmentType(cfg.Commitment)
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		rpc:        api,
		commitment: commitment,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// QueryAccountsByOwner implements ledger.Client with getProgramAccounts.
func (c *Client) QueryAccountsByOwner(ctx context.Context, owner ledger.Handle, slice ledger.DataSlice, filter *ledger.MemcmpFilter) ([]ledger.KeyedSlice, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	offset, length := slice.Offset, slice.Length
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solanago.EncodingBase64,
		DataSlice:  &rpc.DataSlice{Offset: &offset, Length: &length},
	}
	if filter != nil {
		opts.Filters = []rpc.RPCFilter{{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: filter.Offset,
				Bytes:  solanago.Base58(filter.Bytes),
			},
		}}
	}

	started := time.Now()
	res, err := c.rpc.GetProgramAccountsWithOpts(ctx, solanago.PublicKey(owner), opts)
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts %s: %w", owner, err)
	}
	c.logger.Debug("getProgramAccounts",
		zap.Stringer("owner", owner),
		zap.Int("accounts", len(res)),
		zap.Bool("filtered", filter != nil),
		zap.Duration("took", time.Since(started)))

	out := make([]ledger.KeyedSlice, 0, len(res))
	for _, keyed := range res {
		if keyed == nil {
			continue
		}
		out = append(out, ledger.KeyedSlice{
			Handle: ledger.Handle(keyed.Pubkey),
			Data:   accountData(keyed.Account),
		})
	}
	return out, nil
}

// GetAccountsByHandles implements ledger.Client with getMultipleAccounts,
// split into requests of at most MaxAccountsPerRequest keys.
func (c *Client) GetAccountsByHandles(ctx context.Context, handles []ledger.Handle) ([][]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out := make([][]byte, 0, len(handles))
	for start := 0; start < len(handles); start += MaxAccountsPerRequest {
		end := min(start+MaxAccountsPerRequest, len(handles))

		keys := make([]solanago.PublicKey, 0, end-start)
		for _, h := range handles[start:end] {
			keys = append(keys, solanago.PublicKey(h))
		}

		res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, keys, &rpc.GetMultipleAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solanago.EncodingBase64,
		})
		if err != nil {
			return nil, fmt.Errorf("getMultipleAccounts: %w", err)
		}
		if res == nil || len(res.Value) != len(keys) {
			return nil, fmt.Errorf("getMultipleAccounts: expected %d accounts in response", len(keys))
		}
		for _, acct := range res.Value {
			out = append(out, accountData(acct))
		}
	}
	return out, nil
}

func accountData(acct *rpc.Account) []byte {
	if acct == nil || acct.Data == nil {
		return nil
	}
	return acct.Data.GetBinary()
}
