package solana

import (
	"context"
	"errors"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goProgIndex/internal/ledger"
)

type fakeRPC struct {
	programOpts  *rpc.GetProgramAccountsOpts
	programOwner solanago.PublicKey
	programRes   rpc.GetProgramAccountsResult
	programErr   error

	multiCalls [][]solanago.PublicKey
	multiData  map[solanago.PublicKey][]byte
}

func (f *fakeRPC) GetProgramAccountsWithOpts(_ context.Context, owner solanago.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.programOwner = owner
	f.programOpts = opts
	return f.programRes, f.programErr
}

func (f *fakeRPC) GetMultipleAccountsWithOpts(_ context.Context, keys []solanago.PublicKey, _ *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error) {
	f.multiCalls = append(f.multiCalls, keys)
	res := &rpc.GetMultipleAccountsResult{Value: make([]*rpc.Account, len(keys))}
	for i, k := range keys {
		if data, ok := f.multiData[k]; ok {
			res.Value[i] = &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)}
		}
	}
	return res, nil
}

var program = ledger.MustParseHandle("HdE95RSVsdb315jfJtaykXhXY478h53X6okDupVfY9yf")

func handleN(n int) ledger.Handle {
	var h ledger.Handle
	h[0] = byte(n)
	h[1] = byte(n >> 8)
	h[31] = 0x7f
	return h
}

func TestQueryAccountsByOwnerOptions(t *testing.T) {
	acct := handleN(1)
	fake := &fakeRPC{
		programRes: rpc.GetProgramAccountsResult{
			{Pubkey: solanago.PublicKey(acct), Account: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes([]byte{3, 0, 0, 0, 'a', 'n', 'n'})}},
		},
	}
	c := newWithAPI(fake, Config{Commitment: "finalized"}, nil)

	filter := &ledger.MemcmpFilter{Offset: 5, Bytes: []byte("an")}
	res, err := c.QueryAccountsByOwner(context.Background(), program, ledger.DataSlice{Offset: 1, Length: 12}, filter)
	require.NoError(t, err)

	assert.Equal(t, solanago.PublicKey(program), fake.programOwner)
	require.NotNil(t, fake.programOpts.DataSlice)
	assert.Equal(t, uint64(1), *fake.programOpts.DataSlice.Offset)
	assert.Equal(t, uint64(12), *fake.programOpts.DataSlice.Length)
	assert.Equal(t, rpc.CommitmentFinalized, fake.programOpts.Commitment)
	require.Len(t, fake.programOpts.Filters, 1)
	assert.Equal(t, uint64(5), fake.programOpts.Filters[0].Memcmp.Offset)
	assert.Equal(t, solanago.Base58("an"), fake.programOpts.Filters[0].Memcmp.Bytes)

	require.Len(t, res, 1)
	assert.Equal(t, acct, res[0].Handle)
	assert.Equal(t, []byte{3, 0, 0, 0, 'a', 'n', 'n'}, res[0].Data)
}

func TestQueryAccountsByOwnerNoFilter(t *testing.T) {
	fake := &fakeRPC{}
	c := newWithAPI(fake, Config{}, nil)

	_, err := c.QueryAccountsByOwner(context.Background(), program, ledger.DataSlice{Offset: 1, Length: 12}, nil)
	require.NoError(t, err)
	assert.Empty(t, fake.programOpts.Filters)
	assert.Equal(t, rpc.CommitmentConfirmed, fake.programOpts.Commitment)
}

func TestQueryAccountsByOwnerError(t *testing.T) {
	boom := errors.New("429 too many requests")
	c := newWithAPI(&fakeRPC{programErr: boom}, Config{}, nil)

	_, err := c.QueryAccountsByOwner(context.Background(), program, ledger.DataSlice{}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestGetAccountsByHandlesChunks(t *testing.T) {
	handles := make([]ledger.Handle, 0, 230)
	data := make(map[solanago.PublicKey][]byte)
	for i := 0; i < 230; i++ {
		h := handleN(i)
		handles = append(handles, h)
		if i%7 != 0 {
			data[solanago.PublicKey(h)] = []byte{byte(i)}
		}
	}

	fake := &fakeRPC{multiData: data}
	c := newWithAPI(fake, Config{}, nil)

	out, err := c.GetAccountsByHandles(context.Background(), handles)
	require.NoError(t, err)
	require.Len(t, out, len(handles))

	require.Len(t, fake.multiCalls, 3)
	assert.Len(t, fake.multiCalls[0], 100)
	assert.Len(t, fake.multiCalls[2], 30)

	for i := range handles {
		if i%7 == 0 {
			assert.Nil(t, out[i], "handle %d should be absent", i)
			continue
		}
		assert.Equal(t, []byte{byte(i)}, out[i])
	}
}
