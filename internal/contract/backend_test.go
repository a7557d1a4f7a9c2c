package contract

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/wallet"
)

// go-ethereum's well-known test key.
const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

// fakeBackend records what the contract layer sends and replays canned
// answers.
type fakeBackend struct {
	mu sync.Mutex

	chainID     *big.Int
	nonce       uint64
	gasPrice    *big.Int
	estimate    uint64
	estimateErr error
	callOut     []byte
	callErr     error
	code        map[common.Address][]byte
	receipt     chain.TxReceipt
	waitErr     error

	calls []chain.CallMsg
	sent  []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(1337),
		gasPrice: big.NewInt(1_000_000_000),
		estimate: 50_000,
		code:     map[common.Address][]byte{},
		receipt:  chain.TxReceipt{Status: 1, BlockNumber: 7, GasUsed: 21_000},
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return f.gasPrice, nil }

func (f *fakeBackend) EstimateGas(context.Context, chain.CallMsg) (uint64, error) {
	return f.estimate, f.estimateErr
}

func (f *fakeBackend) CallContract(_ context.Context, msg chain.CallMsg) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	return f.callOut, f.callErr
}

func (f *fakeBackend) CodeAt(_ context.Context, addr common.Address) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[addr], nil
}

func (f *fakeBackend) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.nonce++
	return tx.Hash(), nil
}

func (f *fakeBackend) WaitForReceipt(_ context.Context, hash common.Hash, _ time.Duration) (*chain.TxReceipt, error) {
	r := f.receipt
	r.TxHash = hash
	return &r, f.waitErr
}

func newTestTransactor(t *testing.T, b *fakeBackend) *Transactor {
	t.Helper()
	s, err := wallet.NewKeySigner(testKey)
	require.NoError(t, err)
	return NewTransactor(b, s, b.chainID, WithPollInterval(time.Millisecond))
}

// word left-pads b to a 32-byte ABI word.
func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}
