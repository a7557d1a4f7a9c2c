package contract

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
)

// Backend is the subset of the JSON-RPC client the contract layer needs.
// *chain.EVMClient implements it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg chain.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg chain.CallMsg) ([]byte, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*chain.TxReceipt, error)
}

// Caller performs read-only contract calls.
type Caller struct {
	backend Backend
	from    common.Address
}

// NewCaller creates a Caller. from is used as msg.sender for view functions
// that depend on it.
func NewCaller(backend Backend, from common.Address) *Caller {
	return &Caller{backend: backend, from: from}
}

// Call invokes fn on contract to with args and decodes the result into
// returns.
func (c *Caller) Call(ctx context.Context, to common.Address, fn *w3.Func, args []any, returns ...any) error {
	data, err := fn.EncodeArgs(args...)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", fn.Signature, err)
	}

	out, err := c.backend.CallContract(ctx, chain.CallMsg{From: c.from, To: &to, Data: data})
	if err != nil {
		return fmt.Errorf("calling %s on %s: %w", fn.Signature, to.Hex(), err)
	}
	if len(out) == 0 && len(returns) > 0 {
		return fmt.Errorf("calling %s on %s: empty result (no contract at address?)", fn.Signature, to.Hex())
	}
	if len(returns) == 0 {
		return nil
	}
	if err := fn.DecodeReturns(out, returns...); err != nil {
		return fmt.Errorf("decoding %s: %w", fn.Signature, err)
	}
	return nil
}
