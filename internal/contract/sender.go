package contract

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/wallet"
)

// PendingTx is a broadcast transaction that has not been confirmed yet.
type PendingTx struct {
	Hash  common.Hash
	From  common.Address
	Nonce uint64
	To    *common.Address // nil for contract creation
}

// Transactor signs and sends transactions from a single account and waits
// for their receipts.
type Transactor struct {
	backend Backend
	signer  wallet.Signer
	chainID *big.Int
	poll    time.Duration
	timeout time.Duration
	log     *zap.Logger
}

// TransactorOption configures a Transactor.
type TransactorOption func(*Transactor)

// WithPollInterval sets how often receipts are polled.
func WithPollInterval(d time.Duration) TransactorOption {
	return func(t *Transactor) { t.poll = d }
}

// WithReceiptTimeout bounds how long Wait blocks for one receipt.
func WithReceiptTimeout(d time.Duration) TransactorOption {
	return func(t *Transactor) { t.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) TransactorOption {
	return func(t *Transactor) { t.log = l }
}

// NewTransactor creates a Transactor for signer on chainID.
func NewTransactor(backend Backend, signer wallet.Signer, chainID *big.Int, opts ...TransactorOption) *Transactor {
	t := &Transactor{
		backend: backend,
		signer:  signer,
		chainID: chainID,
		poll:    2 * time.Second,
		timeout: 5 * time.Minute,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// From returns the signing account.
func (t *Transactor) From() common.Address {
	return t.signer.Address()
}

// Backend returns the RPC backend.
func (t *Transactor) Backend() Backend {
	return t.backend
}

// Send builds, signs and broadcasts a transaction. to == nil deploys a
// contract. A revert during gas estimation fails the send; any other
// estimation failure falls back to fallbackGas.
func (t *Transactor) Send(ctx context.Context, to *common.Address, data []byte, fallbackGas uint64) (*PendingTx, error) {
	from := t.signer.Address()

	gas, err := t.backend.EstimateGas(ctx, chain.CallMsg{From: from, To: to, Data: data})
	if err != nil {
		if chain.IsRevert(err) {
			return nil, fmt.Errorf("estimating gas: %w", err)
		}
		t.log.Warn("gas estimation failed, using fallback",
			zap.Uint64("gas", fallbackGas), zap.Error(err))
		gas = fallbackGas
	}

	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	nonce, err := t.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	raw, err := t.signer.SignTx(tx, t.chainID)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	hash, err := t.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}

	t.log.Debug("transaction sent",
		zap.String("tx", hash.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas))

	return &PendingTx{Hash: hash, From: from, Nonce: nonce, To: to}, nil
}

// Wait blocks until hash is mined or the receipt timeout elapses.
func (t *Transactor) Wait(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	receipt, err := t.backend.WaitForReceipt(ctx, hash, t.poll)
	if err != nil {
		return receipt, err
	}
	t.log.Debug("transaction mined",
		zap.String("tx", hash.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
		zap.Duration("waited", time.Since(start)))
	return receipt, nil
}

// Transact calls a state-changing function and waits for its receipt.
func (t *Transactor) Transact(ctx context.Context, to common.Address, fn *w3.Func, args ...any) (*chain.TxReceipt, error) {
	data, err := fn.EncodeArgs(args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", fn.Signature, err)
	}
	ptx, err := t.Send(ctx, &to, data, defaultCallGas)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Signature, err)
	}
	receipt, err := t.Wait(ctx, ptx.Hash)
	if err != nil {
		return receipt, fmt.Errorf("%s: %w", fn.Signature, err)
	}
	return receipt, nil
}

const (
	defaultCallGas   = uint64(200_000)
	defaultDeployGas = uint64(5_000_000)
)
