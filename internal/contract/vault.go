package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
)

// Vault binds HornLockVault. Its fee and lock rules are enforced on chain;
// this type only forwards calls.
type Vault struct {
	Address common.Address
	caller  *Caller
	tx      *Transactor
}

// NewVault binds the vault at addr. tx may be nil for read-only use.
func NewVault(addr common.Address, caller *Caller, tx *Transactor) *Vault {
	return &Vault{Address: addr, caller: caller, tx: tx}
}

// Deposit locks amount of the sender's tokens, crediting referrer.
func (v *Vault) Deposit(ctx context.Context, amount *big.Int, referrer common.Address) (*chain.TxReceipt, error) {
	if v.tx == nil {
		return nil, errReadOnly
	}
	return v.tx.Transact(ctx, v.Address, FuncDeposit, amount, referrer)
}

// Withdraw releases whatever the contract decides is withdrawable.
func (v *Vault) Withdraw(ctx context.Context) (*chain.TxReceipt, error) {
	if v.tx == nil {
		return nil, errReadOnly
	}
	return v.tx.Transact(ctx, v.Address, FuncWithdraw)
}

// LockedAssets returns the vault's total locked principal.
func (v *Vault) LockedAssets(ctx context.Context) (*big.Int, error) {
	var amt *big.Int
	if err := v.caller.Call(ctx, v.Address, FuncLockedAssets, nil, &amt); err != nil {
		return nil, err
	}
	return amt, nil
}

// ClaimableFees returns the fees claimable by account for position index.
func (v *Vault) ClaimableFees(ctx context.Context, account common.Address, index uint64) (*big.Int, error) {
	var amt *big.Int
	if err := v.caller.Call(ctx, v.Address, FuncClaimableFees, []any{account, new(big.Int).SetUint64(index)}, &amt); err != nil {
		return nil, err
	}
	return amt, nil
}
