package contract

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
)

// Token binds the Horn token: an ERC-20 with AccessControl roles.
type Token struct {
	Address common.Address
	caller  *Caller
	tx      *Transactor
}

// NewToken binds the token at addr. tx may be nil for read-only use.
func NewToken(addr common.Address, caller *Caller, tx *Transactor) *Token {
	return &Token{Address: addr, caller: caller, tx: tx}
}

// Role reads a role identifier from its public getter, e.g. MINTER_ROLE().
func (t *Token) Role(ctx context.Context, getter string) ([32]byte, error) {
	var id [32]byte
	fn, err := RoleGetter(getter)
	if err != nil {
		return id, err
	}
	if err := t.caller.Call(ctx, t.Address, fn, nil, &id); err != nil {
		return id, err
	}
	return id, nil
}

// HasRole reports whether account holds role.
func (t *Token) HasRole(ctx context.Context, role [32]byte, account common.Address) (bool, error) {
	var ok bool
	err := t.caller.Call(ctx, t.Address, FuncHasRole, []any{role, account}, &ok)
	return ok, err
}

// GrantRole grants role to account and waits for the receipt.
func (t *Token) GrantRole(ctx context.Context, role [32]byte, account common.Address) (*chain.TxReceipt, error) {
	if t.tx == nil {
		return nil, errReadOnly
	}
	return t.tx.Transact(ctx, t.Address, FuncGrantRole, role, account)
}

// BalanceOf returns the token balance of account.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var bal *big.Int
	if err := t.caller.Call(ctx, t.Address, FuncBalanceOf, []any{account}, &bal); err != nil {
		return nil, err
	}
	return bal, nil
}

// Allowance returns how much spender may move on behalf of owner.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var amt *big.Int
	if err := t.caller.Call(ctx, t.Address, FuncAllowance, []any{owner, spender}, &amt); err != nil {
		return nil, err
	}
	return amt, nil
}

// Approve lets spender move amount of the sender's tokens.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*chain.TxReceipt, error) {
	if t.tx == nil {
		return nil, errReadOnly
	}
	return t.tx.Transact(ctx, t.Address, FuncApprove, spender, amount)
}

// Decimals returns the token's decimals, defaulting to 18 if the token does
// not expose them.
func (t *Token) Decimals(ctx context.Context) uint8 {
	var d uint8
	if err := t.caller.Call(ctx, t.Address, FuncDecimals, nil, &d); err != nil {
		return 18
	}
	return d
}

var errReadOnly = errors.New("binding has no transactor")
