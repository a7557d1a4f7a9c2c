package simchain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	selDeposit       = selector("deposit(uint256,address)")
	selWithdraw      = selector("withdraw()")
	selLockedAssets  = selector("lockedAssets()")
	selClaimableFees = selector("claimableFees(address,uint256)")
	selToken         = selector("token()")
	selLockPeriod    = selector("lockPeriod()")
)

// vault models HornLockVault. Each deposit keeps DepositFeeBps of the amount
// as a fee and locks the rest for lockPeriod lock units. withdraw releases
// every matured position of the caller. The vault must hold MINTER_ROLE on
// its token to accept deposits and BURNER_ROLE to release them.
type vault struct {
	token        common.Address
	feeRecipient common.Address
	lockPeriod   *big.Int
	feeRate      *big.Int
	cap          *big.Int
	mode         *big.Int
	price        *big.Int
	locked       *big.Int
	positions    map[common.Address][]position
}

type position struct {
	principal   *big.Int
	fee         *big.Int
	depositedAt time.Time
	released    bool
}

// newVault decodes constructor arguments. Vault order: token, feeRecipient,
// lockPeriod, feeRate, cap, mode, price. Presale order: paymentToken, token,
// lockPeriod, feeRate, cap, price, mode.
func newVault(args []byte, presale bool) (*vault, error) {
	if len(args) != 7*32 {
		return nil, revert("constructor expects 7 arguments")
	}
	v := &vault{locked: new(big.Int), positions: make(map[common.Address][]position)}

	first, _ := argAddress(args, 0)
	second, _ := argAddress(args, 1)
	v.lockPeriod, _ = argUint(args, 2)
	v.feeRate, _ = argUint(args, 3)
	v.cap, _ = argUint(args, 4)
	if presale {
		v.token, v.feeRecipient = second, first
		v.price, _ = argUint(args, 5)
		v.mode, _ = argUint(args, 6)
	} else {
		v.token, v.feeRecipient = first, second
		v.mode, _ = argUint(args, 5)
		v.price, _ = argUint(args, 6)
	}
	return v, nil
}

func (v *vault) clone() *vault {
	out := *v
	out.locked = new(big.Int).Set(v.locked)
	out.positions = make(map[common.Address][]position, len(v.positions))
	for a, ps := range v.positions {
		cp := make([]position, len(ps))
		copy(cp, ps)
		out.positions[a] = cp
	}
	return &out
}

func (v *vault) call(e *env, self common.Address, sel [4]byte, args []byte) ([]byte, error) {
	switch sel {
	case selLockedAssets:
		return encUint(v.locked), nil
	case selToken:
		return common.LeftPadBytes(v.token.Bytes(), 32), nil
	case selLockPeriod:
		return encUint(v.lockPeriod), nil

	case selClaimableFees:
		account, err := argAddress(args, 0)
		if err != nil {
			return nil, err
		}
		idx, err := argUint(args, 1)
		if err != nil {
			return nil, err
		}
		ps := v.positions[account]
		if !idx.IsUint64() || idx.Uint64() >= uint64(len(ps)) {
			return nil, revert("HornLockVault: no such deposit")
		}
		return encUint(ps[idx.Uint64()].fee), nil

	case selDeposit:
		amount, err := argUint(args, 0)
		if err != nil {
			return nil, err
		}
		return nil, v.deposit(e, self, amount)

	case selWithdraw:
		return nil, v.withdraw(e, self)
	}
	return nil, revert("function selector was not recognized")
}

func (v *vault) deposit(e *env, self common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return errZeroAmount
	}
	tok, ok := e.w.tokens[v.token]
	if !ok {
		return revert("HornLockVault: token has no code")
	}
	if !tok.hasRole(minterRole, self) {
		return revert("HornLockVault: vault is not a minter")
	}
	if err := tok.transferFrom(self, e.from, self, amount); err != nil {
		return err
	}

	fee := new(big.Int).Mul(amount, big.NewInt(DepositFeeBps))
	fee.Div(fee, big.NewInt(10_000))
	principal := new(big.Int).Sub(amount, fee)

	v.locked.Add(v.locked, principal)
	v.positions[e.from] = append(v.positions[e.from], position{
		principal:   principal,
		fee:         fee,
		depositedAt: e.now,
	})
	return nil
}

func (v *vault) withdraw(e *env, self common.Address) error {
	tok, ok := e.w.tokens[v.token]
	if !ok {
		return revert("HornLockVault: token has no code")
	}
	if !tok.hasRole(burnerRole, self) {
		return revert("HornLockVault: vault is not a burner")
	}

	lock := time.Duration(v.lockPeriod.Int64()) * e.lockUnit
	ps := v.positions[e.from]
	released := new(big.Int)
	pending := 0
	for i := range ps {
		if ps[i].released {
			continue
		}
		if e.now.Before(ps[i].depositedAt.Add(lock)) {
			pending++
			continue
		}
		ps[i].released = true
		released.Add(released, ps[i].principal)
	}

	if released.Sign() == 0 {
		if pending > 0 {
			return revert("HornLockVault: lock period not expired")
		}
		return revert("HornLockVault: nothing to withdraw")
	}

	if err := tok.transfer(self, e.from, released); err != nil {
		return err
	}
	v.locked.Sub(v.locked, released)
	return nil
}
