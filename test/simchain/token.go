package simchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	selMinterRole  = selector("MINTER_ROLE()")
	selBurnerRole  = selector("BURNER_ROLE()")
	selAdminRole   = selector("DEFAULT_ADMIN_ROLE()")
	selHasRole     = selector("hasRole(bytes32,address)")
	selGrantRole   = selector("grantRole(bytes32,address)")
	selRevokeRole  = selector("revokeRole(bytes32,address)")
	selBalanceOf   = selector("balanceOf(address)")
	selAllowance   = selector("allowance(address,address)")
	selApprove     = selector("approve(address,uint256)")
	selTransfer    = selector("transfer(address,uint256)")
	selTotalSupply = selector("totalSupply()")
	selDecimals    = selector("decimals()")
	selSymbol      = selector("symbol()")
)

var (
	minterRole = roleID("MINTER_ROLE")
	burnerRole = roleID("BURNER_ROLE")

	defaultAdminRole [32]byte
)

// token models HornToken: ERC-20 plus AccessControl where DEFAULT_ADMIN_ROLE
// administers every role.
type token struct {
	supply     *big.Int
	roles      map[[32]byte]map[common.Address]bool
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func newToken(admin common.Address, supply *big.Int) *token {
	t := &token{
		supply:     new(big.Int).Set(supply),
		roles:      make(map[[32]byte]map[common.Address]bool),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
	t.grant(defaultAdminRole, admin)
	t.balances[admin] = new(big.Int).Set(supply)
	return t
}

func (t *token) clone() *token {
	out := &token{
		supply:     new(big.Int).Set(t.supply),
		roles:      make(map[[32]byte]map[common.Address]bool, len(t.roles)),
		balances:   make(map[common.Address]*big.Int, len(t.balances)),
		allowances: make(map[common.Address]map[common.Address]*big.Int, len(t.allowances)),
	}
	for role, members := range t.roles {
		m := make(map[common.Address]bool, len(members))
		for a, ok := range members {
			m[a] = ok
		}
		out.roles[role] = m
	}
	for a, b := range t.balances {
		out.balances[a] = new(big.Int).Set(b)
	}
	for owner, spenders := range t.allowances {
		m := make(map[common.Address]*big.Int, len(spenders))
		for s, v := range spenders {
			m[s] = new(big.Int).Set(v)
		}
		out.allowances[owner] = m
	}
	return out
}

func (t *token) hasRole(role [32]byte, account common.Address) bool {
	return t.roles[role][account]
}

func (t *token) grant(role [32]byte, account common.Address) {
	if t.roles[role] == nil {
		t.roles[role] = make(map[common.Address]bool)
	}
	t.roles[role][account] = true
}

func (t *token) balanceOf(a common.Address) *big.Int {
	if b, ok := t.balances[a]; ok {
		return b
	}
	return new(big.Int)
}

func (t *token) allowance(owner, spender common.Address) *big.Int {
	if v, ok := t.allowances[owner][spender]; ok {
		return v
	}
	return new(big.Int)
}

func (t *token) transfer(from, to common.Address, amount *big.Int) error {
	bal := t.balanceOf(from)
	if bal.Cmp(amount) < 0 {
		return revert("ERC20: transfer amount exceeds balance")
	}
	t.balances[from] = new(big.Int).Sub(bal, amount)
	t.balances[to] = new(big.Int).Add(t.balanceOf(to), amount)
	return nil
}

func (t *token) transferFrom(spender, from, to common.Address, amount *big.Int) error {
	allowed := t.allowance(from, spender)
	if allowed.Cmp(amount) < 0 {
		return revert("ERC20: insufficient allowance")
	}
	if err := t.transfer(from, to, amount); err != nil {
		return err
	}
	if t.allowances[from] == nil {
		t.allowances[from] = make(map[common.Address]*big.Int)
	}
	t.allowances[from][spender] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (t *token) call(e *env, sel [4]byte, args []byte) ([]byte, error) {
	switch sel {
	case selMinterRole:
		return minterRole[:], nil
	case selBurnerRole:
		return burnerRole[:], nil
	case selAdminRole:
		return defaultAdminRole[:], nil
	case selDecimals:
		return encUint(big.NewInt(18)), nil
	case selSymbol:
		return encString("HORN"), nil
	case selTotalSupply:
		return encUint(t.supply), nil

	case selHasRole:
		role, err := argBytes32(args, 0)
		if err != nil {
			return nil, err
		}
		account, err := argAddress(args, 1)
		if err != nil {
			return nil, err
		}
		return encBool(t.hasRole(role, account)), nil

	case selGrantRole, selRevokeRole:
		role, err := argBytes32(args, 0)
		if err != nil {
			return nil, err
		}
		account, err := argAddress(args, 1)
		if err != nil {
			return nil, err
		}
		if !t.hasRole(defaultAdminRole, e.from) {
			return nil, missingRole(e.from, defaultAdminRole)
		}
		if sel == selGrantRole {
			t.grant(role, account)
		} else if t.roles[role] != nil {
			delete(t.roles[role], account)
		}
		return nil, nil

	case selBalanceOf:
		a, err := argAddress(args, 0)
		if err != nil {
			return nil, err
		}
		return encUint(t.balanceOf(a)), nil

	case selAllowance:
		owner, err := argAddress(args, 0)
		if err != nil {
			return nil, err
		}
		spender, err := argAddress(args, 1)
		if err != nil {
			return nil, err
		}
		return encUint(t.allowance(owner, spender)), nil

	case selApprove:
		spender, err := argAddress(args, 0)
		if err != nil {
			return nil, err
		}
		amount, err := argUint(args, 1)
		if err != nil {
			return nil, err
		}
		if t.allowances[e.from] == nil {
			t.allowances[e.from] = make(map[common.Address]*big.Int)
		}
		t.allowances[e.from][spender] = amount
		return encBool(true), nil

	case selTransfer:
		to, err := argAddress(args, 0)
		if err != nil {
			return nil, err
		}
		amount, err := argUint(args, 1)
		if err != nil {
			return nil, err
		}
		if err := t.transfer(e.from, to, amount); err != nil {
			return nil, err
		}
		return encBool(true), nil
	}
	return nil, revert("function selector was not recognized")
}
