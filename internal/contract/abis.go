package contract

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/lmittmann/w3"
)

// Token (ERC-20 + AccessControl) functions.
var (
	FuncHasRole   = w3.MustNewFunc("hasRole(bytes32,address)", "bool")
	FuncGrantRole = w3.MustNewFunc("grantRole(bytes32,address)", "")
	FuncBalanceOf = w3.MustNewFunc("balanceOf(address)", "uint256")
	FuncAllowance = w3.MustNewFunc("allowance(address,address)", "uint256")
	FuncApprove   = w3.MustNewFunc("approve(address,uint256)", "bool")
	FuncDecimals  = w3.MustNewFunc("decimals()", "uint8")
	FuncSymbol    = w3.MustNewFunc("symbol()", "string")
)

// Vault functions.
var (
	FuncDeposit       = w3.MustNewFunc("deposit(uint256,address)", "")
	FuncWithdraw      = w3.MustNewFunc("withdraw()", "")
	FuncLockedAssets  = w3.MustNewFunc("lockedAssets()", "uint256")
	FuncClaimableFees = w3.MustNewFunc("claimableFees(address,uint256)", "uint256")
)

var (
	roleGetterRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	roleGettersMu sync.Mutex
	roleGetters   = map[string]*w3.Func{}
)

// RoleGetter returns the binding for a public bytes32 role constant such as
// MINTER_ROLE().
func RoleGetter(name string) (*w3.Func, error) {
	if !roleGetterRe.MatchString(name) {
		return nil, fmt.Errorf("invalid role getter %q", name)
	}

	roleGettersMu.Lock()
	defer roleGettersMu.Unlock()

	if fn, ok := roleGetters[name]; ok {
		return fn, nil
	}
	fn, err := w3.NewFunc(name+"()", "bytes32")
	if err != nil {
		return nil, fmt.Errorf("role getter %s: %w", name, err)
	}
	roleGetters[name] = fn
	return fn, nil
}
