package simchain

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// world is the chain state. Transactions run on a clone that replaces the
// live state only if execution succeeds.
type world struct {
	nonces map[common.Address]uint64
	code   map[common.Address][]byte
	tokens map[common.Address]*token
	vaults map[common.Address]*vault
}

func newWorld() *world {
	return &world{
		nonces: make(map[common.Address]uint64),
		code:   make(map[common.Address][]byte),
		tokens: make(map[common.Address]*token),
		vaults: make(map[common.Address]*vault),
	}
}

func (w *world) clone() *world {
	out := newWorld()
	for k, v := range w.nonces {
		out.nonces[k] = v
	}
	for k, v := range w.code {
		out.code[k] = v
	}
	for k, v := range w.tokens {
		out.tokens[k] = v.clone()
	}
	for k, v := range w.vaults {
		out.vaults[k] = v.clone()
	}
	return out
}

// revert is a contract-level rejection.
type revert string

func (r revert) Error() string { return string(r) }

// env is one execution: the state it runs against and its msg.sender.
type env struct {
	w        *world
	from     common.Address
	now      time.Time
	lockUnit time.Duration
}

func (e *env) create(addr common.Address, data []byte) (common.Address, error) {
	if len(e.w.code[addr]) > 0 {
		return addr, revert("contract address collision")
	}
	switch {
	case bytes.HasPrefix(data, TokenCode):
		e.w.tokens[addr] = newToken(e.from, InitialSupply)
		e.w.code[addr] = TokenCode

	case bytes.HasPrefix(data, VaultCode):
		v, err := newVault(data[len(VaultCode):], false)
		if err != nil {
			return addr, err
		}
		e.w.vaults[addr] = v
		e.w.code[addr] = VaultCode

	case bytes.HasPrefix(data, PresaleCode):
		v, err := newVault(data[len(PresaleCode):], true)
		if err != nil {
			return addr, err
		}
		e.w.vaults[addr] = v
		e.w.code[addr] = PresaleCode

	case len(data) == 0:
		return addr, revert("empty creation code")

	default:
		e.w.code[addr] = data
	}
	return addr, nil
}

func (e *env) call(to common.Address, data []byte) ([]byte, error) {
	if len(data) < 4 {
		if len(e.w.code[to]) == 0 {
			return nil, nil
		}
		return nil, revert("no fallback function")
	}
	sel, args := [4]byte(data[:4]), data[4:]

	if tok, ok := e.w.tokens[to]; ok {
		return tok.call(e, sel, args)
	}
	if v, ok := e.w.vaults[to]; ok {
		return v.call(e, to, sel, args)
	}
	if len(e.w.code[to]) == 0 {
		// Plain account: calls succeed with no return data.
		return nil, nil
	}
	return nil, revert("function selector was not recognized")
}

// --- ABI helpers ---

func selector(sig string) [4]byte {
	return [4]byte(crypto.Keccak256([]byte(sig))[:4])
}

func roleID(name string) [32]byte {
	if name == "DEFAULT_ADMIN_ROLE" {
		return [32]byte{}
	}
	return [32]byte(crypto.Keccak256Hash([]byte(name)))
}

var errShortInput = revert("calldata too short")

func argWord(args []byte, i int) ([]byte, error) {
	if len(args) < (i+1)*32 {
		return nil, errShortInput
	}
	return args[i*32 : (i+1)*32], nil
}

func argAddress(args []byte, i int) (common.Address, error) {
	w, err := argWord(args, i)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(w[12:]), nil
}

func argUint(args []byte, i int) (*big.Int, error) {
	w, err := argWord(args, i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(w), nil
}

func argBytes32(args []byte, i int) ([32]byte, error) {
	w, err := argWord(args, i)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(w), nil
}

func encUint(n *big.Int) []byte {
	return common.LeftPadBytes(n.Bytes(), 32)
}

func encBool(b bool) []byte {
	if b {
		return encUint(big.NewInt(1))
	}
	return encUint(new(big.Int))
}

var stringArgs = abi.Arguments{{Type: mustType("string")}}

func encString(s string) []byte {
	out, err := stringArgs.Pack(s)
	if err != nil {
		panic(err)
	}
	return out
}

// revertData encodes reason as Error(string), the payload nodes attach to
// execution reverted errors.
func revertData(reason string) []byte {
	sel := selector("Error(string)")
	return append(sel[:], encString(reason)...)
}

func mustType(s string) abi.Type {
	t, err := abi.NewType(s, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

func missingRole(account common.Address, role [32]byte) error {
	return revert(fmt.Sprintf("AccessControl: account %s is missing role %s",
		strings.ToLower(account.Hex()), common.Hash(role).Hex()))
}

var errZeroAmount = revert("amount is zero")
