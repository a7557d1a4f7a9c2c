// Package simchain is an in-process JSON-RPC node for tests. It accepts
// signed transactions, keeps nonces, receipts and a clock, and executes
// calls against Go models of the Horn token and lock vault. Contracts are
// recognised by the marker bytecode carried in test/fixtures artifacts.
package simchain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Marker bytecode for the contracts simchain knows how to run. Constructor
// arguments follow the marker, ABI-encoded.
var (
	TokenCode   = []byte("simchain:HornToken")
	VaultCode   = []byte("simchain:HornLockVault")
	PresaleCode = []byte("simchain:HornPresale")
)

// InitialSupply is minted to the deployer of a HornToken (1,000,000 tokens).
var InitialSupply = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))

// DepositFeeBps is the fee the vault model keeps from every deposit.
const DepositFeeBps = 30

const (
	defaultChainID = 1337
	gasPrice       = 1_000_000_000
	nativeBalance  = "0x56bc75e2d63100000" // 100 ETH
)

// Chain is a running simulated node.
type Chain struct {
	mu       sync.Mutex
	chainID  *big.Int
	signer   types.Signer
	lockUnit time.Duration
	now      time.Time
	head     uint64
	world    *world
	receipts map[common.Hash]*receipt
	calls    map[string]int

	srv *httptest.Server
}

type receipt struct {
	status   uint64
	block    uint64
	gasUsed  uint64
	contract *common.Address
}

// Option configures a Chain.
type Option func(*Chain)

// WithChainID sets the chain ID reported by eth_chainId.
func WithChainID(id uint64) Option {
	return func(c *Chain) { c.chainID = new(big.Int).SetUint64(id) }
}

// WithLockUnit sets the duration of one vault lock period unit.
func WithLockUnit(d time.Duration) Option {
	return func(c *Chain) { c.lockUnit = d }
}

// Start launches a chain and closes it when t finishes.
func Start(t testing.TB, opts ...Option) *Chain {
	t.Helper()
	c := New(opts...)
	t.Cleanup(c.Close)
	return c
}

// New launches a chain. Call Close when done.
func New(opts ...Option) *Chain {
	c := &Chain{
		chainID:  big.NewInt(defaultChainID),
		lockUnit: 24 * time.Hour,
		now:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		head:     1,
		world:    newWorld(),
		receipts: make(map[common.Hash]*receipt),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.signer = types.LatestSignerForChainID(c.chainID)
	c.srv = httptest.NewServer(c)
	return c
}

// URL is the JSON-RPC endpoint.
func (c *Chain) URL() string { return c.srv.URL }

// Close stops the server.
func (c *Chain) Close() { c.srv.Close() }

// ChainID returns the chain ID.
func (c *Chain) ChainID() uint64 { return c.chainID.Uint64() }

// Now returns the chain clock.
func (c *Chain) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and mines an empty block.
func (c *Chain) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.head++
}

// Calls returns how many requests for method the chain has served.
func (c *Chain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of requests served.
func (c *Chain) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// DeployTokenAt places a HornToken at addr without a transaction. admin
// holds DEFAULT_ADMIN_ROLE and the whole supply.
func (c *Chain) DeployTokenAt(addr, admin common.Address, supply *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.world.tokens[addr] = newToken(admin, supply)
	c.world.code[addr] = TokenCode
}

// TokenBalance reads a token balance directly from state.
func (c *Chain) TokenBalance(token, account common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok, ok := c.world.tokens[token]; ok {
		return new(big.Int).Set(tok.balanceOf(account))
	}
	return new(big.Int)
}

// HasRole reads a token role directly from state.
func (c *Chain) HasRole(token common.Address, role string, account common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.world.tokens[token]
	return ok && tok.hasRole(roleID(role), account)
}

// LockedAssets reads a vault's locked total directly from state.
func (c *Chain) LockedAssets(vault common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.world.vaults[vault]; ok {
		return new(big.Int).Set(v.locked)
	}
	return new(big.Int)
}

// --- JSON-RPC ---

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type callArg struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

func (a callArg) payload() []byte {
	if len(a.Data) > 0 {
		return a.Data
	}
	return a.Input
}

func (c *Chain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	c.calls[req.Method]++
	result, rerr := c.dispatch(req.Method, req.Params)
	c.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (c *Chain) dispatch(method string, params []json.RawMessage) (any, *rpcErr) {
	switch method {
	case "eth_chainId":
		return hexutil.EncodeBig(c.chainID), nil
	case "eth_blockNumber":
		return hexutil.EncodeUint64(c.head), nil
	case "eth_gasPrice":
		return hexutil.EncodeUint64(gasPrice), nil
	case "eth_getBalance":
		return nativeBalance, nil

	case "eth_getTransactionCount":
		var addr common.Address
		if err := param(params, 0, &addr); err != nil {
			return nil, err
		}
		return hexutil.EncodeUint64(c.world.nonces[addr]), nil

	case "eth_getCode":
		var addr common.Address
		if err := param(params, 0, &addr); err != nil {
			return nil, err
		}
		return hexutil.Encode(c.world.code[addr]), nil

	case "eth_call", "eth_estimateGas":
		var arg callArg
		if err := param(params, 0, &arg); err != nil {
			return nil, err
		}
		scratch := c.world.clone()
		out, err := c.execute(scratch, arg.From, arg.To, arg.payload(), scratch.nonces[arg.From])
		if err != nil {
			return nil, revertErr(err)
		}
		if method == "eth_estimateGas" {
			return hexutil.EncodeUint64(estimate(arg.payload())), nil
		}
		return hexutil.Encode(out), nil

	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		if err := param(params, 0, &raw); err != nil {
			return nil, err
		}
		return c.sendRaw(raw)

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := param(params, 0, &hash); err != nil {
			return nil, err
		}
		r, ok := c.receipts[hash]
		if !ok {
			return nil, nil
		}
		out := map[string]any{
			"transactionHash": hash.Hex(),
			"status":          hexutil.EncodeUint64(r.status),
			"blockNumber":     hexutil.EncodeUint64(r.block),
			"gasUsed":         hexutil.EncodeUint64(r.gasUsed),
			"contractAddress": nil,
		}
		if r.contract != nil {
			out["contractAddress"] = r.contract.Hex()
		}
		return out, nil
	}
	return nil, &rpcErr{Code: -32601, Message: fmt.Sprintf("the method %s does not exist/is not available", method)}
}

func (c *Chain) sendRaw(raw []byte) (any, *rpcErr) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, &rpcErr{Code: -32602, Message: "invalid transaction: " + err.Error()}
	}
	if tx.ChainId().Cmp(c.chainID) != 0 {
		return nil, &rpcErr{Code: -32000, Message: fmt.Sprintf("invalid chain id %s", tx.ChainId())}
	}
	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return nil, &rpcErr{Code: -32000, Message: "invalid sender: " + err.Error()}
	}
	switch want := c.world.nonces[from]; {
	case tx.Nonce() < want:
		return nil, &rpcErr{Code: -32000, Message: "nonce too low"}
	case tx.Nonce() > want:
		return nil, &rpcErr{Code: -32000, Message: "nonce too high"}
	}

	scratch := c.world.clone()
	_, execErr := c.execute(scratch, from, tx.To(), tx.Data(), tx.Nonce())

	c.head++
	r := &receipt{status: 1, block: c.head, gasUsed: min(tx.Gas(), estimate(tx.Data()))}
	if execErr != nil {
		r.status = 0
		c.world.nonces[from]++
	} else {
		scratch.nonces[from]++
		c.world = scratch
		if tx.To() == nil {
			addr := crypto.CreateAddress(from, tx.Nonce())
			r.contract = &addr
		}
	}
	c.receipts[tx.Hash()] = r
	return tx.Hash().Hex(), nil
}

// execute runs a call or, when to is nil, a contract creation against w.
func (c *Chain) execute(w *world, from common.Address, to *common.Address, data []byte, nonce uint64) ([]byte, error) {
	e := &env{w: w, from: from, now: c.now, lockUnit: c.lockUnit}
	if to == nil {
		_, err := e.create(crypto.CreateAddress(from, nonce), data)
		return nil, err
	}
	return e.call(*to, data)
}

func estimate(data []byte) uint64 {
	return 21_000 + 16*uint64(len(data)) + 30_000
}

func param(params []json.RawMessage, i int, v any) *rpcErr {
	if i >= len(params) {
		return &rpcErr{Code: -32602, Message: fmt.Sprintf("missing value for required argument %d", i)}
	}
	if err := json.Unmarshal(params[i], v); err != nil {
		return &rpcErr{Code: -32602, Message: fmt.Sprintf("invalid argument %d: %v", i, err)}
	}
	return nil
}

func revertErr(err error) *rpcErr {
	reason := err.Error()
	return &rpcErr{
		Code:    3,
		Message: "execution reverted: " + reason,
		Data:    hexutil.Encode(revertData(reason)),
	}
}
