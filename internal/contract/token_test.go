package contract

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddr = common.HexToAddress("0x901727dF7F255100aa7cF73b160085f5843c373C")
	vaultAddr = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)

func mustGetter(t *testing.T, name string) *w3.Func {
	t.Helper()
	fn, err := RoleGetter(name)
	require.NoError(t, err)
	return fn
}

func TestCallerEmptyResult(t *testing.T) {
	b := newFakeBackend()
	c := NewCaller(b, common.Address{})

	var bal *big.Int
	err := c.Call(context.Background(), tokenAddr, FuncBalanceOf, []any{common.Address{}}, &bal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty result")
}

func TestTokenRole(t *testing.T) {
	b := newFakeBackend()
	minter := RoleID("MINTER_ROLE")
	b.callOut = minter[:]
	tok := NewToken(tokenAddr, NewCaller(b, common.Address{}), nil)

	id, err := tok.Role(context.Background(), "MINTER_ROLE")
	require.NoError(t, err)
	assert.Equal(t, minter, id)

	require.Len(t, b.calls, 1)
	want, err := mustGetter(t, "MINTER_ROLE").EncodeArgs()
	require.NoError(t, err)
	assert.Equal(t, want, b.calls[0].Data)
	assert.Equal(t, &tokenAddr, b.calls[0].To)
}

func TestTokenRoleRejectsBadGetter(t *testing.T) {
	tok := NewToken(tokenAddr, NewCaller(newFakeBackend(), common.Address{}), nil)
	_, err := tok.Role(context.Background(), "MINTER_ROLE(); drop")
	assert.Error(t, err)
}

func TestTokenHasRole(t *testing.T) {
	b := newFakeBackend()
	b.callOut = word([]byte{1})
	tok := NewToken(tokenAddr, NewCaller(b, common.Address{}), nil)

	ok, err := tok.HasRole(context.Background(), RoleID("BURNER_ROLE"), vaultAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	b.callOut = word(nil)
	ok, err = tok.HasRole(context.Background(), RoleID("BURNER_ROLE"), vaultAddr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenBalanceAndAllowance(t *testing.T) {
	b := newFakeBackend()
	amount, _ := new(big.Int).SetString("200000000000000000000", 10)
	b.callOut = word(amount.Bytes())
	tok := NewToken(tokenAddr, NewCaller(b, common.Address{}), nil)

	bal, err := tok.BalanceOf(context.Background(), vaultAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(bal))

	allowed, err := tok.Allowance(context.Background(), common.Address{0x1}, vaultAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(allowed))
}

func TestTokenDecimalsDefault(t *testing.T) {
	b := newFakeBackend()
	tok := NewToken(tokenAddr, NewCaller(b, common.Address{}), nil)
	assert.Equal(t, uint8(18), tok.Decimals(context.Background()))

	b.callOut = word([]byte{6})
	assert.Equal(t, uint8(6), tok.Decimals(context.Background()))
}

func TestTokenWritesNeedTransactor(t *testing.T) {
	tok := NewToken(tokenAddr, NewCaller(newFakeBackend(), common.Address{}), nil)
	_, err := tok.GrantRole(context.Background(), RoleID("MINTER_ROLE"), vaultAddr)
	assert.ErrorIs(t, err, errReadOnly)
	_, err = tok.Approve(context.Background(), vaultAddr, big.NewInt(1))
	assert.ErrorIs(t, err, errReadOnly)
}

func TestTokenGrantRoleSendsTx(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTransactor(t, b)
	tok := NewToken(tokenAddr, NewCaller(b, tr.From()), tr)

	_, err := tok.GrantRole(context.Background(), RoleID("MINTER_ROLE"), vaultAddr)
	require.NoError(t, err)
	require.Len(t, b.sent, 1)

	want, err := FuncGrantRole.EncodeArgs(RoleID("MINTER_ROLE"), vaultAddr)
	require.NoError(t, err)
	assert.Equal(t, want, b.sent[0].Data())
	assert.Equal(t, &tokenAddr, b.sent[0].To())
}

func TestVaultCalls(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTransactor(t, b)
	v := NewVault(vaultAddr, NewCaller(b, tr.From()), tr)

	amount := big.NewInt(100)
	_, err := v.Deposit(context.Background(), amount, common.Address{})
	require.NoError(t, err)
	want, err := FuncDeposit.EncodeArgs(amount, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, want, b.sent[0].Data())

	_, err = v.Withdraw(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.sent, 2)

	b.callOut = word(big.NewInt(997).Bytes())
	locked, err := v.LockedAssets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(997), locked.Int64())

	fees, err := v.ClaimableFees(context.Background(), tr.From(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(997), fees.Int64())
}

func TestVaultReadOnly(t *testing.T) {
	v := NewVault(vaultAddr, NewCaller(newFakeBackend(), common.Address{}), nil)
	_, err := v.Withdraw(context.Background())
	assert.ErrorIs(t, err, errReadOnly)
}
