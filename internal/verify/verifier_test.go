package verify_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
	"github.com/Mohsinsiddi/vaultctl/internal/verify"
	"github.com/Mohsinsiddi/vaultctl/internal/wallet"
	"github.com/Mohsinsiddi/vaultctl/test/fixtures"
	"github.com/Mohsinsiddi/vaultctl/test/simchain"
)

const lockPeriodDays = 20

var lock = lockPeriodDays * 24 * time.Hour

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type fixture struct {
	sim      *simchain.Chain
	tx       *contract.Transactor
	token    *contract.Token
	vault    *contract.Vault
	verifier *verify.Verifier
}

// setup deploys a token and a vault on a fresh simulated chain. The vault is
// granted MINTER_ROLE and BURNER_ROLE when grant is set.
func setup(t *testing.T, grant bool) *fixture {
	t.Helper()
	ctx := context.Background()
	sim := simchain.Start(t)
	client := chain.NewEVMClient(sim.URL())
	s, err := wallet.NewKeySigner(fixtures.AdminKey)
	require.NoError(t, err)
	tx := contract.NewTransactor(client, s, new(big.Int).SetUint64(sim.ChainID()),
		contract.WithPollInterval(5*time.Millisecond), contract.WithReceiptTimeout(5*time.Second))
	caller := contract.NewCaller(client, tx.From())

	d := contract.NewDeployer(tx)
	th, err := d.Deploy(ctx, fixtures.LoadArtifact(t, "HornToken"), nil)
	require.NoError(t, err)
	vh, err := d.Deploy(ctx, fixtures.LoadArtifact(t, "HornLockVault"), []string{
		th.Address.Hex(), tx.From().Hex(), "20", "10", "100", "0", "1000000000000000000",
	})
	require.NoError(t, err)

	token := contract.NewToken(th.Address, caller, tx)
	vault := contract.NewVault(vh.Address, caller, tx)
	if grant {
		for _, role := range []string{"MINTER_ROLE", "BURNER_ROLE"} {
			_, err := token.GrantRole(ctx, contract.RoleID(role), vault.Address)
			require.NoError(t, err)
		}
	}
	return &fixture{
		sim:      sim,
		tx:       tx,
		token:    token,
		vault:    vault,
		verifier: verify.New(token, vault, tx.From(), verify.WithClock(sim.Now), verify.WithLogger(zaptest.NewLogger(t))),
	}
}

func originalScenario() verify.DepositScenario {
	return verify.DepositScenario{
		Amount:         ether(100),
		Count:          2,
		Allowance:      ether(20_000),
		ExpectedLocked: new(big.Int).Div(ether(1994), big.NewInt(10)),
	}
}

func TestSnapshot(t *testing.T) {
	f := setup(t, false)
	snap, err := f.verifier.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, simchain.InitialSupply.String(), snap.Balance.String())
	assert.Equal(t, 0, snap.LockedAssets.Sign())
	assert.True(t, f.sim.Now().Equal(snap.TakenAt))
}

func TestDeposit(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	rep, err := f.verifier.Deposit(ctx, originalScenario())
	require.NoError(t, err)

	assert.Equal(t, ether(200).String(), rep.Delta.String())
	assert.Equal(t, "199400000000000000000", rep.After.LockedAssets.String())
	assert.Len(t, rep.Receipts, 2)
	require.Len(t, rep.Fees, 2)
	for _, fee := range rep.Fees {
		require.NotNil(t, fee)
		assert.Equal(t, "300000000000000000", fee.String())
	}

	allowance, err := f.token.Allowance(ctx, f.tx.From(), f.vault.Address)
	require.NoError(t, err)
	assert.Equal(t, ether(19_800).String(), allowance.String())
}

func TestDepositDefaultsAllowanceToTotal(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	rep, err := f.verifier.Deposit(ctx, verify.DepositScenario{Amount: ether(5), Count: 3})
	require.NoError(t, err)
	assert.Equal(t, ether(15).String(), rep.Delta.String())

	allowance, err := f.token.Allowance(ctx, f.tx.From(), f.vault.Address)
	require.NoError(t, err)
	assert.Equal(t, 0, allowance.Sign())
}

func TestDepositUnexpectedLocked(t *testing.T) {
	f := setup(t, true)
	sc := originalScenario()
	sc.ExpectedLocked = ether(200)

	rep, err := f.verifier.Deposit(context.Background(), sc)
	require.ErrorIs(t, err, verify.ErrUnexpectedDelta)
	assert.Contains(t, err.Error(), "199400000000000000000")
	assert.Equal(t, ether(200).String(), rep.Delta.String())
}

func TestDepositExpectedLockedOnUsedVault(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.verifier.Deposit(ctx, originalScenario())
	require.NoError(t, err)

	sc := originalScenario()
	sc.FirstIndex = 2
	rep, err := f.verifier.Deposit(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, "398800000000000000000", rep.After.LockedAssets.String())
}

func TestDepositFeeReadsPastEndAreReported(t *testing.T) {
	f := setup(t, true)
	sc := verify.DepositScenario{Amount: ether(1), FirstIndex: 7}

	rep, err := f.verifier.Deposit(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, rep.Fees, 1)
	assert.Nil(t, rep.Fees[0])
}

func TestDepositWithoutRolesIsRejected(t *testing.T) {
	f := setup(t, false)

	_, err := f.verifier.Deposit(context.Background(), originalScenario())
	require.Error(t, err)
	assert.True(t, chain.IsRevert(err))
	assert.Contains(t, err.Error(), "not a minter")
	assert.Contains(t, err.Error(), "deposit 1 of 2")
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	f := setup(t, true)
	before := f.sim.TotalCalls()

	_, err := f.verifier.Deposit(context.Background(), verify.DepositScenario{Amount: big.NewInt(0)})
	assert.Error(t, err)
	_, err = f.verifier.Deposit(context.Background(), verify.DepositScenario{})
	assert.Error(t, err)
	assert.Equal(t, before, f.sim.TotalCalls())
}

func TestWithdrawBeforeAndAfterLock(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	dep, err := f.verifier.Deposit(ctx, originalScenario())
	require.NoError(t, err)

	early := verify.ExpectationFor(lock, dep.DepositedAt, f.sim.Now())
	assert.Equal(t, verify.Rejected, early.Outcome)

	rep, err := f.verifier.Withdraw(ctx, early)
	require.NoError(t, err)
	assert.Equal(t, verify.Rejected, rep.Outcome)
	require.NotNil(t, rep.Revert)
	assert.Contains(t, rep.Revert.Reason, "lock period not expired")
	assert.Nil(t, rep.Released)
	assert.Equal(t, rep.Before.LockedAssets.String(), rep.After.LockedAssets.String())

	f.sim.Advance(lock)

	late := verify.ExpectationFor(lock, dep.DepositedAt, f.sim.Now())
	assert.Equal(t, verify.Released, late.Outcome)

	rep, err = f.verifier.Withdraw(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, verify.Released, rep.Outcome)
	assert.Equal(t, "199400000000000000000", rep.Released.String())
	assert.Equal(t, 0, rep.After.LockedAssets.Sign())
	assert.Equal(t, rep.Released.String(),
		new(big.Int).Sub(rep.After.Balance, rep.Before.Balance).String())
	assert.True(t, rep.Receipt.Succeeded())
}

func TestWithdrawUnexpectedOutcome(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.verifier.Deposit(ctx, verify.DepositScenario{Amount: ether(1)})
	require.NoError(t, err)

	rep, err := f.verifier.Withdraw(ctx, verify.ExpectReleased)
	require.ErrorIs(t, err, verify.ErrUnexpectedOutcome)
	assert.True(t, chain.IsRevert(err))
	assert.Equal(t, verify.Rejected, rep.Outcome)

	f.sim.Advance(lock)
	rep, err = f.verifier.Withdraw(ctx, verify.ExpectRejected)
	require.ErrorIs(t, err, verify.ErrUnexpectedOutcome)
	assert.False(t, chain.IsRevert(err))
	assert.Equal(t, verify.Released, rep.Outcome)
}

func TestWithdrawWithoutExpectation(t *testing.T) {
	f := setup(t, true)

	rep, err := f.verifier.Withdraw(context.Background(), verify.Expectation{})
	require.NoError(t, err)
	assert.Equal(t, verify.Rejected, rep.Outcome)
	assert.Contains(t, rep.Revert.Reason, "nothing to withdraw")
}

func TestRun(t *testing.T) {
	f := setup(t, true)

	res, err := f.verifier.Run(context.Background(), originalScenario(), lock)
	require.NoError(t, err)
	assert.Equal(t, verify.Rejected, res.Expected.Outcome)
	assert.Equal(t, verify.Rejected, res.Withdraw.Outcome)
	assert.Equal(t, ether(200).String(), res.Deposit.Delta.String())
}

func TestRunStopsOnFailedDeposit(t *testing.T) {
	f := setup(t, false)

	res, err := f.verifier.Run(context.Background(), originalScenario(), lock)
	require.Error(t, err)
	assert.Nil(t, res.Withdraw)
}

func TestRunWithUnknownLockSendsNothing(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	before, err := f.verifier.Snapshot(ctx)
	require.NoError(t, err)

	res, err := f.verifier.Run(ctx, originalScenario(), verify.UnknownLock)
	require.ErrorIs(t, err, verify.ErrUnknownLock)
	assert.Nil(t, res.Deposit)
	assert.Nil(t, res.Withdraw)

	after, err := f.verifier.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Balance.String(), after.Balance.String())
	assert.Equal(t, 0, after.LockedAssets.Sign())
}

func TestExpectationFor(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want verify.Outcome
	}{
		{"just deposited", at, verify.Rejected},
		{"one second early", at.Add(lock - time.Second), verify.Rejected},
		{"at unlock", at.Add(lock), verify.Released},
		{"long after", at.Add(10 * lock), verify.Released},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := verify.ExpectationFor(lock, at, tt.now)
			assert.Equal(t, tt.want, exp.Outcome)
			assert.Contains(t, exp.Reason, "2026-03-21T00:00:00Z")
		})
	}

	assert.Equal(t, verify.Released, verify.ExpectationFor(0, at, at).Outcome)
}

func TestReferrerIsForwarded(t *testing.T) {
	f := setup(t, true)
	sc := verify.DepositScenario{Amount: ether(1), Referrer: common.HexToAddress("0x00000000000000000000000000000000000000aa")}

	rep, err := f.verifier.Deposit(context.Background(), sc)
	require.NoError(t, err)
	assert.Len(t, rep.Receipts, 1)
}
