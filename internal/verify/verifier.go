// Package verify exercises a deployed vault the way a user would and checks
// the token accounting around each operation.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

var (
	// ErrUnexpectedDelta is returned when a balance or locked-assets change
	// differs from what the operation should have produced.
	ErrUnexpectedDelta = errors.New("unexpected accounting delta")
	// ErrUnexpectedOutcome is returned when a withdrawal is released but was
	// expected to be rejected, or the other way round.
	ErrUnexpectedOutcome = errors.New("unexpected withdraw outcome")
	// ErrUnknownLock is returned by Run when the vault's lock period is not
	// known, so the withdrawal outcome cannot be derived.
	ErrUnknownLock = errors.New("lock period unknown")
)

// Snapshot is the verifier account's token balance and the vault's locked
// assets at one point in time.
type Snapshot struct {
	Balance      *big.Int
	LockedAssets *big.Int
	TakenAt      time.Time
}

// Verifier drives deposits and withdrawals from one account.
type Verifier struct {
	token   *contract.Token
	vault   *contract.Vault
	account common.Address
	now     func() time.Time
	log     *zap.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock sets the clock used to timestamp snapshots and deposits.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) { v.log = l }
}

// New creates a Verifier. token and vault must be bound with the
// transactor of account.
func New(token *contract.Token, vault *contract.Vault, account common.Address, opts ...Option) *Verifier {
	v := &Verifier{
		token:   token,
		vault:   vault,
		account: account,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Snapshot reads the account balance and the vault's locked assets.
func (v *Verifier) Snapshot(ctx context.Context) (*Snapshot, error) {
	bal, err := v.token.BalanceOf(ctx, v.account)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	locked, err := v.vault.LockedAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading locked assets: %w", err)
	}
	return &Snapshot{Balance: bal, LockedAssets: locked, TakenAt: v.now()}, nil
}

// DepositScenario describes a run of identical deposits.
type DepositScenario struct {
	Amount *big.Int
	Count  int // 0 means 1
	// Allowance approved for the vault before depositing. nil approves
	// exactly Amount*Count.
	Allowance *big.Int
	Referrer  common.Address
	// ExpectedLocked, when set, is the growth of lockedAssets() the deposits
	// must produce. On a fresh vault it equals lockedAssets() afterwards.
	ExpectedLocked *big.Int
	// FirstIndex is the account's position index of the first deposit, used
	// to read claimable fees. 0 on a fresh vault.
	FirstIndex uint64
}

// DepositReport is the result of Deposit.
type DepositReport struct {
	Before, After *Snapshot
	Delta         *big.Int // Before.Balance - After.Balance
	Receipts      []*chain.TxReceipt
	// Fees holds claimableFees for each new position; nil where the read
	// failed.
	Fees        []*big.Int
	DepositedAt time.Time
}

// Deposit approves the vault and deposits Amount Count times, each awaited
// to a receipt, then checks the balance delta and optionally the locked
// assets.
func (v *Verifier) Deposit(ctx context.Context, sc DepositScenario) (*DepositReport, error) {
	if sc.Amount == nil || sc.Amount.Sign() <= 0 {
		return nil, errors.New("deposit amount must be positive")
	}
	count := sc.Count
	if count <= 0 {
		count = 1
	}
	total := new(big.Int).Mul(sc.Amount, big.NewInt(int64(count)))
	allowance := sc.Allowance
	if allowance == nil {
		allowance = total
	}

	before, err := v.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := v.token.Approve(ctx, v.vault.Address, allowance); err != nil {
		return nil, fmt.Errorf("approving %s: %w", allowance, err)
	}
	v.log.Info("allowance approved",
		zap.String("spender", v.vault.Address.Hex()),
		zap.String("amount", allowance.String()))

	rep := &DepositReport{Before: before, DepositedAt: v.now()}
	for i := range count {
		r, err := v.vault.Deposit(ctx, sc.Amount, sc.Referrer)
		if err != nil {
			return rep, fmt.Errorf("deposit %d of %d: %w", i+1, count, err)
		}
		rep.Receipts = append(rep.Receipts, r)
		v.log.Info("deposit confirmed",
			zap.Int("n", i+1),
			zap.String("amount", sc.Amount.String()),
			zap.String("tx", r.TxHash.Hex()))
	}

	after, err := v.Snapshot(ctx)
	if err != nil {
		return rep, err
	}
	rep.After = after
	rep.Delta = new(big.Int).Sub(before.Balance, after.Balance)

	for i := range count {
		idx := sc.FirstIndex + uint64(i)
		fee, err := v.vault.ClaimableFees(ctx, v.account, idx)
		if err != nil {
			v.log.Warn("claimable fees unavailable", zap.Uint64("index", idx), zap.Error(err))
		}
		rep.Fees = append(rep.Fees, fee)
	}

	if rep.Delta.Cmp(total) != 0 {
		return rep, fmt.Errorf("%w: balance dropped by %s, want %s", ErrUnexpectedDelta, rep.Delta, total)
	}
	if sc.ExpectedLocked != nil {
		grew := new(big.Int).Sub(after.LockedAssets, before.LockedAssets)
		if grew.Cmp(sc.ExpectedLocked) != 0 {
			return rep, fmt.Errorf("%w: lockedAssets grew by %s to %s, want growth of %s",
				ErrUnexpectedDelta, grew, after.LockedAssets, sc.ExpectedLocked)
		}
	}
	return rep, nil
}

// Outcome is how the vault answered a withdrawal.
type Outcome string

const (
	Released Outcome = "released"
	Rejected Outcome = "rejected"
)

// Expectation is the outcome a withdrawal should have. The zero value
// accepts either outcome.
type Expectation struct {
	Outcome Outcome
	Reason  string
}

var (
	ExpectReleased = Expectation{Outcome: Released}
	ExpectRejected = Expectation{Outcome: Rejected}
)

// ExpectationFor derives the expected outcome of withdrawing a position
// deposited at depositedAt with the given lock, at time now.
func ExpectationFor(lock time.Duration, depositedAt, now time.Time) Expectation {
	unlock := depositedAt.Add(lock)
	if now.Before(unlock) {
		return Expectation{Outcome: Rejected, Reason: fmt.Sprintf("locked until %s", unlock.UTC().Format(time.RFC3339))}
	}
	return Expectation{Outcome: Released, Reason: fmt.Sprintf("unlocked since %s", unlock.UTC().Format(time.RFC3339))}
}

// WithdrawReport is the result of Withdraw.
type WithdrawReport struct {
	Before, After *Snapshot
	Outcome       Outcome
	Released      *big.Int // drop in lockedAssets; nil when rejected
	Receipt       *chain.TxReceipt
	Revert        *chain.RevertError // set when rejected
}

// Withdraw calls withdraw() and classifies the result. A remote revert is
// a Rejected outcome, not an error, unless exp says it should have been
// released.
func (v *Verifier) Withdraw(ctx context.Context, exp Expectation) (*WithdrawReport, error) {
	before, err := v.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rep := &WithdrawReport{Before: before}

	r, err := v.vault.Withdraw(ctx)
	var rev *chain.RevertError
	switch {
	case errors.As(err, &rev):
		rep.Outcome, rep.Revert = Rejected, rev
		v.log.Info("withdraw rejected", zap.String("reason", rev.Reason))
	case err != nil:
		return rep, fmt.Errorf("withdraw: %w", err)
	default:
		rep.Outcome, rep.Receipt = Released, r
	}

	after, err := v.Snapshot(ctx)
	if err != nil {
		return rep, err
	}
	rep.After = after

	if rep.Outcome == Released {
		rep.Released = new(big.Int).Sub(before.LockedAssets, after.LockedAssets)
		v.log.Info("withdraw released",
			zap.String("amount", rep.Released.String()),
			zap.String("tx", r.TxHash.Hex()))
	}

	if exp.Outcome != "" && exp.Outcome != rep.Outcome {
		err := fmt.Errorf("%w: got %s, want %s", ErrUnexpectedOutcome, rep.Outcome, exp.Outcome)
		if exp.Reason != "" {
			err = fmt.Errorf("%w (%s)", err, exp.Reason)
		}
		if rev != nil {
			err = fmt.Errorf("%w: %w", err, rev)
		}
		return rep, err
	}
	if rep.Outcome == Released && rep.Released.Sign() <= 0 {
		return rep, fmt.Errorf("%w: withdraw succeeded but lockedAssets did not drop", ErrUnexpectedDelta)
	}
	return rep, nil
}
