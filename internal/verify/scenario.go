package verify

import (
	"context"
	"time"
)

// Result is the outcome of Run.
type Result struct {
	Deposit  *DepositReport
	Withdraw *WithdrawReport
	Expected Expectation
}

// UnknownLock is passed to Run when the lock period could not be
// determined.
const UnknownLock time.Duration = -1

// Run deposits per sc and then withdraws straight away, expecting the
// outcome ExpectationFor derives from lock. With a non-zero lock the
// withdrawal must be rejected. A negative lock fails with ErrUnknownLock
// before anything is sent.
func (v *Verifier) Run(ctx context.Context, sc DepositScenario, lock time.Duration) (*Result, error) {
	res := &Result{}
	if lock < 0 {
		return res, ErrUnknownLock
	}
	dep, err := v.Deposit(ctx, sc)
	res.Deposit = dep
	if err != nil {
		return res, err
	}

	res.Expected = ExpectationFor(lock, dep.DepositedAt, v.now())
	wd, err := v.Withdraw(ctx, res.Expected)
	res.Withdraw = wd
	return res, err
}
