package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/Mohsinsiddi/vaultctl/internal/verify"
)

var (
	verifyToken          string
	verifyVault          string
	verifyAmount         string
	verifyCount          int
	verifyAllowance      string
	verifyReferrer       string
	verifyExpectedLocked string
	verifyFirstIndex     uint64
	verifyExpect         string
	verifyDepositedAt    string
	verifyTokens         bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Exercise a deployed vault and check the token accounting",
	Long: `Amounts are in token base units, or whole tokens with --tokens. Defaults
come from the profile's verify section and are always base units. Without --vault the profile's recorded deployment is used.`,
}

var verifyDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Approve the vault and deposit, checking the balance delta",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		v, p, err := openVerifier(ctx)
		if err != nil {
			return err
		}
		sc, err := depositScenario(p, v.decimals)
		if err != nil {
			return err
		}
		rep, err := v.verifier.Deposit(ctx, sc)
		if rep != nil {
			printDeposit(cmd.OutOrStdout(), rep, v.decimals)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Deposit accounting matches"))
		return nil
	},
}

var verifyWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Call withdraw() and check the outcome",
	Long: `--expect released|rejected states the outcome. --expect auto derives it
from the profile's lock period and --deposited-at. Without --expect any
outcome is reported without judging it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		v, p, err := openVerifier(ctx)
		if err != nil {
			return err
		}
		exp, err := withdrawExpectation(p, time.Now())
		if err != nil {
			return err
		}
		rep, err := v.verifier.Withdraw(ctx, exp)
		if rep != nil {
			printWithdraw(cmd.OutOrStdout(), rep, v.decimals)
		}
		return err
	},
}

var verifyRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Deposit, then withdraw straight away and expect the lock to hold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := context.Background()
		v, p, err := openVerifier(ctx)
		if err != nil {
			return err
		}
		sc, err := depositScenario(p, v.decimals)
		if err != nil {
			return err
		}

		lock, ok := p.LockDuration()
		if !ok {
			lock = verify.UnknownLock
		}
		res, err := v.verifier.Run(ctx, sc, lock)
		if errors.Is(err, verify.ErrUnknownLock) {
			return fmt.Errorf("profile %s: %w; set vault.lock_period or give it as the third constructor arg", p.Name, err)
		}
		if res.Deposit != nil {
			printDeposit(out, res.Deposit, v.decimals)
		}
		if res.Withdraw != nil {
			fmt.Fprintln(out, ui.Meta("expected: "+string(res.Expected.Outcome)+", "+res.Expected.Reason))
			printWithdraw(out, res.Withdraw, v.decimals)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success("Scenario passed"))
		return nil
	},
}

type verifierSession struct {
	verifier *verify.Verifier
	decimals int
}

func openVerifier(ctx context.Context) (*verifierSession, *config.Profile, error) {
	s, err := openSession(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	tokenAddr, vaultAddr, err := s.targets(ctx, verifyToken, verifyVault)
	if err != nil {
		return nil, nil, err
	}
	token := contract.NewToken(tokenAddr, s.caller, s.tx)
	vault := contract.NewVault(vaultAddr, s.caller, s.tx)
	return &verifierSession{
		verifier: verify.New(token, vault, s.tx.From(), verify.WithLogger(logger)),
		decimals: int(token.Decimals(ctx)),
	}, s.profile, nil
}

// depositScenario merges flags over the profile's verify defaults.
func depositScenario(p *config.Profile, decimals int) (verify.DepositScenario, error) {
	sc := verify.DepositScenario{Count: p.Verify.Count, FirstIndex: verifyFirstIndex}
	if verifyCount > 0 {
		sc.Count = verifyCount
	}

	var err error
	if sc.Amount, err = amountOr("amount", verifyAmount, p.Verify.Amount, decimals); err != nil {
		return sc, err
	}
	if sc.Amount == nil {
		return sc, fmt.Errorf("no deposit amount: pass --amount or set verify.amount in profile %s", p.Name)
	}
	if sc.Allowance, err = amountOr("allowance", verifyAllowance, p.Verify.Allowance, decimals); err != nil {
		return sc, err
	}
	if sc.ExpectedLocked, err = amountOr("expect-locked", verifyExpectedLocked, p.Verify.ExpectedLocked, decimals); err != nil {
		return sc, err
	}
	if verifyReferrer != "" {
		if !common.IsHexAddress(verifyReferrer) {
			return sc, fmt.Errorf("--referrer %q is not an address", verifyReferrer)
		}
		sc.Referrer = common.HexToAddress(verifyReferrer)
	}
	return sc, nil
}

// amountOr parses the flag value, falling back to the profile value. Both
// empty gives nil. With --tokens the flag value is scaled by decimals.
func amountOr(flag, value, fallback string, decimals int) (*big.Int, error) {
	var (
		n   *big.Int
		err error
	)
	switch {
	case value != "" && verifyTokens:
		n, err = chain.ParseUnits(value, decimals)
	case value != "":
		n, err = chain.ParseBigInt(value)
	case fallback != "":
		n, err = chain.ParseBigInt(fallback)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return n, nil
}

func withdrawExpectation(p *config.Profile, now time.Time) (verify.Expectation, error) {
	switch verifyExpect {
	case "":
		return verify.Expectation{}, nil
	case string(verify.Released):
		return verify.ExpectReleased, nil
	case string(verify.Rejected):
		return verify.ExpectRejected, nil
	case "auto":
		if verifyDepositedAt == "" {
			return verify.Expectation{}, fmt.Errorf("--expect auto needs --deposited-at")
		}
		at, err := time.Parse(time.RFC3339, verifyDepositedAt)
		if err != nil {
			return verify.Expectation{}, fmt.Errorf("--deposited-at: %w", err)
		}
		lock, ok := p.LockDuration()
		if !ok {
			return verify.Expectation{}, fmt.Errorf("profile %s: %w; set vault.lock_period or give it as the third constructor arg",
				p.Name, verify.ErrUnknownLock)
		}
		return verify.ExpectationFor(lock, at, now), nil
	default:
		return verify.Expectation{}, fmt.Errorf("--expect must be released, rejected or auto, not %q", verifyExpect)
	}
}

func printDeposit(w io.Writer, rep *verify.DepositReport, decimals int) {
	pairs := [][2]string{
		{"Deposits", fmt.Sprint(len(rep.Receipts))},
		{"Balance before", chain.FormatUnits(rep.Before.Balance, decimals)},
	}
	if rep.After != nil {
		pairs = append(pairs,
			[2]string{"Balance after", chain.FormatUnits(rep.After.Balance, decimals)},
			[2]string{"Delta", chain.FormatUnits(rep.Delta, decimals)},
			[2]string{"Locked assets", chain.FormatUnits(rep.After.LockedAssets, decimals)})
	}
	for i, fee := range rep.Fees {
		val := "unavailable"
		if fee != nil {
			val = chain.FormatUnits(fee, decimals)
		}
		pairs = append(pairs, [2]string{fmt.Sprintf("Claimable fee #%d", i+1), val})
	}
	fmt.Fprintln(w, ui.KeyValueBlock("Deposit", pairs))
}

func printWithdraw(w io.Writer, rep *verify.WithdrawReport, decimals int) {
	pairs := [][2]string{
		{"Outcome", string(rep.Outcome)},
		{"Locked before", chain.FormatUnits(rep.Before.LockedAssets, decimals)},
	}
	if rep.After != nil {
		pairs = append(pairs, [2]string{"Locked after", chain.FormatUnits(rep.After.LockedAssets, decimals)})
	}
	if rep.Released != nil {
		pairs = append(pairs, [2]string{"Released", chain.FormatUnits(rep.Released, decimals)})
	}
	if rep.Revert != nil {
		pairs = append(pairs, [2]string{"Reason", rep.Revert.Reason})
	}
	fmt.Fprintln(w, ui.KeyValueBlock("Withdraw", pairs))
}

func init() {
	for _, c := range []*cobra.Command{verifyDepositCmd, verifyWithdrawCmd, verifyRunCmd} {
		c.Flags().StringVar(&verifyToken, "token", "", "token address (default: recorded deployment or profile)")
		c.Flags().StringVar(&verifyVault, "vault", "", "vault address (default: recorded deployment)")
	}
	for _, c := range []*cobra.Command{verifyDepositCmd, verifyRunCmd} {
		c.Flags().StringVar(&verifyAmount, "amount", "", "amount per deposit in base units")
		c.Flags().IntVar(&verifyCount, "count", 0, "number of deposits")
		c.Flags().StringVar(&verifyAllowance, "allowance", "", "allowance to approve (default: amount*count)")
		c.Flags().StringVar(&verifyReferrer, "referrer", "", "referrer address passed to deposit")
		c.Flags().StringVar(&verifyExpectedLocked, "expect-locked", "", "expected lockedAssets() afterwards")
		c.Flags().BoolVar(&verifyTokens, "tokens", false, "read --amount, --allowance and --expect-locked as whole tokens")
		c.Flags().Uint64Var(&verifyFirstIndex, "first-index", 0, "position index of the first deposit, for fee reads")
	}
	verifyWithdrawCmd.Flags().StringVar(&verifyExpect, "expect", "", "expected outcome: released, rejected or auto")
	verifyWithdrawCmd.Flags().StringVar(&verifyDepositedAt, "deposited-at", "", "deposit time (RFC3339) for --expect auto")

	verifyCmd.AddCommand(verifyDepositCmd, verifyWithdrawCmd, verifyRunCmd)
}
