package cmd

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/rpc"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

const benchmarkTimeout = 15 * time.Second

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints per profile",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <profile> <url>",
	Short: "Add a custom RPC URL for a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, u := args[0], args[1]
		if _, err := profiles.Get(name); err != nil {
			return err
		}
		if parsed, err := url.Parse(u); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid RPC URL %q", u)
		}
		if err := cfg.AddRPC(name, u); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ProfileName(name), u)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <profile> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed RPC for %s: %s", args[0], args[1])))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list [profile]",
	Short: "List the RPCs a profile selects from, in order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profileArg(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		urls := profileRPCs(p)
		fmt.Fprintln(out, ui.StyleTitle.Render("RPCs for "+p.Name))
		if len(urls) == 0 {
			fmt.Fprintln(out, ui.Warn("none configured"))
			return nil
		}
		custom := cfg.GetRPCs(p.Name)
		for _, u := range urls {
			tag := ""
			for _, c := range custom {
				if c == u {
					tag = ui.Meta("  (custom)")
				}
			}
			fmt.Fprintf(out, "  %s%s\n", u, tag)
		}
		return nil
	},
}

var rpcBenchmarkCmd = &cobra.Command{
	Use:   "benchmark [profile]",
	Short: "Probe every RPC of a profile and show which one would be picked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, err := profileArg(args)
		if err != nil {
			return err
		}
		strategy, err := rpc.ParseStrategy(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), benchmarkTimeout)
		defer cancel()

		urls := profileRPCs(p)
		sp := ui.NewSpinner(cmd.ErrOrStderr(), "Probing RPCs for "+p.Name)
		sp.Start()
		results, err := rpc.Benchmark(ctx, urls, rpc.Options{
			ChainID: uint64(max(p.ChainID, 0)),
			Timeout: rpc.DefaultProbeTimeout,
			Logger:  logger,
		})
		if err != nil {
			sp.Stop()
			return err
		}
		sp.StopWithMsg(ui.Meta(fmt.Sprintf("%d endpoint(s) probed", len(urls))))

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL"},
			{Title: "Latency", Width: 10},
			{Title: "Block #", Width: 12},
			{Title: "Chain", Width: 8},
			{Title: "Status", Width: 10},
		})
		for _, r := range results {
			if r.Err != nil {
				t.AddRow(ui.Row{r.URL, "-", "-", "-", ui.Err("down")})
				continue
			}
			t.AddRow(ui.Row{
				r.URL,
				fmt.Sprintf("%dms", r.Latency.Milliseconds()),
				fmt.Sprint(r.BlockNumber),
				fmt.Sprint(r.ChainID),
				ui.Success("healthy"),
			})
		}
		fmt.Fprintln(out, t.Render())

		best, err := rpc.NewPicker(strategy).Pick(results)
		if err != nil {
			fmt.Fprintln(out, ui.Warn(err.Error()))
			return nil
		}
		fmt.Fprintln(out, ui.Hint(fmt.Sprintf("%s would use %s", strategy, best.URL)))
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm <fastest|round-robin|failover>",
	Short: "Set the RPC selection strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set("rpc_algorithm", args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC algorithm set to %q", args[0])))
		return nil
	},
}

// profileArg resolves an optional profile argument, falling back to the
// selected profile.
func profileArg(args []string) (*config.Profile, error) {
	if len(args) == 1 {
		return profiles.Get(args[0])
	}
	return currentProfile()
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchmarkCmd, rpcAlgorithmCmd)
}
