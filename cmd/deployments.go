package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/contract"
	"github.com/Mohsinsiddi/vaultctl/internal/sync"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

var (
	deploymentsYes       bool
	deploymentsWatch     time.Duration
	deploymentsSetSource bool
)

var deploymentsCmd = &cobra.Command{
	Use:     "deployments",
	Aliases: []string{"deployment"},
	Short:   "Inspect recorded deployments",
}

var deploymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recorded deployment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		recs := reg.All()
		if len(recs) == 0 {
			fmt.Fprintln(out, ui.Info("No deployments recorded yet."))
			fmt.Fprintln(out, ui.Hint("Deploy one with: vaultctl deploy --profile local"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Profile", Width: 18},
			{Title: "Chain", Width: 8},
			{Title: "Kind", Width: 8},
			{Title: "Token", Width: 14},
			{Title: "Vault", Width: 14},
			{Title: "Deployed", Width: 20},
		})
		for _, r := range recs {
			t.AddRow(ui.Row{
				ui.ProfileName(r.Profile),
				strconv.FormatUint(r.ChainID, 10),
				r.Kind,
				ui.TruncateAddr(r.Token),
				ui.TruncateAddr(r.Vault),
				r.DeployedAt.Local().Format(time.DateTime),
			})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d deployment(s) in %s", len(recs), cfg.DeploymentsPath())))
		return nil
	},
}

var deploymentsShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show the latest deployment of a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := profileName
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			name = cfg.DefaultProfile
		}
		if name == "" {
			return errNoProfile
		}

		reg, err := openRegistry()
		if err != nil {
			return err
		}
		rec, err := reg.Latest(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Deployment "+rec.Profile, recordPairs(rec)))
		return nil
	},
}

var deploymentsRemoveCmd = &cobra.Command{
	Use:   "remove <profile> <chain-id>",
	Short: "Forget a recorded deployment (the contracts stay on chain)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("chain id %q: %w", args[1], err)
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		if _, err := reg.Get(args[0], id); err != nil {
			return err
		}
		if !deploymentsYes && !ui.ConfirmDanger(cmd.InOrStdin(), out, fmt.Sprintf("Forget deployment of %s on chain %d?", args[0], id)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err := reg.Remove(args[0], id); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Deployment of %s on chain %d removed.", args[0], id)))
		return nil
	},
}

var deploymentsImportCmd = &cobra.Command{
	Use:   "import [url|path]",
	Short: "Merge a shared deployments.json into the local registry",
	Long: `Import reads a manifest in the deployments.json format from a URL or file
(default: deployments_source from config). A shared record replaces a local
one for the same profile and chain only when it is newer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var source string
		if len(args) == 1 {
			source = args[0]
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		s := sync.New(cfg, reg, logger)
		if deploymentsSetSource {
			if source == "" {
				return fmt.Errorf("--set-source needs a url or path")
			}
			if err := s.SetSource(source); err != nil {
				return err
			}
		}

		if deploymentsWatch > 0 {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			fmt.Fprintln(out, ui.Info(fmt.Sprintf("Importing every %s, Ctrl+C to stop.", deploymentsWatch)))
			return s.Watch(ctx, source, deploymentsWatch, func(rep *sync.Report) { printImport(out, rep) })
		}

		rep, err := s.Run(context.Background(), source)
		if err != nil {
			return err
		}
		printImport(out, rep)
		return nil
	},
}

func printImport(w io.Writer, rep *sync.Report) {
	for _, k := range rep.Added {
		fmt.Fprintln(w, ui.Success("added "+k))
	}
	for _, k := range rep.Updated {
		fmt.Fprintln(w, ui.Success("updated "+k))
	}
	fmt.Fprintln(w, ui.Meta(fmt.Sprintf("%d added, %d updated, %d skipped", len(rep.Added), len(rep.Updated), len(rep.Skipped))))
}

func recordPairs(r *contract.Record) [][2]string {
	pairs := [][2]string{
		{"Network", r.Network},
		{"Chain ID", strconv.FormatUint(r.ChainID, 10)},
		{"Kind", r.Kind},
		{"Admin", r.Admin},
		{"Token", r.Token},
	}
	if r.TokenTx != "" {
		pairs = append(pairs, [2]string{"Token tx", r.TokenTx})
	}
	return append(pairs,
		[2]string{"Vault", r.Vault},
		[2]string{"Vault tx", r.VaultTx},
		[2]string{"Block", strconv.FormatUint(r.Block, 10)},
		[2]string{"Roles", strings.Join(r.Roles, ", ")},
		[2]string{"Deployed at", r.DeployedAt.UTC().Format(time.RFC3339)},
	)
}

func init() {
	deploymentsRemoveCmd.Flags().BoolVarP(&deploymentsYes, "yes", "y", false, "skip the confirmation prompt")
	deploymentsImportCmd.Flags().DurationVar(&deploymentsWatch, "watch", 0, "keep importing at this interval")
	deploymentsImportCmd.Flags().BoolVar(&deploymentsSetSource, "set-source", false, "remember the source in config")
	deploymentsCmd.AddCommand(deploymentsListCmd, deploymentsShowCmd, deploymentsRemoveCmd, deploymentsImportCmd)
}
