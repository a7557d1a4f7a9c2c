package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "List the networks profiles can target",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 14},
			{Title: "Display", Width: 16},
			{Title: "Chain ID", Width: 10},
			{Title: "Currency", Width: 8},
			{Title: "RPCs", Width: 4},
			{Title: "Status", Width: 10},
		})
		all := reg.All()
		for _, n := range all {
			id := fmt.Sprint(n.ChainID)
			if n.ChainID == 0 {
				id = "any"
			}
			status := "mainnet"
			switch {
			case n.Deprecated:
				status = ui.Meta("retired")
			case n.Testnet:
				status = "testnet"
			}
			t.AddRow(ui.Row{ui.ProfileName(n.Name), n.DisplayName, id, n.NativeCurrency, fmt.Sprint(len(n.RPCs)), status})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta(fmt.Sprintf("%d networks", len(all))))
		return nil
	},
}

var networkShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one network's RPCs and explorer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("%w: %q, run `vaultctl network list`", err, args[0])
		}
		pairs := [][2]string{
			{"Chain ID", fmt.Sprint(n.ChainID)},
			{"Currency", n.NativeCurrency},
			{"Explorer", n.Explorer},
		}
		for i, u := range n.RPCs {
			pairs = append(pairs, [2]string{fmt.Sprintf("RPC %d", i+1), u})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock(n.DisplayName, pairs))
		if n.Deprecated {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn(n.DisplayName+" is retired; its RPCs may no longer answer."))
		}
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkShowCmd)
}
