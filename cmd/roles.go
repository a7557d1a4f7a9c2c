package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/contract"
	"github.com/Mohsinsiddi/vaultctl/internal/deploy"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

var (
	rolesToken string
	rolesVault string
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect or grant the vault's roles on the token",
	Long: `Without --vault the vault and token of the profile's last recorded
deployment on the connected chain are used.`,
}

var rolesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show whether the vault holds each role (read-only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, false)
		if err != nil {
			return err
		}
		token, vault, err := s.targets(ctx, rolesToken, rolesVault)
		if err != nil {
			return err
		}

		status, err := deploy.CheckRoles(ctx, s.caller, s.profile.RoleNames(), token, vault)
		if err != nil {
			return err
		}
		printRoleStatus(cmd, status)

		for _, st := range status {
			if !st.Held {
				return fmt.Errorf("vault %s is missing %s; run `vaultctl roles grant`", vault.Hex(), st.Role)
			}
		}
		return nil
	},
}

var rolesGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant the profile's roles to an existing vault",
	Long:  "Sends grantRole for every role and verifies it. Granting a role the vault already holds is harmless.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := context.Background()
		s, err := openSession(ctx, true)
		if err != nil {
			return err
		}
		token, vault, err := s.targets(ctx, rolesToken, rolesVault)
		if err != nil {
			return err
		}

		progress := ui.NewProgress(out, 3)
		o := deploy.New(s.profile, s.tx, deploy.Options{
			Logger: logger,
			Observer: func(e deploy.Event) {
				progress.Step(e.Step, string(e.Phase), e.Elapsed, e.Err)
			},
		})
		st, err := o.GrantRoles(ctx, token, vault)
		if err != nil {
			return err
		}
		for _, g := range st.Grants {
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s granted to %s  %s", g.Role, ui.Addr(g.Grantee.Hex()), ui.Meta(g.TxHash.Hex()))))
		}
		return nil
	},
}

func printRoleStatus(cmd *cobra.Command, status []deploy.RoleStatus) {
	t := ui.NewTable([]ui.Column{
		{Title: "Role", Width: 20},
		{Title: "Id"},
		{Title: "Held", Width: 4},
	})
	for _, s := range status {
		id := contract.RoleHex(s.ID)
		if s.ID != contract.RoleID(s.Role) {
			id += ui.Meta(" (non-standard)")
		}
		t.AddRow(ui.Row{s.Role, id, ui.Mark(s.Held)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
}

func init() {
	for _, c := range []*cobra.Command{rolesCheckCmd, rolesGrantCmd} {
		c.Flags().StringVar(&rolesToken, "token", "", "token address (default: recorded deployment or profile)")
		c.Flags().StringVar(&rolesVault, "vault", "", "vault address (default: recorded deployment)")
	}
	rolesCmd.AddCommand(rolesCheckCmd, rolesGrantCmd)
}
