package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "List, inspect and select deployment profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 18},
			{Title: "Kind", Width: 8},
			{Title: "Network", Width: 12},
			{Title: "Token", Width: 14},
			{Title: "Source", Width: 8},
			{Title: "Default", Width: 7},
		})
		for _, p := range profiles.All() {
			token := ui.TruncateAddr(p.Token.Address)
			if p.DeploysToken() {
				token = "deploy"
			}
			source := "file"
			if p.BuiltIn {
				source = "builtin"
			}
			def := ""
			if p.Name == cfg.DefaultProfile {
				def = ui.Mark(true)
			}
			t.AddRow(ui.Row{ui.ProfileName(p.Name), string(p.Kind), p.Network, token, ui.Meta(source), def})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a profile as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := currentProfile()
		if len(args) == 1 {
			p, err = profiles.Get(args[0])
		}
		if err != nil {
			return err
		}
		data, err := p.Marshal()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.StyleTitle.Render("Profile "+p.Name))
		fmt.Fprint(out, string(data))
		if d, ok := p.LockDuration(); ok {
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("lock period: %s", d)))
		}
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default profile",
	Long:  "Without a name an interactive picker is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			items := make([]ui.PickerItem, 0, len(profiles.Names()))
			for _, p := range profiles.All() {
				items = append(items, ui.PickerItem{
					Label:    p.Name,
					SubLabel: fmt.Sprintf("%s %s", p.Kind, p.Network),
					Value:    p.Name,
				})
			}
			picked, err := ui.PickItem("Select a profile", items, cfg.DefaultProfile)
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
				return nil
			}
			name = picked
		}

		if _, err := profiles.Get(name); err != nil {
			return err
		}
		cfg.DefaultProfile = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default profile set to %s", ui.ProfileName(name))))
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileUseCmd)
}
