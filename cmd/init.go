package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

const starterProfile = "my-vault"

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config directory and a starter profiles.yaml",
	Long: `Init writes config.json and a profiles.yaml holding one profile, "my-vault",
copied from the built-in local profile. Edit it, then deploy with
vaultctl deploy --profile my-vault.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprint(out, ui.Banner("v"+Version))

		base, err := profiles.Get("local")
		if err != nil {
			return err
		}
		starter := base
		starter.Name = starterProfile
		starter.Description = "Starter profile; edit network, token and vault parameters"
		starter.RPCs = []string{"http://127.0.0.1:8545"}

		path := cfg.ProfilesPath()
		if err := config.WriteProfiles(path, []*config.Profile{starter}, initForce); err != nil {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		if cfg.DefaultProfile == "" {
			cfg.DefaultProfile = starterProfile
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Fprintln(out, ui.Success("Wrote "+path))
		fmt.Fprintln(out, ui.Meta("Default profile: "+cfg.DefaultProfile))
		fmt.Fprintln(out, ui.Hint("Add an admin key with: vaultctl wallet add admin --key <private-key>"))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing profiles.yaml")
}
