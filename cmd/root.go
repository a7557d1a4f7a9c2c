package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/logging"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/vaultctl/cmd.Version=1.2.3" .
var Version = "0.3.0"

// Environment variables read when the matching flag is not given.
const (
	envConfigDir = "VAULTCTL_CONFIG_DIR"
	envProfile   = "VAULTCTL_PROFILE"
	envRPCURL    = "VAULTCTL_RPC_URL"
)

var (
	cfgDir       string
	profilesPath string
	profileName  string
	walletName   string
	rpcURL       string
	verbose      bool
	logFormat    string

	cfg      *config.Config
	profiles *config.ProfileSet
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "vaultctl",
	Short: "Deploy, wire and exercise Horn token vaults",
	Long: `vaultctl deploys a HornLockVault (or HornPresale) next to a Horn token,
grants the vault MINTER_ROLE and BURNER_ROLE on the token, and runs deposit
and withdraw scenarios against the result.

A profile names everything a deployment needs: network, token, vault
constructor parameters and roles. Built-in profiles can be overridden in
profiles.yaml in the config directory.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), ui.Banner("v"+Version))
		return cmd.Help()
	},
}

// setup loads config, the logger and the profile set. Flags win over
// environment variables, which win over config.json.
func setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if !flags.Changed("config") {
		if dir := os.Getenv(envConfigDir); dir != "" {
			cfgDir = dir
		}
	}
	if !flags.Changed("profile") {
		if p := os.Getenv(envProfile); p != "" {
			profileName = p
		}
	}
	if !flags.Changed("rpc") {
		if u := os.Getenv(envRPCURL); u != "" {
			rpcURL = u
		}
	}

	var err error
	cfg, err = config.Load(cfgDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	format := logFormat
	if format == "" {
		format = cfg.LogFormat
	}
	logger, err = logging.New(verbose, format)
	if err != nil {
		return err
	}

	path, required := cfg.ProfilesPath(), false
	if profilesPath != "" {
		path, required = profilesPath, true
	}
	profiles, err = config.LoadProfiles(path, required)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded",
		zap.String("config_dir", cfg.Dir()),
		zap.String("profiles", path))
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", "", "config directory (default: ~/.vaultctl, env "+envConfigDir+")")
	pf.StringVar(&profilesPath, "profiles", "", "profiles YAML file (default: <config>/profiles.yaml)")
	pf.StringVarP(&profileName, "profile", "p", "", "deployment profile (env "+envProfile+")")
	pf.StringVarP(&walletName, "wallet", "w", "", "admin wallet (default: the default wallet)")
	pf.StringVar(&rpcURL, "rpc", "", "RPC URL, skipping endpoint selection (env "+envRPCURL+")")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json (default from config)")

	rootCmd.AddCommand(
		initCmd,
		deployCmd,
		verifyCmd,
		rolesCmd,
		profileCmd,
		deploymentsCmd,
		networkCmd,
		walletCmd,
		rpcCmd,
		configCmd,
	)
}
