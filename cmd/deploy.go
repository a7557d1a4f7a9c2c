package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
	"github.com/Mohsinsiddi/vaultctl/internal/deploy"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

var (
	deployYes       bool
	deployPlan      bool
	deployArtifacts string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the profile's vault and grant it roles on the token",
	Long: `Deploy runs the deployment pipeline for the selected profile:

  resolve-token   use the configured token or deploy the token artifact
  deploy-vault    submit the vault (or presale) constructor transaction
  confirm-vault   read the vault address from the receipt and check its code
  query-roles     read MINTER_ROLE / BURNER_ROLE from the token
  grant-roles     grantRole(role, vault) for each role, signed by the admin
  verify-roles    hasRole(role, vault) must hold for every role
  record          save the deployment to deployments.json

The first failing step stops the run. Nothing is rolled back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, err := currentProfile()
		if err != nil {
			return err
		}

		if deployPlan {
			return printPlan(cmd, p)
		}

		ctx := context.Background()
		s, err := openSession(ctx, true)
		if err != nil {
			return err
		}

		pairs := deploySummary(p, s.tx.From())
		pairs = append(pairs, connectedPairs(ctx, s)...)
		fmt.Fprintln(out, ui.KeyValueBlock("Deploy "+p.Name, pairs))
		if !deployYes && !ui.ConfirmDanger(cmd.InOrStdin(), out, "Send deployment transactions?") {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}

		reg, err := openRegistry()
		if err != nil {
			return err
		}
		progress := ui.NewProgress(out, 7)
		o := deploy.New(p, s.tx, deploy.Options{
			ArtifactsDir: artifactsDir(),
			Registry:     reg,
			Logger:       logger,
			Observer: func(e deploy.Event) {
				progress.Step(e.Step, string(e.Phase), e.Elapsed, e.Err)
			},
		})

		st, err := o.Deploy(ctx)
		if err != nil {
			return err
		}

		pairs = [][2]string{
			{"Token", st.Token.Hex()},
			{"Vault", st.Vault.Hex()},
			{"Vault tx", st.VaultTx.Hex()},
			{"Block", fmt.Sprint(st.Block)},
		}
		if st.TokenTx != (common.Hash{}) {
			pairs = append(pairs, [2]string{"Token tx", st.TokenTx.Hex()})
		}
		for _, g := range st.Grants {
			pairs = append(pairs, [2]string{g.Role, g.TxHash.Hex()})
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Deployed", pairs))
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Vault %s holds %s", ui.Addr(st.Vault.Hex()), strings.Join(p.RoleNames(), ", "))))
		fmt.Fprintln(out, ui.Hint("Exercise it with: vaultctl verify run --profile "+p.Name))
		return nil
	},
}

func deploySummary(p *config.Profile, admin common.Address) [][2]string {
	token := p.Token.Address
	if p.DeploysToken() {
		token = "deploy " + p.Token.Artifact
	}
	return [][2]string{
		{"Network", p.Network},
		{"Kind", string(p.Kind)},
		{"Admin", admin.Hex()},
		{"Token", token},
		{"Vault artifact", p.Vault.Artifact},
		{"Vault args", strings.Join(p.VaultArgs(common.Address{}, admin), " ")},
		{"Roles", strings.Join(p.RoleNames(), ", ")},
	}
}

// connectedPairs describes the chain the session reached and the admin's
// native balance. Lookup failures leave the rows out.
func connectedPairs(ctx context.Context, s *session) [][2]string {
	var pairs [][2]string
	if id, err := s.client.ChainID(ctx); err == nil {
		name := "unknown"
		if n, err := chain.NewRegistry().GetByChainID(id.Int64()); err == nil {
			name = n.DisplayName
		}
		pairs = append(pairs, [2]string{"Connected", fmt.Sprintf("%s (chain %s)", name, id)})
	}
	if bal, err := s.client.BalanceAt(ctx, s.tx.From()); err == nil {
		pairs = append(pairs, [2]string{"Admin balance", chain.WeiToETH(bal)})
	}
	return pairs
}

// constructorLabels pairs each constructor argument with its ABI name when
// the vault artifact can be read.
func constructorLabels(p *config.Profile, args []string) []string {
	art, err := contract.FindArtifact(artifactsDir(), p.Vault.Artifact)
	if err != nil {
		return args
	}
	inputs := art.ConstructorInputs()
	out := make([]string, len(args))
	for i, a := range args {
		if i < len(inputs) && inputs[i].Name != "" {
			out[i] = inputs[i].Name + "=" + a
			continue
		}
		out[i] = a
	}
	return out
}

func printPlan(cmd *cobra.Command, p *config.Profile) error {
	out := cmd.OutOrStdout()
	plan, err := deploy.Plan(p)
	if err != nil {
		return err
	}

	t := ui.NewTable([]ui.Column{
		{Title: "#", Width: 3},
		{Title: "Step", Width: 14},
		{Title: "Requires", Width: 44},
		{Title: "Provides", Width: 40},
	})
	for i, s := range plan {
		t.AddRow(ui.Row{fmt.Sprint(i + 1), s.Name, joinFacts(s.Requires), joinFacts(s.Provides)})
	}
	fmt.Fprintln(out, ui.StyleTitle.Render("Deployment plan for "+p.Name))
	fmt.Fprintln(out, t.Render())
	args := constructorLabels(p, p.VaultArgs(common.Address{}, common.Address{}))
	fmt.Fprintln(out, ui.Meta("Vault constructor: "+strings.Join(args, " ")))
	fmt.Fprintln(out, ui.Meta("The zero address stands in for values known only at run time."))
	return nil
}

func joinFacts(fs []deploy.Fact) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

func init() {
	deployCmd.Flags().BoolVarP(&deployYes, "yes", "y", false, "skip the confirmation prompt")
	deployCmd.Flags().BoolVar(&deployPlan, "plan", false, "print the validated step plan and exit")
	deployCmd.Flags().StringVar(&deployArtifacts, "artifacts", "", "contract artifacts directory (default: artifacts_dir from config)")
}
