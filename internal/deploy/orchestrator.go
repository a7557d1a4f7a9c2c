package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

var (
	// ErrChainMismatch is returned when the RPC serves a different chain than
	// the profile names.
	ErrChainMismatch = errors.New("connected chain does not match profile")
	// ErrAdminMismatch is returned when the signing key is not the profile's admin.
	ErrAdminMismatch = errors.New("signer is not the profile admin")
)

// Options configures an Orchestrator.
type Options struct {
	ArtifactsDir string
	Registry     *contract.Registry
	Logger       *zap.Logger
	Observer     func(Event)
	Now          func() time.Time
}

// Orchestrator deploys one profile with one admin signer.
type Orchestrator struct {
	profile  *config.Profile
	tx       *contract.Transactor
	env      *Env
	log      *zap.Logger
	observer func(Event)
}

// New creates an Orchestrator. The transactor's signer is the admin.
func New(profile *config.Profile, tx *contract.Transactor, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log = log.With(zap.String("profile", profile.Name))

	return &Orchestrator{
		profile:  profile,
		tx:       tx,
		log:      log,
		observer: opts.Observer,
		env: &Env{
			Tx:           tx,
			Deployer:     contract.NewDeployer(tx),
			Caller:       contract.NewCaller(tx.Backend(), tx.From()),
			ArtifactsDir: opts.ArtifactsDir,
			Registry:     opts.Registry,
			Network:      profile.Network,
			Now:          now,
			Log:          log,
		},
	}
}

// StepInfo describes a step for --plan output.
type StepInfo struct {
	Name     string
	Requires []Fact
	Provides []Fact
}

// Plan validates the full deployment pipeline for profile and describes it
// without touching the chain.
func Plan(profile *config.Profile) ([]StepInfo, error) {
	p := NewPipeline(DeploySteps(&Env{}, profile.RoleNames()), WithInitialFacts(FactAdmin))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := make([]StepInfo, 0, len(p.Steps()))
	for _, s := range p.Steps() {
		out = append(out, StepInfo{Name: s.Name(), Requires: s.Requires(), Provides: s.Provides()})
	}
	return out, nil
}

// Plan is the package-level Plan for the orchestrator's profile.
func (o *Orchestrator) Plan() ([]StepInfo, error) {
	return Plan(o.profile)
}

// Deploy runs the full pipeline: token, vault, role grants, verification and
// the registry record.
func (o *Orchestrator) Deploy(ctx context.Context) (*State, error) {
	st, err := o.preflight(ctx)
	if err != nil {
		return nil, err
	}
	p := o.pipeline(DeploySteps(o.env, o.profile.RoleNames()), WithInitialFacts(FactAdmin))
	if err := p.Run(ctx, st); err != nil {
		return st, err
	}
	o.log.Info("deployment complete",
		zap.String("token", st.Token.Hex()),
		zap.String("vault", st.Vault.Hex()))
	return st, nil
}

// GrantRoles grants the profile's roles on token to an existing vault and
// verifies them. Running it again on a vault that already holds the roles
// succeeds.
func (o *Orchestrator) GrantRoles(ctx context.Context, token, vault common.Address) (*State, error) {
	st, err := o.preflight(ctx)
	if err != nil {
		return nil, err
	}
	st.Token, st.Vault = token, vault

	p := o.pipeline(GrantSteps(o.env, o.profile.RoleNames()), WithInitialFacts(FactAdmin, FactToken, FactVault))
	if err := p.Run(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}

// RoleStatus is whether the vault holds one role.
type RoleStatus struct {
	Role string
	ID   [32]byte
	Held bool
}

// CheckRoles reads the profile's roles on token and reports whether vault
// holds each. It sends no transactions.
func (o *Orchestrator) CheckRoles(ctx context.Context, token, vault common.Address) ([]RoleStatus, error) {
	return CheckRoles(ctx, o.env.Caller, o.profile.RoleNames(), token, vault)
}

// CheckRoles reads each role getter on token and reports whether vault holds
// the role.
func CheckRoles(ctx context.Context, caller *contract.Caller, roles []string, token, vault common.Address) ([]RoleStatus, error) {
	tok := contract.NewToken(token, caller, nil)
	var out []RoleStatus
	for _, name := range roles {
		id, err := tok.Role(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		held, err := tok.HasRole(ctx, id, vault)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", name, err)
		}
		out = append(out, RoleStatus{Role: name, ID: id, Held: held})
	}
	return out, nil
}

// preflight checks the connected chain and the signer against the profile
// before any step runs.
func (o *Orchestrator) preflight(ctx context.Context) (*State, error) {
	id, err := o.tx.Backend().ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id: %w", err)
	}
	if want := o.profile.ChainID; want != 0 && id.Int64() != want {
		return nil, fmt.Errorf("%w: profile %s expects chain %d, RPC reports %s",
			ErrChainMismatch, o.profile.Name, want, id)
	}

	admin := o.tx.From()
	if want, ok := o.profile.AdminAddress(); ok && want != admin {
		return nil, fmt.Errorf("%w: profile %s expects %s, signer is %s",
			ErrAdminMismatch, o.profile.Name, want.Hex(), admin.Hex())
	}

	st := NewState(o.profile)
	st.ChainID = id.Uint64()
	st.Admin = admin
	o.log.Debug("preflight ok", zap.Uint64("chain_id", st.ChainID), zap.String("admin", admin.Hex()))
	return st, nil
}

func (o *Orchestrator) pipeline(steps []Step, opts ...PipelineOption) *Pipeline {
	opts = append([]PipelineOption{WithLogger(o.log), WithObserver(o.observer)}, opts...)
	return NewPipeline(steps, opts...)
}
