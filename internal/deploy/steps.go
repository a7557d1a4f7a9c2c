package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

// Env is what the steps need to talk to the chain.
type Env struct {
	Tx           *contract.Transactor
	Deployer     *contract.Deployer
	Caller       *contract.Caller
	ArtifactsDir string
	Registry     *contract.Registry // nil skips persisting
	Network      string
	Now          func() time.Time
	Log          *zap.Logger
}

func (e *Env) token(st *State) *contract.Token {
	return contract.NewToken(st.Token, e.Caller, e.Tx)
}

// DeploySteps is the full deployment: token, vault, roles, record.
func DeploySteps(env *Env, roles []string) []Step {
	return []Step{
		&resolveToken{env: env},
		&deployVault{env: env},
		&confirmVault{env: env},
		&queryRoles{env: env, roles: roles},
		&grantRoles{env: env, roles: roles},
		&verifyRoles{env: env, roles: roles},
		&record{env: env, roles: roles},
	}
}

// GrantSteps grants roles to an existing vault. It needs FactAdmin,
// FactToken and FactVault as initial facts.
func GrantSteps(env *Env, roles []string) []Step {
	return []Step{
		&queryRoles{env: env, roles: roles},
		&grantRoles{env: env, roles: roles},
		&verifyRoles{env: env, roles: roles},
	}
}

func roleFacts(roles []string) []Fact {
	out := make([]Fact, len(roles))
	for i, r := range roles {
		out[i] = RoleFact(r)
	}
	return out
}

// --- 1. resolve-token ---

type resolveToken struct{ env *Env }

func (s *resolveToken) Name() string     { return "resolve-token" }
func (s *resolveToken) Requires() []Fact { return []Fact{FactAdmin} }
func (s *resolveToken) Provides() []Fact { return []Fact{FactToken} }

func (s *resolveToken) Run(ctx context.Context, st *State) error {
	p := st.Profile
	if !p.DeploysToken() {
		h, err := s.env.Deployer.Attach(ctx, "token", common.HexToAddress(p.Token.Address))
		if err != nil {
			return err
		}
		st.Token = h.Address
		s.env.Log.Info("using existing token", zap.String("token", h.Address.Hex()))
		return nil
	}

	art, err := contract.FindArtifact(s.env.ArtifactsDir, p.Token.Artifact)
	if err != nil {
		return err
	}
	h, err := s.env.Deployer.Deploy(ctx, art, p.TokenArgs(st.Admin))
	if err != nil {
		return err
	}
	st.Token, st.TokenTx = h.Address, h.TxHash
	s.env.Log.Info("token deployed",
		zap.String("contract", art.Name),
		zap.String("token", h.Address.Hex()),
		zap.String("tx", h.TxHash.Hex()))
	return nil
}

// --- 2. deploy-vault ---

type deployVault struct{ env *Env }

func (s *deployVault) Name() string     { return "deploy-vault" }
func (s *deployVault) Requires() []Fact { return []Fact{FactAdmin, FactToken} }
func (s *deployVault) Provides() []Fact { return []Fact{FactVaultSubmitted} }

func (s *deployVault) Run(ctx context.Context, st *State) error {
	p := st.Profile
	art, err := contract.FindArtifact(s.env.ArtifactsDir, p.Vault.Artifact)
	if err != nil {
		return err
	}
	args := p.VaultArgs(st.Token, st.Admin)
	dep, err := s.env.Deployer.Submit(ctx, art, args)
	if err != nil {
		return err
	}
	st.VaultDeployment = dep
	s.env.Log.Info("vault submitted",
		zap.String("contract", art.Name),
		zap.Strings("args", args),
		zap.String("tx", dep.TxHash.Hex()),
		zap.String("predicted", dep.Predicted.Hex()))
	return nil
}

// --- 3. confirm-vault ---

type confirmVault struct{ env *Env }

func (s *confirmVault) Name() string     { return "confirm-vault" }
func (s *confirmVault) Requires() []Fact { return []Fact{FactVaultSubmitted} }
func (s *confirmVault) Provides() []Fact { return []Fact{FactVault} }

func (s *confirmVault) Run(ctx context.Context, st *State) error {
	h, err := s.env.Deployer.Confirm(ctx, st.VaultDeployment)
	if err != nil {
		return err
	}
	st.Vault, st.VaultTx = h.Address, h.TxHash
	if h.Receipt != nil {
		st.Block = h.Receipt.BlockNumber
	}
	s.env.Log.Info("vault deployed",
		zap.String("vault", h.Address.Hex()),
		zap.Uint64("block", st.Block))
	return nil
}

// --- 4. query-roles ---

type queryRoles struct {
	env   *Env
	roles []string
}

func (s *queryRoles) Name() string     { return "query-roles" }
func (s *queryRoles) Requires() []Fact { return []Fact{FactToken} }
func (s *queryRoles) Provides() []Fact { return roleFacts(s.roles) }

func (s *queryRoles) Run(ctx context.Context, st *State) error {
	tok := s.env.token(st)
	for _, name := range s.roles {
		id, err := tok.Role(ctx, name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		st.Roles[name] = id
		s.env.Log.Debug("role resolved", zap.String("role", name), zap.String("id", contract.RoleHex(id)))
	}
	return nil
}

// --- 5. grant-roles ---

type grantRoles struct {
	env   *Env
	roles []string
}

func (s *grantRoles) Name() string { return "grant-roles" }
func (s *grantRoles) Requires() []Fact {
	return append([]Fact{FactAdmin, FactVault}, roleFacts(s.roles)...)
}
func (s *grantRoles) Provides() []Fact { return []Fact{FactRolesGranted} }

func (s *grantRoles) Run(ctx context.Context, st *State) error {
	tok := s.env.token(st)
	for _, name := range s.roles {
		id := st.Roles[name]
		receipt, err := tok.GrantRole(ctx, id, st.Vault)
		if err != nil {
			return fmt.Errorf("granting %s: %w", name, err)
		}
		st.Grants = append(st.Grants, RoleGrant{Role: name, ID: id, Grantee: st.Vault, TxHash: receipt.TxHash})
		s.env.Log.Info("role granted",
			zap.String("role", name),
			zap.String("grantee", st.Vault.Hex()),
			zap.String("tx", receipt.TxHash.Hex()))
	}
	st.mark(FactRolesGranted)
	return nil
}

// --- 6. verify-roles ---

type verifyRoles struct {
	env   *Env
	roles []string
}

func (s *verifyRoles) Name() string { return "verify-roles" }
func (s *verifyRoles) Requires() []Fact {
	return append([]Fact{FactVault, FactRolesGranted}, roleFacts(s.roles)...)
}
func (s *verifyRoles) Provides() []Fact { return []Fact{FactRolesVerified} }

func (s *verifyRoles) Run(ctx context.Context, st *State) error {
	tok := s.env.token(st)
	for _, name := range s.roles {
		ok, err := tok.HasRole(ctx, st.Roles[name], st.Vault)
		if err != nil {
			return fmt.Errorf("checking %s: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("vault %s does not hold %s after grant", st.Vault.Hex(), name)
		}
	}
	st.mark(FactRolesVerified)
	return nil
}

// --- 7. record ---

type record struct {
	env   *Env
	roles []string
}

func (s *record) Name() string     { return "record" }
func (s *record) Requires() []Fact { return []Fact{FactToken, FactVault, FactRolesVerified} }
func (s *record) Provides() []Fact { return []Fact{FactRecorded} }

func (s *record) Run(_ context.Context, st *State) error {
	rec := &contract.Record{
		Profile:    st.Profile.Name,
		Network:    s.env.Network,
		ChainID:    st.ChainID,
		Kind:       string(st.Profile.Kind),
		Admin:      st.Admin.Hex(),
		Token:      st.Token.Hex(),
		Vault:      st.Vault.Hex(),
		VaultTx:    st.VaultTx.Hex(),
		Block:      st.Block,
		Roles:      s.roles,
		DeployedAt: s.env.Now().UTC(),
	}
	if st.TokenTx != (common.Hash{}) {
		rec.TokenTx = st.TokenTx.Hex()
	}
	st.Record = rec

	if s.env.Registry != nil {
		s.env.Registry.Add(rec)
		if err := s.env.Registry.Save(); err != nil {
			return fmt.Errorf("saving deployment: %w", err)
		}
	}
	st.mark(FactRecorded)
	return nil
}
