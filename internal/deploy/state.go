package deploy

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

// RoleGrant is one confirmed grantRole transaction.
type RoleGrant struct {
	Role    string
	ID      [32]byte
	Grantee common.Address
	TxHash  common.Hash
}

// State is what the pipeline knows so far. Address facts are derived from
// the fields themselves; the rest are marked by the steps that establish
// them.
type State struct {
	Profile *config.Profile
	ChainID uint64
	Admin   common.Address

	Token   common.Address
	TokenTx common.Hash // zero when the token already existed

	VaultDeployment *contract.Deployment
	Vault           common.Address
	VaultTx         common.Hash
	Block           uint64

	Roles  map[string][32]byte
	Grants []RoleGrant
	Record *contract.Record

	facts map[Fact]bool
}

// NewState creates a State for profile.
func NewState(profile *config.Profile) *State {
	return &State{
		Profile: profile,
		Roles:   make(map[string][32]byte),
		facts:   make(map[Fact]bool),
	}
}

// Has reports whether f holds.
func (s *State) Has(f Fact) bool {
	switch f {
	case FactAdmin:
		return s.Admin != (common.Address{})
	case FactToken:
		return s.Token != (common.Address{})
	case FactVaultSubmitted:
		return s.VaultDeployment != nil
	case FactVault:
		return s.Vault != (common.Address{})
	}
	if role, ok := strings.CutPrefix(string(f), roleFactPrefix); ok {
		_, found := s.Roles[role]
		return found
	}
	return s.facts[f]
}

func (s *State) mark(f Fact) {
	s.facts[f] = true
}
