package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
)

// Profile errors.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile")
)

// Placeholders accepted in raw constructor argument lists.
const (
	PlaceholderToken = "{{token}}"
	PlaceholderAdmin = "{{admin}}"
)

// DefaultRoles are granted to the vault when a profile lists none.
var DefaultRoles = []string{"MINTER_ROLE", "BURNER_ROLE"}

const defaultLockUnit = 24 * time.Hour

// Validate checks the profile's shape. It does not judge whether values make
// sense to the contract; out-of-range parameters are left for the chain to
// reject.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid(p, "name", "required")
	}
	switch p.Kind {
	case KindVault, KindPresale:
	default:
		return invalid(p, "kind", fmt.Sprintf("unknown kind %q (vault, presale)", p.Kind))
	}
	if p.ChainID < 0 {
		return invalid(p, "chain_id", "must not be negative")
	}
	if p.Network == "" && len(p.RPCs) == 0 {
		return invalid(p, "network", "either network or rpcs is required")
	}
	if p.Network != "" {
		if _, err := chain.NewRegistry().GetByName(p.Network); err != nil {
			return invalid(p, "network", fmt.Sprintf("unknown network %q", p.Network))
		}
	}

	addrs := []struct{ field, value string }{
		{"admin", p.Admin},
		{"token.address", p.Token.Address},
		{"vault.fee_recipient", p.Vault.FeeRecipient},
		{"vault.payment_token", p.Vault.PaymentToken},
	}
	for _, a := range addrs {
		if a.value != "" && !common.IsHexAddress(a.value) {
			return invalid(p, a.field, fmt.Sprintf("%q is not a hex address", a.value))
		}
	}

	if p.Token.Address == "" && p.Token.Artifact == "" {
		return invalid(p, "token", "address or artifact is required")
	}
	if p.Vault.Artifact == "" {
		return invalid(p, "vault.artifact", "required")
	}

	if len(p.Vault.Args) == 0 {
		if err := p.validateComputedArgs(); err != nil {
			return err
		}
	}

	for _, r := range p.Roles {
		if strings.TrimSpace(r) == "" {
			return invalid(p, "roles", "empty role name")
		}
	}
	if p.LockUnit != "" {
		if d, err := time.ParseDuration(p.LockUnit); err != nil || d <= 0 {
			return invalid(p, "lock_unit", fmt.Sprintf("%q is not a positive duration", p.LockUnit))
		}
	}
	if p.ReceiptTimeout != "" {
		if d, err := time.ParseDuration(p.ReceiptTimeout); err != nil || d <= 0 {
			return invalid(p, "receipt_timeout", fmt.Sprintf("%q is not a positive duration", p.ReceiptTimeout))
		}
	}

	for field, v := range map[string]string{
		"verify.allowance":       p.Verify.Allowance,
		"verify.amount":          p.Verify.Amount,
		"verify.expected_locked": p.Verify.ExpectedLocked,
	} {
		if v == "" {
			continue
		}
		if _, err := chain.ParseBigInt(v); err != nil {
			return invalid(p, field, err.Error())
		}
	}
	return nil
}

func (p *Profile) validateComputedArgs() error {
	if p.Vault.FeeRecipient == "" && p.Kind == KindVault {
		return invalid(p, "vault.fee_recipient", "required")
	}
	if p.Vault.PaymentToken == "" && p.Kind == KindPresale {
		return invalid(p, "vault.payment_token", "required")
	}
	numeric := []struct{ field, value string }{
		{"vault.lock_period", p.Vault.LockPeriod},
		{"vault.fee_rate", p.Vault.FeeRate},
		{"vault.cap", p.Vault.Cap},
		{"vault.mode", p.Vault.Mode},
		{"vault.price", p.Vault.Price},
	}
	for _, n := range numeric {
		if n.value == "" {
			return invalid(p, n.field, "required")
		}
		if _, err := chain.ParseBigInt(n.value); err != nil {
			return invalid(p, n.field, err.Error())
		}
	}
	return nil
}

func invalid(p *Profile, field, reason string) error {
	name := p.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Errorf("%w %s: %s: %s", ErrInvalidProfile, name, field, reason)
}

// DeploysToken reports whether the pipeline must deploy the token itself.
func (p *Profile) DeploysToken() bool {
	return p.Token.Address == ""
}

// RoleNames returns the token role getters whose roles the vault is granted.
func (p *Profile) RoleNames() []string {
	if len(p.Roles) == 0 {
		return slices.Clone(DefaultRoles)
	}
	return slices.Clone(p.Roles)
}

// LockUnitDuration is the wall-clock length of one lock period unit.
func (p *Profile) LockUnitDuration() time.Duration {
	if p.LockUnit == "" {
		return defaultLockUnit
	}
	d, err := time.ParseDuration(p.LockUnit)
	if err != nil || d <= 0 {
		return defaultLockUnit
	}
	return d
}

// lockPeriodArg is the lock period constructor argument: vault.lock_period,
// or position 2 of a raw argument list (the same slot for vault and presale).
func (p *Profile) lockPeriodArg() string {
	if p.Vault.LockPeriod != "" || len(p.Vault.Args) < 3 {
		return p.Vault.LockPeriod
	}
	return p.Vault.Args[2]
}

// LockDuration is the lock period in wall-clock time. ok is false when the
// profile does not say what lock period the vault is deployed with.
func (p *Profile) LockDuration() (d time.Duration, ok bool) {
	arg := p.lockPeriodArg()
	if arg == "" {
		return 0, false
	}
	n, err := chain.ParseBigInt(arg)
	if err != nil || n.Sign() < 0 || !n.IsInt64() {
		return 0, false
	}
	return time.Duration(n.Int64()) * p.LockUnitDuration(), true
}

// ReceiptTimeoutOr returns the profile's receipt timeout or def.
func (p *Profile) ReceiptTimeoutOr(def time.Duration) time.Duration {
	if p.ReceiptTimeout == "" {
		return def
	}
	d, err := time.ParseDuration(p.ReceiptTimeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// AdminAddress returns the expected admin signer, if configured.
func (p *Profile) AdminAddress() (common.Address, bool) {
	if p.Admin == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(p.Admin), true
}

// TokenArgs returns the token constructor arguments with placeholders resolved.
func (p *Profile) TokenArgs(admin common.Address) []string {
	return substitute(p.Token.Args, common.Address{}, admin)
}

// VaultArgs returns the vault (or presale) constructor arguments in contract
// order. A non-empty raw Args list is used verbatim after placeholder
// substitution.
//
//	vault:   token, feeRecipient, lockPeriod, feeRate, cap, mode, price
//	presale: paymentToken, token, lockPeriod, feeRate, cap, price, mode
func (p *Profile) VaultArgs(token, admin common.Address) []string {
	if len(p.Vault.Args) > 0 {
		return substitute(p.Vault.Args, token, admin)
	}
	v := p.Vault
	if p.Kind == KindPresale {
		return []string{v.PaymentToken, token.Hex(), v.LockPeriod, v.FeeRate, v.Cap, v.Price, v.Mode}
	}
	return []string{token.Hex(), v.FeeRecipient, v.LockPeriod, v.FeeRate, v.Cap, v.Mode, v.Price}
}

func substitute(args []string, token, admin common.Address) []string {
	out := make([]string, len(args))
	for i, a := range args {
		a = strings.ReplaceAll(a, PlaceholderToken, token.Hex())
		a = strings.ReplaceAll(a, PlaceholderAdmin, admin.Hex())
		out[i] = a
	}
	return out
}

func (p *Profile) clone() *Profile {
	c := *p
	c.RPCs = slices.Clone(p.RPCs)
	c.Roles = slices.Clone(p.Roles)
	c.Token.Args = slices.Clone(p.Token.Args)
	c.Vault.Args = slices.Clone(p.Vault.Args)
	return &c
}

// --- profile set ---

// ProfileSet is the built-in profiles overlaid with the user's profiles file.
type ProfileSet struct {
	profiles map[string]*Profile
}

// LoadProfiles returns the built-in profiles merged with the profiles in path.
// A user profile replaces a built-in one of the same name. A missing file is
// only an error when required is set.
func LoadProfiles(path string, required bool) (*ProfileSet, error) {
	set := &ProfileSet{profiles: make(map[string]*Profile)}
	for _, p := range builtinProfiles() {
		p.BuiltIn = true
		set.profiles[p.Name] = &p
	}

	if path == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing profiles %s: %w", path, err)
	}

	seen := make(map[string]bool, len(pf.Profiles))
	for i := range pf.Profiles {
		p := pf.Profiles[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w %s: defined twice in %s", ErrInvalidProfile, p.Name, path)
		}
		seen[p.Name] = true
		set.profiles[p.Name] = &p
	}
	return set, nil
}

// Get returns a copy of the named profile.
func (s *ProfileSet) Get(name string) (*Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p.clone(), nil
}

// Names returns all profile names, sorted.
func (s *ProfileSet) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns copies of every profile, sorted by name.
func (s *ProfileSet) All() []*Profile {
	out := make([]*Profile, 0, len(s.profiles))
	for _, n := range s.Names() {
		out = append(out, s.profiles[n].clone())
	}
	return out
}

// Marshal renders a profile as YAML, for `profile show`.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// WriteProfiles writes ps to path in the profiles.yaml format. An existing
// file is only replaced when overwrite is set.
func WriteProfiles(path string, ps []*Profile, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	pf := profilesFile{Profiles: make([]Profile, len(ps))}
	for i, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
		pf.Profiles[i] = *p
	}
	data, err := yaml.Marshal(pf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
