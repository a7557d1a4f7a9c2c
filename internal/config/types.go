package config

// Config holds all vaultctl settings persisted in config.json.
type Config struct {
	DefaultProfile        string              `json:"default_profile"`
	DefaultWallet         string              `json:"default_wallet"`
	RPCAlgorithm          string              `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	ReceiptTimeoutSeconds int                 `json:"receipt_timeout_seconds"`
	PollIntervalMs        int                 `json:"poll_interval_ms"`
	ArtifactsDir          string              `json:"artifacts_dir"`
	LogFormat             string              `json:"log_format"`                   // "console" | "json"
	DeploymentsSource     string              `json:"deployments_source,omitempty"` // URL or path of a shared deployments.json
	LastImported          string              `json:"last_imported,omitempty"`
	CustomRPCs            map[string][]string `json:"custom_rpcs"` // keyed by profile name

	// internal: config dir path used for Save()
	configDir string
}

// Kind selects which contract a profile deploys next to the token.
type Kind string

const (
	KindVault   Kind = "vault"
	KindPresale Kind = "presale"
)

// Profile is a named, self-contained deployment configuration. Once selected
// for a run it is treated as immutable.
type Profile struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Network     string   `yaml:"network,omitempty" json:"network,omitempty"`
	ChainID     int64    `yaml:"chain_id,omitempty" json:"chain_id,omitempty"` // 0 = accept any
	RPCs        []string `yaml:"rpcs,omitempty" json:"rpcs,omitempty"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Admin       string   `yaml:"admin,omitempty" json:"admin,omitempty"`

	Token TokenSpec `yaml:"token" json:"token"`
	Vault VaultSpec `yaml:"vault" json:"vault"`

	Roles          []string   `yaml:"roles,omitempty" json:"roles,omitempty"`
	LockUnit       string     `yaml:"lock_unit,omitempty" json:"lock_unit,omitempty"`
	ReceiptTimeout string     `yaml:"receipt_timeout,omitempty" json:"receipt_timeout,omitempty"`
	Verify         VerifySpec `yaml:"verify,omitempty" json:"verify,omitempty"`

	// BuiltIn is set for profiles shipped with the binary.
	BuiltIn bool `yaml:"-" json:"built_in"`
}

// TokenSpec says where the token comes from: a known address (deploy is
// skipped) or an artifact to deploy with Args.
type TokenSpec struct {
	Address  string   `yaml:"address,omitempty" json:"address,omitempty"`
	Artifact string   `yaml:"artifact,omitempty" json:"artifact,omitempty"`
	Args     []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// VaultSpec holds the vault (or presale) constructor parameters. Numeric
// fields are kept as strings so 256-bit values survive YAML.
type VaultSpec struct {
	Artifact     string   `yaml:"artifact" json:"artifact"`
	FeeRecipient string   `yaml:"fee_recipient,omitempty" json:"fee_recipient,omitempty"`
	PaymentToken string   `yaml:"payment_token,omitempty" json:"payment_token,omitempty"`
	LockPeriod   string   `yaml:"lock_period,omitempty" json:"lock_period,omitempty"`
	FeeRate      string   `yaml:"fee_rate,omitempty" json:"fee_rate,omitempty"`
	Cap          string   `yaml:"cap,omitempty" json:"cap,omitempty"`
	Mode         string   `yaml:"mode,omitempty" json:"mode,omitempty"`
	Price        string   `yaml:"price,omitempty" json:"price,omitempty"`
	Args         []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// VerifySpec holds the default deposit scenario used by `verify run`.
type VerifySpec struct {
	Allowance      string `yaml:"allowance,omitempty" json:"allowance,omitempty"`
	Amount         string `yaml:"amount,omitempty" json:"amount,omitempty"`
	Count          int    `yaml:"count,omitempty" json:"count,omitempty"`
	ExpectedLocked string `yaml:"expected_locked,omitempty" json:"expected_locked,omitempty"`
}

// profilesFile is the structure of profiles.yaml.
type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}
