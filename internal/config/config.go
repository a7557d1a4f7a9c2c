package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

const (
	defaultAlgorithm      = "fastest"
	defaultReceiptTimeout = 300
	defaultPollInterval   = 2000
	defaultArtifactsDir   = "build/contracts"
	defaultLogFormat      = "console"

	configFile       = "config.json"
	profilesFileName = "profiles.yaml"
	walletsFile      = "wallets.json"
	deploymentsFile  = "deployments.json"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.vaultctl.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".vaultctl")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Set updates a single setting by its JSON key, as used by `config set`.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_profile":
		c.DefaultProfile = value
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_algorithm":
		switch value {
		case "fastest", "round-robin", "failover":
			c.RPCAlgorithm = value
		default:
			return fmt.Errorf("unknown rpc_algorithm %q (fastest, round-robin, failover)", value)
		}
	case "receipt_timeout_seconds", "poll_interval_ms":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		if key == "receipt_timeout_seconds" {
			c.ReceiptTimeoutSeconds = n
		} else {
			c.PollIntervalMs = n
		}
	case "artifacts_dir":
		c.ArtifactsDir = value
	case "deployments_source":
		c.DeploymentsSource = value
	case "log_format":
		if value != "console" && value != "json" {
			return fmt.Errorf("log_format must be console or json")
		}
		c.LogFormat = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// ReceiptTimeout is how long to wait for a submitted transaction to be mined.
func (c *Config) ReceiptTimeout() time.Duration {
	if c.ReceiptTimeoutSeconds <= 0 {
		return defaultReceiptTimeout * time.Second
	}
	return time.Duration(c.ReceiptTimeoutSeconds) * time.Second
}

// PollInterval is the receipt polling interval.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return defaultPollInterval * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// AddRPC adds a custom RPC URL for a profile.
func (c *Config) AddRPC(profile, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[profile], url) {
		return fmt.Errorf("RPC %s already exists for profile %s", url, profile)
	}
	c.CustomRPCs[profile] = append(c.CustomRPCs[profile], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a profile.
func (c *Config) RemoveRPC(profile, url string) error {
	rpcs := c.CustomRPCs[profile]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for profile %s", url, profile)
	}
	c.CustomRPCs[profile] = slices.Delete(rpcs, idx, idx+1)
	if len(c.CustomRPCs[profile]) == 0 {
		delete(c.CustomRPCs, profile)
	}
	return nil
}

// GetRPCs returns custom RPCs for a profile.
func (c *Config) GetRPCs(profile string) []string {
	return c.CustomRPCs[profile]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// ProfilesPath is the default location of the user's profiles file.
func (c *Config) ProfilesPath() string {
	return filepath.Join(c.configDir, profilesFileName)
}

// WalletsPath is where wallet metadata is stored.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// DeploymentsPath is where completed deployments are recorded.
func (c *Config) DeploymentsPath() string {
	return filepath.Join(c.configDir, deploymentsFile)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		RPCAlgorithm:          defaultAlgorithm,
		ReceiptTimeoutSeconds: defaultReceiptTimeout,
		PollIntervalMs:        defaultPollInterval,
		ArtifactsDir:          defaultArtifactsDir,
		LogFormat:             defaultLogFormat,
		CustomRPCs:            make(map[string][]string),
		configDir:             dir,
	}
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
