package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DefaultProfile)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, "build/contracts", cfg.ArtifactsDir)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 5*time.Minute, cfg.ReceiptTimeout())
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultProfile = "ropsten"
	cfg.DefaultWallet = "deployer"
	cfg.RPCAlgorithm = "round-robin"

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ropsten", reloaded.DefaultProfile)
	assert.Equal(t, "deployer", reloaded.DefaultWallet)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
}

func TestLoadCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o600))

	_, err := config.Load(dir)
	assert.ErrorContains(t, err, "parsing config")
}

func TestSetKnownKeys(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("default_profile", "local"))
	require.NoError(t, cfg.Set("receipt_timeout_seconds", "60"))
	require.NoError(t, cfg.Set("poll_interval_ms", "250"))
	require.NoError(t, cfg.Set("rpc_algorithm", "failover"))
	require.NoError(t, cfg.Set("log_format", "json"))
	require.NoError(t, cfg.Set("artifacts_dir", "out"))

	assert.Equal(t, "local", cfg.DefaultProfile)
	assert.Equal(t, time.Minute, cfg.ReceiptTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, "failover", cfg.RPCAlgorithm)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "out", cfg.ArtifactsDir)
}

func TestSetRejectsBadValues(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, cfg.Set("rpc_algorithm", "random"))
	assert.Error(t, cfg.Set("receipt_timeout_seconds", "-1"))
	assert.Error(t, cfg.Set("poll_interval_ms", "soon"))
	assert.Error(t, cfg.Set("log_format", "xml"))
	assert.Error(t, cfg.Set("no_such_key", "x"))
}

func TestAddCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("ropsten", "https://custom.ropsten.rpc"))
	assert.Contains(t, cfg.GetRPCs("ropsten"), "https://custom.ropsten.rpc")
}

func TestAddDuplicateRPCErrors(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	cfg.AddRPC("local", "http://127.0.0.1:8545") //nolint:errcheck
	err := cfg.AddRPC("local", "http://127.0.0.1:8545")
	assert.Error(t, err)
}

func TestRemoveCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	cfg.AddRPC("local", "https://rpc1") //nolint:errcheck
	cfg.AddRPC("local", "https://rpc2") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC("local", "https://rpc1"))
	assert.Equal(t, []string{"https://rpc2"}, cfg.GetRPCs("local"))

	require.NoError(t, cfg.RemoveRPC("local", "https://rpc2"))
	assert.Empty(t, cfg.GetRPCs("local"))
}

func TestRemoveNonExistentRPCErrors(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	assert.Error(t, cfg.RemoveRPC("local", "https://nonexistent.rpc"))
}

func TestConfigPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "profiles.yaml"), cfg.ProfilesPath())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
	assert.Equal(t, filepath.Join(dir, "deployments.json"), cfg.DeploymentsPath())
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	_, err = os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}
