// Package fixtures holds contract artifacts and keys shared by tests.
package fixtures

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

// Well-known development keys. AdminKey deploys and grants roles; UserKey is
// an account with no roles.
const (
	AdminKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	UserKey  = "8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// ArtifactsDir is the Truffle-style build directory holding HornToken,
// HornLockVault and HornPresale. Their bytecode is simchain marker code.
func ArtifactsDir() string {
	return filepath.Join(fixturesDir(), "artifacts")
}

// LoadArtifact loads a fixture artifact by contract name or file name.
func LoadArtifact(t *testing.T, name string) *contract.Artifact {
	t.Helper()
	ref := name
	if filepath.Ext(name) == ".json" {
		ref = filepath.Join(ArtifactsDir(), name)
	}
	art, err := contract.FindArtifact(ArtifactsDir(), ref)
	require.NoError(t, err, "failed to load fixture artifact: %s", name)
	return art
}

// Address derives the account address of a hex private key.
func Address(t *testing.T, hexKey string) common.Address {
	t.Helper()
	key, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey)
}
