package chain_test

import (
	"testing"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetByName(t *testing.T) {
	registry := chain.NewRegistry()

	tests := []struct {
		name    string
		chainID int64
	}{
		{"ethereum", 1},
		{"ropsten", 3},
		{"sepolia", 11155111},
		{"bnb-testnet", 97},
		{"ganache", 1337},
		{"hardhat", 31337},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := registry.GetByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, n.Name)
			assert.Equal(t, tt.chainID, n.ChainID)
		})
	}
}

func TestRegistryGetByNameCaseInsensitive(t *testing.T) {
	n, err := chain.NewRegistry().GetByName("Ropsten")
	require.NoError(t, err)
	assert.True(t, n.Deprecated)
}

func TestRegistryGetUnknownNetwork(t *testing.T) {
	_, err := chain.NewRegistry().GetByName("unknownchain")
	assert.ErrorIs(t, err, chain.ErrNetworkNotFound)

	_, err = chain.NewRegistry().GetByChainID(999999)
	assert.ErrorIs(t, err, chain.ErrNetworkNotFound)
}

func TestRegistryGetByChainID(t *testing.T) {
	n, err := chain.NewRegistry().GetByChainID(11155111)
	require.NoError(t, err)
	assert.Equal(t, "sepolia", n.Name)
}

func TestAllNetworksHaveRPC(t *testing.T) {
	all := chain.NewRegistry().All()
	require.NotEmpty(t, all)
	for i, n := range all {
		t.Run(n.Name, func(t *testing.T) {
			assert.NotEmpty(t, n.RPCs)
			assert.NotZero(t, n.ChainID)
			if i > 0 {
				assert.Less(t, all[i-1].Name, n.Name)
			}
		})
	}
}
