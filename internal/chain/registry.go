package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds the metadata for a single EVM network a profile can target.
type Network struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	ChainID        int64    `json:"chain_id"`
	NativeCurrency string   `json:"native_currency"`
	RPCs           []string `json:"rpcs"`
	Explorer       string   `json:"explorer,omitempty"`
	Testnet        bool     `json:"testnet"`
	// Deprecated networks are kept so historical profiles still resolve.
	Deprecated bool `json:"deprecated,omitempty"`
}

// Registry is the known-network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of every known network.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
		byID:     make(map[int64]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		if _, taken := r.byID[n.ChainID]; !taken {
			r.byID[n.ChainID] = n
		}
	}
	return r
}

// All returns every network, sorted by name.
func (r *Registry) All() []Network {
	out := make([]Network, len(r.networks))
	copy(out, r.networks)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetByName finds a network by its slug (e.g. "sepolia", "ropsten").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, NativeCurrency: "ETH",
			RPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer: "https://etherscan.io",
		},
		{
			Name: "ropsten", DisplayName: "Ropsten", ChainID: 3, NativeCurrency: "ETH",
			RPCs:     []string{"https://rpc.ankr.com/eth_ropsten"},
			Explorer: "https://ropsten.etherscan.io",
			Testnet:  true, Deprecated: true,
		},
		{
			Name: "goerli", DisplayName: "Goerli", ChainID: 5, NativeCurrency: "ETH",
			RPCs:     []string{"https://rpc.ankr.com/eth_goerli"},
			Explorer: "https://goerli.etherscan.io",
			Testnet:  true, Deprecated: true,
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, NativeCurrency: "ETH",
			RPCs:     []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co", "https://ethereum-sepolia-rpc.publicnode.com"},
			Explorer: "https://sepolia.etherscan.io",
			Testnet:  true,
		},
		{
			Name: "holesky", DisplayName: "Holesky", ChainID: 17000, NativeCurrency: "ETH",
			RPCs:     []string{"https://ethereum-holesky-rpc.publicnode.com"},
			Explorer: "https://holesky.etherscan.io",
			Testnet:  true,
		},
		{
			Name: "bnb", DisplayName: "BNB Chain", ChainID: 56, NativeCurrency: "BNB",
			RPCs:     []string{"https://bsc-dataseed.binance.org", "https://bsc-rpc.publicnode.com"},
			Explorer: "https://bscscan.com",
		},
		{
			Name: "bnb-testnet", DisplayName: "BSC Testnet", ChainID: 97, NativeCurrency: "tBNB",
			RPCs:     []string{"https://data-seed-prebsc-1-s1.binance.org:8545"},
			Explorer: "https://testnet.bscscan.com",
			Testnet:  true,
		},
		{
			Name: "polygon", DisplayName: "Polygon", ChainID: 137, NativeCurrency: "POL",
			RPCs:     []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-pokt.nodies.app"},
			Explorer: "https://polygonscan.com",
		},
		{
			Name: "amoy", DisplayName: "Polygon Amoy", ChainID: 80002, NativeCurrency: "POL",
			RPCs:     []string{"https://rpc-amoy.polygon.technology"},
			Explorer: "https://amoy.polygonscan.com",
			Testnet:  true,
		},
		{
			Name: "ganache", DisplayName: "Ganache", ChainID: 1337, NativeCurrency: "ETH",
			RPCs:    []string{"http://127.0.0.1:7545", "http://127.0.0.1:8545"},
			Testnet: true,
		},
		{
			Name: "hardhat", DisplayName: "Hardhat / Anvil", ChainID: 31337, NativeCurrency: "ETH",
			RPCs:    []string{"http://127.0.0.1:8545"},
			Testnet: true,
		},
	}
}
