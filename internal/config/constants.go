package config

import "time"

// Timeouts used across cmd.
const (
	RPCSelectTimeout = 10 * time.Second // benchmark / RPC selection
	ReadTimeout      = 30 * time.Second // a single read-only call
)

const (
	hornAdmin       = "0x0850e38e4ec34d1d83130ab47a57a955158a7f36"
	hornPTE         = "0x2158146e3012f671e4e3eee72611224027c3fcfd"
	hornDevToken    = "0x901727dF7F255100aa7cF73b160085f5843c373C"
	ropstenWETH     = "0xc778417e063141139fce010982780140aa0cd5ab"
	vaultArtifact   = "HornLockVault"
	presaleArtifact = "HornPresale"
	tokenArtifact   = "HornToken"
	oneEther        = "1000000000000000000"
)

// builtinProfiles are the deployment targets shipped with the binary.
func builtinProfiles() []Profile {
	return []Profile{
		{
			Name:        "ropsten",
			Description: "HornLockVault over the existing Horn token on Ropsten",
			Network:     "ropsten",
			ChainID:     3,
			Kind:        KindVault,
			Token:       TokenSpec{Address: hornAdmin},
			Vault: VaultSpec{
				Artifact:     vaultArtifact,
				FeeRecipient: hornAdmin,
				LockPeriod:   "20",
				FeeRate:      "10",
				Cap:          "10000",
				Mode:         "0",
				Price:        oneEther,
			},
		},
		{
			Name:        "pte",
			Description: "HornLockVault over the PTE token",
			Network:     "ropsten",
			ChainID:     3,
			Kind:        KindVault,
			Token:       TokenSpec{Address: hornPTE},
			Vault: VaultSpec{
				Artifact:     vaultArtifact,
				FeeRecipient: hornAdmin,
				LockPeriod:   "50",
				FeeRate:      "200",
				Cap:          "150000",
				Mode:         "1",
				Price:        "20000000000000000",
			},
		},
		{
			Name:        "dev",
			Description: "HornLockVault on a local development chain with a pre-deployed token",
			Network:     "ganache",
			Kind:        KindVault,
			Token:       TokenSpec{Address: hornDevToken},
			Vault: VaultSpec{
				Artifact:     vaultArtifact,
				FeeRecipient: hornDevToken,
				LockPeriod:   "20",
				FeeRate:      "10",
				Cap:          "100",
				Mode:         "0",
				Price:        oneEther,
			},
		},
		{
			Name:        "ropsten-presale",
			Description: "HornPresale selling Horn for WETH on Ropsten",
			Network:     "ropsten",
			ChainID:     3,
			Kind:        KindPresale,
			Token:       TokenSpec{Address: hornAdmin},
			Vault: VaultSpec{
				Artifact:     presaleArtifact,
				PaymentToken: ropstenWETH,
				LockPeriod:   "50",
				FeeRate:      "50",
				Cap:          "1500",
				Price:        "10",
				Mode:         "1",
			},
		},
		{
			Name:        "local",
			Description: "fresh HornToken and HornLockVault on a local chain",
			Network:     "ganache",
			Kind:        KindVault,
			Token:       TokenSpec{Artifact: tokenArtifact},
			Vault: VaultSpec{
				Artifact: vaultArtifact,
				Args:     []string{PlaceholderToken, PlaceholderAdmin, "20", "10", "100", "0", oneEther},
			},
			LockUnit: "24h",
			Verify: VerifySpec{
				Allowance:      "20000000000000000000000",
				Amount:         "100000000000000000000",
				Count:          2,
				ExpectedLocked: "199400000000000000000",
			},
		},
	}
}
