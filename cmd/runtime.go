package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
	"github.com/Mohsinsiddi/vaultctl/internal/rpc"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/Mohsinsiddi/vaultctl/internal/wallet"
)

var errNoProfile = errors.New("no profile selected: pass --profile, set " + envProfile + " or run `vaultctl profile use <name>`")

// currentProfile resolves the profile for this invocation.
func currentProfile() (*config.Profile, error) {
	name := profileName
	if name == "" {
		name = cfg.DefaultProfile
	}
	if name == "" {
		return nil, errNoProfile
	}
	return profiles.Get(name)
}

// profileRPCs lists candidate endpoints: custom RPCs from config, then the
// profile's own, then the network's built-in ones.
func profileRPCs(p *config.Profile) []string {
	var urls []string
	add := func(us ...string) {
		for _, u := range us {
			if u != "" && !slices.Contains(urls, u) {
				urls = append(urls, u)
			}
		}
	}
	add(cfg.GetRPCs(p.Name)...)
	add(p.RPCs...)
	if p.Network != "" {
		if n, err := chain.NewRegistry().GetByName(p.Network); err == nil {
			add(n.RPCs...)
		}
	}
	return urls
}

// connect picks an endpoint for p. --rpc skips selection entirely.
func connect(ctx context.Context, p *config.Profile) (*chain.EVMClient, error) {
	if rpcURL != "" {
		logger.Debug("using RPC from flag", zap.String("url", rpcURL))
		return chain.NewEVMClient(rpcURL), nil
	}

	strategy, err := rpc.ParseStrategy(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()

	urls := profileRPCs(p)
	sp := ui.NewSpinner(os.Stderr, fmt.Sprintf("Probing %d RPC(s) for %s", len(urls), p.Name))
	sp.Start()
	url, err := rpc.Select(sctx, urls, rpc.NewPicker(strategy), rpc.Options{
		ChainID: uint64(max(p.ChainID, 0)),
		Timeout: rpc.DefaultProbeTimeout,
		Logger:  logger,
	})
	if err != nil {
		sp.Stop()
		return nil, fmt.Errorf("selecting RPC for profile %s: %w", p.Name, err)
	}
	sp.StopWithMsg(ui.Meta("RPC: " + url))
	logger.Debug("RPC selected", zap.String("url", url), zap.String("strategy", string(strategy)))
	return chain.NewEVMClient(url), nil
}

// keystore opens the key backend. VAULTCTL_KEYRING_PASSWORD selects the
// encrypted file backend without touching the OS keychain.
func keystore() (wallet.KeystoreBackend, error) {
	if pw := os.Getenv(wallet.EnvKeyringPassword); pw != "" {
		return wallet.NewFileKeystore(filepath.Join(cfg.Dir(), "keyring"), pw)
	}
	return wallet.DefaultKeystore(filepath.Join(cfg.Dir(), "keyring")), nil
}

// newWalletManager creates a Manager backed by the config-dir JSON store.
func newWalletManager(ks wallet.KeystoreBackend) *wallet.Manager {
	opts := []wallet.Option{wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath()))}
	if ks != nil {
		opts = append(opts, wallet.WithKeystore(ks))
	}
	return wallet.NewManager(opts...)
}

// resolveSigner returns the admin signer. A key in the environment is used
// without opening the keystore.
func resolveSigner() (wallet.Signer, error) {
	if os.Getenv(wallet.EnvPrivateKey) != "" {
		return wallet.Resolve(nil, nil, "")
	}
	ks, err := keystore()
	if err != nil {
		return nil, err
	}
	name := walletName
	if name == "" {
		name = cfg.DefaultWallet
	}
	return wallet.Resolve(newWalletManager(ks), ks, name)
}

// session is everything a command needs to talk to one profile's chain.
type session struct {
	profile *config.Profile
	client  *chain.EVMClient
	tx      *contract.Transactor
	caller  *contract.Caller
}

// openSession connects to the profile's chain. The signer is loaded when
// signing is set; read-only sessions use the default wallet address when
// one exists.
func openSession(ctx context.Context, signing bool) (*session, error) {
	p, err := currentProfile()
	if err != nil {
		return nil, err
	}
	client, err := connect(ctx, p)
	if err != nil {
		return nil, err
	}
	s := &session{profile: p, client: client}

	if !signing {
		s.caller = contract.NewCaller(client, common.Address{})
		return s, nil
	}

	signer, err := resolveSigner()
	if err != nil {
		return nil, err
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id: %w", err)
	}
	s.tx = contract.NewTransactor(client, signer, id,
		contract.WithPollInterval(cfg.PollInterval()),
		contract.WithReceiptTimeout(p.ReceiptTimeoutOr(cfg.ReceiptTimeout())),
		contract.WithLogger(logger))
	s.caller = contract.NewCaller(client, signer.Address())
	logger.Debug("signer loaded", zap.String("admin", signer.Address().Hex()))
	return s, nil
}

func openRegistry() (*contract.Registry, error) {
	reg := contract.NewRegistry(cfg.DeploymentsPath())
	if err := reg.Load(); err != nil {
		return nil, err
	}
	return reg, nil
}

// targets resolves the token and vault for commands that act on an existing
// deployment: explicit flags first, then the registry record for the
// profile on the connected chain.
func (s *session) targets(ctx context.Context, tokenFlag, vaultFlag string) (token, vault common.Address, err error) {
	if tokenFlag != "" && !common.IsHexAddress(tokenFlag) {
		return token, vault, fmt.Errorf("--token %q is not an address", tokenFlag)
	}
	if vaultFlag != "" && !common.IsHexAddress(vaultFlag) {
		return token, vault, fmt.Errorf("--vault %q is not an address", vaultFlag)
	}

	var rec *contract.Record
	if tokenFlag == "" || vaultFlag == "" {
		reg, err := openRegistry()
		if err != nil {
			return token, vault, err
		}
		id, err := s.client.ChainID(ctx)
		if err != nil {
			return token, vault, fmt.Errorf("reading chain id: %w", err)
		}
		rec, err = reg.Get(s.profile.Name, id.Uint64())
		if err != nil && vaultFlag == "" {
			return token, vault, fmt.Errorf("%w: pass --vault or run `vaultctl deploy` first", err)
		}
	}

	switch {
	case tokenFlag != "":
		token = common.HexToAddress(tokenFlag)
	case rec != nil:
		token = common.HexToAddress(rec.Token)
	case s.profile.Token.Address != "":
		token = common.HexToAddress(s.profile.Token.Address)
	default:
		return token, vault, errors.New("token address unknown: pass --token")
	}
	if vaultFlag != "" {
		vault = common.HexToAddress(vaultFlag)
	} else {
		vault = common.HexToAddress(rec.Vault)
	}
	return token, vault, nil
}

func artifactsDir() string {
	if deployArtifacts != "" {
		return deployArtifacts
	}
	return cfg.ArtifactsDir
}
