package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// EnvPrivateKey supplies the admin key directly, bypassing the wallet store.
const EnvPrivateKey = "VAULTCTL_PRIVATE_KEY"

// ErrNoSigner is returned when no signing key can be found.
var ErrNoSigner = errors.New("no signing key configured")

// Signer signs EVM transactions for a single account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// KeySigner signs with an in-memory private key.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner parses a hex private key (with or without 0x).
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &KeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// SignerFromWallet loads the key of a signing wallet from ks.
func SignerFromWallet(w *Wallet, ks KeystoreBackend) (*KeySigner, error) {
	if w.Type != TypeSigning {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign", w.Name)
	}
	hexKey, err := ks.Retrieve(w.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	s, err := NewKeySigner(hexKey)
	if err != nil {
		return nil, err
	}
	if w.Address != "" && common.HexToAddress(w.Address) != s.addr {
		return nil, fmt.Errorf("stored key for wallet %q does not match address %s", w.Name, w.Address)
	}
	return s, nil
}

// Resolve picks the admin signer: VAULTCTL_PRIVATE_KEY first, then the named
// wallet, then the default wallet.
func Resolve(m *Manager, ks KeystoreBackend, name string) (Signer, error) {
	if hexKey := os.Getenv(EnvPrivateKey); hexKey != "" {
		s, err := NewKeySigner(hexKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvPrivateKey, err)
		}
		return s, nil
	}

	var w *Wallet
	if name != "" {
		var err error
		if w, err = m.Get(name); err != nil {
			return nil, fmt.Errorf("%w: %q", err, name)
		}
	} else if w = m.Default(); w == nil {
		return nil, fmt.Errorf("%w: set %s or add a wallet with `vaultctl wallet add`", ErrNoSigner, EnvPrivateKey)
	}
	return SignerFromWallet(w, ks)
}

// Address returns the signing account.
func (s *KeySigner) Address() common.Address {
	return s.addr
}

// SignTx signs an EVM transaction and returns the raw signed bytes.
func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}

	return raw, nil
}
