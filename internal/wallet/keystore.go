package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

const (
	keychainService = "vaultctl"

	// EnvKeyringPassword unlocks the encrypted file backend without a prompt.
	EnvKeyringPassword = "VAULTCTL_KEYRING_PASSWORD"
)

var (
	ErrKeystoreUnavailable = errors.New("keystore not available")
	ErrKeyNotFound         = errors.New("key not found")
)

// KeystoreBackend keeps admin private keys under a reference string. Keys go
// in and come out as hex without the 0x prefix.
type KeystoreBackend interface {
	Store(name, hexKey string) (string, error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore is a KeystoreBackend on top of keyring: the OS keychain where one
// is reachable, an encrypted file directory otherwise.
type Keystore struct {
	ring keyring.Keyring
}

func keyRef(name string) string { return keychainService + "." + name }

func openRing(dir string, prompt keyring.PromptFunc, backends ...keyring.BackendType) (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		ServiceName:              keychainService,
		AllowedBackends:          backends,
		KeychainTrustApplication: true,
		FileDir:                  dir,
		FilePasswordFunc:         prompt,
	})
}

// DefaultKeystore prefers the platform keychain. On Linux only Secret
// Service, KWallet and the file backend are tried; when nothing opens, the
// encrypted file store under dir is used. A Keystore whose ring failed to
// open reports ErrKeystoreUnavailable on use.
func DefaultKeystore(dir string) *Keystore {
	var backends []keyring.BackendType
	if runtime.GOOS == "linux" {
		backends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.FileBackend}
	}
	ring, err := openRing(dir, filePassword, backends...)
	if err != nil {
		ring, _ = openRing(dir, filePassword, keyring.FileBackend)
	}
	return &Keystore{ring: ring}
}

// NewFileKeystore opens the encrypted file store in dir with a fixed
// password.
func NewFileKeystore(dir, password string) (*Keystore, error) {
	ring, err := openRing(dir, keyring.FixedStringPrompt(password), keyring.FileBackend)
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}
	return &Keystore{ring: ring}, nil
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(EnvKeyringPassword); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

func (k *Keystore) Store(name, hexKey string) (string, error) {
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	ref := keyRef(name)
	item := keyring.Item{
		Key:   ref,
		Data:  []byte(normaliseHexKey(hexKey)),
		Label: "vaultctl admin key " + name,
	}
	if err := k.ring.Set(item); err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

func (k *Keystore) Retrieve(ref string) (string, error) {
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	item, err := k.ring.Get(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return normaliseHexKey(string(item.Data)), nil
}

// Delete removes a key. A missing key is not an error.
func (k *Keystore) Delete(ref string) error {
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// InMemoryKeystore keeps keys in a map. Tests and one-off sessions use it.
type InMemoryKeystore struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{keys: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(name, hexKey string) (string, error) {
	ref := keyRef(name)
	k.mu.Lock()
	k.keys[ref] = normaliseHexKey(hexKey)
	k.mu.Unlock()
	return ref, nil
}

func (k *InMemoryKeystore) Retrieve(ref string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.keys[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	k.mu.Lock()
	delete(k.keys, ref)
	k.mu.Unlock()
	return nil
}

func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	return s
}
