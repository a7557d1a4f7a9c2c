package wallet

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Kinds of admin account.
const (
	TypeWatchOnly = "watch-only"
	TypeSigning   = "signing"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
	ErrInvalidKey     = errors.New("invalid private key")
)

// Wallet names an admin account. A signing wallet points at its key in the
// keystore through KeyRef; the key itself is never written to the store.
type Wallet struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Type      string    `json:"type"`
	KeyRef    string    `json:"key_ref,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the wallet list.
type Store interface {
	Load() ([]*Wallet, error)
	Save([]*Wallet) error
}

// Manager keeps the wallet list sorted by name and writes it back to the
// store after every change. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	store    Store
	keystore KeystoreBackend
	list     []*Wallet
	loaded   bool
	now      func() time.Time
}

type Option func(*Manager)

// WithStore sets where the wallet list is persisted.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithKeystore sets where signing keys are kept.
func WithKeystore(ks KeystoreBackend) Option {
	return func(m *Manager) { m.keystore = ks }
}

// NewManager creates a wallet manager. Without options both the list and
// the keys live in memory.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		store:    &memStore{},
		keystore: NewInMemoryKeystore(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddWatchOnly registers an address that can be inspected but not sign.
func (m *Manager) AddWatchOnly(name, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(&Wallet{
		Name:    name,
		Address: common.HexToAddress(address).Hex(),
		Type:    TypeWatchOnly,
	})
}

// AddWithKey registers a signing wallet. The address is derived from the key
// and the key goes to the keystore before the wallet is recorded.
func (m *Manager) AddWithKey(name, hexKey string) (*Wallet, error) {
	signer, err := NewKeySigner(hexKey)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	if _, ok := m.find(name); ok {
		return nil, ErrWalletExists
	}
	ref, err := m.keystore.Store(name, hexKey)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}
	w := &Wallet{Name: name, Address: signer.Address().Hex(), Type: TypeSigning, KeyRef: ref}
	if err := m.insert(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns a wallet by name.
func (m *Manager) Get(name string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	i, ok := m.find(name)
	if !ok {
		return nil, ErrWalletNotFound
	}
	return m.list[i], nil
}

// Remove deletes a wallet and, for signing wallets, its key.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	i, ok := m.find(name)
	if !ok {
		return ErrWalletNotFound
	}
	if ref := m.list[i].KeyRef; ref != "" {
		if err := m.keystore.Delete(ref); err != nil {
			return fmt.Errorf("deleting key: %w", err)
		}
	}
	m.list = slices.Delete(m.list, i, i+1)
	return m.store.Save(m.list)
}

// List returns every wallet ordered by name.
func (m *Manager) List() ([]*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	return slices.Clone(m.list), nil
}

// SetDefault marks name as the only default wallet.
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	if _, ok := m.find(name); !ok {
		return ErrWalletNotFound
	}
	for _, w := range m.list {
		w.IsDefault = w.Name == name
	}
	return m.store.Save(m.list)
}

// Default returns the marked wallet, or the only wallet when exactly one
// exists. It returns nil otherwise, including when the store cannot be read.
func (m *Manager) Default() *Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureLoaded() != nil {
		return nil
	}
	if i := slices.IndexFunc(m.list, func(w *Wallet) bool { return w.IsDefault }); i >= 0 {
		return m.list[i]
	}
	if len(m.list) == 1 {
		return m.list[0]
	}
	return nil
}

// ensureLoaded reads the store once. Callers hold mu.
func (m *Manager) ensureLoaded() error {
	if m.loaded {
		return nil
	}
	ws, err := m.store.Load()
	if err != nil {
		return err
	}
	m.list = slices.Clone(ws)
	slices.SortFunc(m.list, byName)
	m.loaded = true
	return nil
}

// find binary-searches the sorted list. Callers hold mu.
func (m *Manager) find(name string) (int, bool) {
	return slices.BinarySearchFunc(m.list, name, func(w *Wallet, n string) int {
		return strings.Compare(w.Name, n)
	})
}

// insert adds w in name order and saves. Callers hold mu.
func (m *Manager) insert(w *Wallet) error {
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	i, exists := m.find(w.Name)
	if exists {
		return ErrWalletExists
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = m.now().UTC().Truncate(time.Second)
	}
	m.list = slices.Insert(m.list, i, w)
	return m.store.Save(m.list)
}

func byName(a, b *Wallet) int { return strings.Compare(a.Name, b.Name) }
