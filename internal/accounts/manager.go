package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Imported is the stored metadata of an imported account. The key itself
// lives in the Keystore under KeyRef.
type Imported struct {
	Name      string         `json:"name"`
	Address   common.Address `json:"address"`
	KeyRef    string         `json:"key_ref"`
	CreatedAt time.Time      `json:"created_at"`
}

// Manager resolves account names to keys: imported accounts first, then
// the development roles.
type Manager struct {
	path     string
	ks       *Keystore
	imported map[string]*Imported
	loaded   bool
}

// NewManager creates a manager persisting metadata to path ("" keeps it in memory).
func NewManager(path string, ks *Keystore) *Manager {
	return &Manager{
		path:     path,
		ks:       ks,
		imported: make(map[string]*Imported),
	}
}

// Import stores a hex private key under name.
func (m *Manager) Import(name, hexKey string) (Account, error) {
	if err := m.load(); err != nil {
		return Account{}, err
	}
	if _, exists := m.imported[name]; exists {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, name)
	}
	if _, isRole := namedIndex[name]; isRole {
		return Account{}, fmt.Errorf("%w: %s is a reserved role", ErrAccountExists, name)
	}

	acct, err := FromHex(name, hexKey)
	if err != nil {
		return Account{}, err
	}

	ref, err := m.ks.Store(name, stripHexPrefix(hexKey))
	if err != nil {
		return Account{}, fmt.Errorf("storing key: %w", err)
	}

	m.imported[name] = &Imported{
		Name:      name,
		Address:   acct.Address,
		KeyRef:    ref,
		CreatedAt: time.Now().UTC(),
	}
	return acct, m.persist()
}

// Get returns a signing account by name.
func (m *Manager) Get(name string) (Account, error) {
	if err := m.load(); err != nil {
		return Account{}, err
	}
	if imp, ok := m.imported[name]; ok {
		hexKey, err := m.ks.Retrieve(imp.KeyRef)
		if err != nil {
			return Account{}, err
		}
		return FromHex(name, hexKey)
	}
	return Named(name)
}

// Remove forgets an imported account and deletes its key.
func (m *Manager) Remove(name string) error {
	if err := m.load(); err != nil {
		return err
	}
	imp, ok := m.imported[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	if err := m.ks.Delete(imp.KeyRef); err != nil {
		return err
	}
	delete(m.imported, name)
	return m.persist()
}

// List returns imported accounts sorted by name.
func (m *Manager) List() ([]Imported, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]Imported, 0, len(m.imported))
	for _, imp := range m.imported {
		out = append(out, *imp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Manager) load() error {
	if m.loaded || m.path == "" {
		return nil
	}
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.loaded = true
		return nil
	}
	if err != nil {
		return err
	}
	var list []*Imported
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parsing %s: %w", m.path, err)
	}
	for _, imp := range list {
		m.imported[imp.Name] = imp
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	if m.path == "" {
		return nil
	}
	list, err := m.List()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o600)
}
