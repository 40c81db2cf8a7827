package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrContractNotFound is returned when a deployment is not in the registry.
var ErrContractNotFound = errors.New("contract not found")

// ABIEntry is one ABI entry (function, event, error, constructor).
type ABIEntry struct {
	Name            string     `json:"name,omitempty"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs,omitempty"`
	StateMutability string     `json:"stateMutability,omitempty"`
	Anonymous       bool       `json:"anonymous,omitempty"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed,omitempty"`
}

// IsReadFunction returns true if the function is read-only (view/pure).
func (e ABIEntry) IsReadFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "view" || e.StateMutability == "pure")
}

// IsWriteFunction returns true if the function modifies state.
func (e ABIEntry) IsWriteFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "nonpayable" || e.StateMutability == "payable")
}

// Entry is one deployed contract.
type Entry struct {
	Name       string         `json:"name"`
	Network    string         `json:"network"`
	ChainID    int64          `json:"chain_id"`
	Address    common.Address `json:"address"`
	Deployer   common.Address `json:"deployer"`
	ABI        []ABIEntry     `json:"abi"`
	Args       []string       `json:"args,omitempty"`
	TxHash     common.Hash    `json:"tx_hash"`
	Block      uint64         `json:"block"`
	DeployedAt time.Time      `json:"deployed_at"`
}

// Registry stores and retrieves deployments, keyed by name@network.
type Registry struct {
	mu        sync.RWMutex
	path      string
	contracts map[string]*Entry
}

// NewRegistry creates a Registry backed by a JSON file. An empty path keeps
// the registry in memory only.
func NewRegistry(path string) *Registry {
	return &Registry{
		path:      path,
		contracts: make(map[string]*Entry),
	}
}

// Load reads stored deployments from disk.
func (r *Registry) Load() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", r.path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range entries {
		e := &entries[i]
		r.contracts[key(e.Name, e.Network)] = e
	}
	return nil
}

// Save writes all deployments to disk.
func (r *Registry) Save() error {
	if r.path == "" {
		return nil
	}
	all := r.All()
	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		entries = append(entries, *e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}

// Add adds or replaces a deployment.
func (r *Registry) Add(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[key(e.Name, e.Network)] = e
}

// Get returns a deployment by name and network.
func (r *Registry) Get(name, network string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.contracts[key(name, network)]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrContractNotFound, name, network)
	}
	return e, nil
}

// GetByName returns all deployments of a contract across networks.
func (r *Registry) GetByName(name string) []*Entry {
	var out []*Entry
	for _, e := range r.All() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Network returns all deployments on one network.
func (r *Registry) Network(network string) []*Entry {
	var out []*Entry
	for _, e := range r.All() {
		if e.Network == network {
			out = append(out, e)
		}
	}
	return out
}

// All returns every deployment sorted by network then name.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.contracts))
	for _, e := range r.contracts {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Remove deletes a deployment.
func (r *Registry) Remove(name, network string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(name, network)
	if _, ok := r.contracts[k]; !ok {
		return fmt.Errorf("%w: %s on %s", ErrContractNotFound, name, network)
	}
	delete(r.contracts, k)
	return nil
}

// Reset drops every deployment on a network.
func (r *Registry) Reset(network string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.contracts {
		if e.Network == network {
			delete(r.contracts, k)
		}
	}
}

func key(name, network string) string {
	return name + "@" + network
}
