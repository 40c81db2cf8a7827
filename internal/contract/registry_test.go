package contract_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	raffleAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	mockAddr   = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func TestNewRegistryEmpty(t *testing.T) {
	reg := contract.NewRegistry(filepath.Join(t.TempDir(), "deployments.json"))
	assert.Empty(t, reg.All())
}

func TestRegistryAddAndGet(t *testing.T) {
	reg := contract.NewRegistry(filepath.Join(t.TempDir(), "deployments.json"))

	reg.Add(&contract.Entry{
		Name:    "Raffle",
		Network: "localhost",
		ChainID: 31337,
		Address: raffleAddr,
		ABI:     []contract.ABIEntry{{Name: "enterRaffle", Type: "function"}},
	})

	got, err := reg.Get("Raffle", "localhost")
	require.NoError(t, err)
	assert.Equal(t, "Raffle", got.Name)
	assert.Equal(t, int64(31337), got.ChainID)
	assert.Equal(t, raffleAddr, got.Address)
	assert.Len(t, got.ABI, 1)
}

func TestRegistryGetNotFound(t *testing.T) {
	reg := contract.NewRegistry(filepath.Join(t.TempDir(), "deployments.json"))

	_, err := reg.Get("Raffle", "sepolia")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
}

func TestRegistryGetDifferentNetwork(t *testing.T) {
	reg := contract.NewRegistry(filepath.Join(t.TempDir(), "deployments.json"))
	reg.Add(&contract.Entry{Name: "Raffle", Network: "localhost", Address: raffleAddr})

	_, err := reg.Get("Raffle", "sepolia")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
}

func TestRegistryAddOverwritesExisting(t *testing.T) {
	reg := contract.NewRegistry(filepath.Join(t.TempDir(), "deployments.json"))

	reg.Add(&contract.Entry{Name: "Raffle", Network: "localhost", Address: mockAddr})
	reg.Add(&contract.Entry{Name: "Raffle", Network: "localhost", Address: raffleAddr})

	got, err := reg.Get("Raffle", "localhost")
	require.NoError(t, err)
	assert.Equal(t, raffleAddr, got.Address)
	assert.Len(t, reg.All(), 1)
}

func TestRegistryGetByNameAndNetwork(t *testing.T) {
	reg := contract.NewRegistry("")

	reg.Add(&contract.Entry{Name: "Raffle", Network: "localhost"})
	reg.Add(&contract.Entry{Name: "Raffle", Network: "sepolia"})
	reg.Add(&contract.Entry{Name: "VRFCoordinatorV2Mock", Network: "localhost"})

	assert.Len(t, reg.GetByName("Raffle"), 2)
	assert.Empty(t, reg.GetByName("SampleNft"))

	local := reg.Network("localhost")
	require.Len(t, local, 2)
	assert.Equal(t, "Raffle", local[0].Name)
	assert.Equal(t, "VRFCoordinatorV2Mock", local[1].Name)
}

func TestRegistryAllSorted(t *testing.T) {
	reg := contract.NewRegistry("")
	reg.Add(&contract.Entry{Name: "b", Network: "sepolia"})
	reg.Add(&contract.Entry{Name: "z", Network: "localhost"})
	reg.Add(&contract.Entry{Name: "a", Network: "localhost"})

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "z", "b"}, []string{all[0].Name, all[1].Name, all[2].Name})
}

func TestRegistryRemove(t *testing.T) {
	reg := contract.NewRegistry("")
	reg.Add(&contract.Entry{Name: "Raffle", Network: "localhost"})
	reg.Add(&contract.Entry{Name: "Raffle", Network: "hardhat"})

	require.NoError(t, reg.Remove("Raffle", "localhost"))
	_, err := reg.Get("Raffle", "localhost")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)

	_, err = reg.Get("Raffle", "hardhat")
	assert.NoError(t, err)

	assert.ErrorIs(t, reg.Remove("ghost", "localhost"), contract.ErrContractNotFound)
}

func TestRegistryReset(t *testing.T) {
	reg := contract.NewRegistry("")
	reg.Add(&contract.Entry{Name: "Raffle", Network: "localhost"})
	reg.Add(&contract.Entry{Name: "VRFCoordinatorV2Mock", Network: "localhost"})
	reg.Add(&contract.Entry{Name: "Raffle", Network: "sepolia"})

	reg.Reset("localhost")
	assert.Empty(t, reg.Network("localhost"))
	assert.Len(t, reg.Network("sepolia"), 1)
}

func TestRegistryLoadNonExistentFile(t *testing.T) {
	reg := contract.NewRegistry(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.NoError(t, reg.Load())
	assert.Empty(t, reg.All())
}

func TestRegistryLoadCorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(path, []byte("{invalid json"), 0o600))

	assert.Error(t, contract.NewRegistry(path).Load())
}

func TestRegistrySaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	deployedAt := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	reg := contract.NewRegistry(path)
	reg.Add(&contract.Entry{
		Name:       "Raffle",
		Network:    "localhost",
		ChainID:    31337,
		Address:    raffleAddr,
		Deployer:   common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		ABI:        contract.GetBuiltinABI(contract.RaffleName),
		Args:       []string{mockAddr.Hex(), "1"},
		TxHash:     common.HexToHash("0x01"),
		Block:      3,
		DeployedAt: deployedAt,
	})
	reg.Add(&contract.Entry{Name: "VRFCoordinatorV2Mock", Network: "localhost", Address: mockAddr})
	require.NoError(t, reg.Save())

	reg2 := contract.NewRegistry(path)
	require.NoError(t, reg2.Load())
	assert.Len(t, reg2.All(), 2)

	got, err := reg2.Get("Raffle", "localhost")
	require.NoError(t, err)
	assert.Equal(t, raffleAddr, got.Address)
	assert.Equal(t, uint64(3), got.Block)
	assert.Equal(t, []string{mockAddr.Hex(), "1"}, got.Args)
	assert.True(t, deployedAt.Equal(got.DeployedAt))
	assert.Equal(t, contract.GetBuiltinABI(contract.RaffleName), got.ABI)
}

func TestRegistrySaveEmptyRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")

	require.NoError(t, contract.NewRegistry(path).Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []contract.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Empty(t, entries)
}

func TestRegistryInMemoryNoFile(t *testing.T) {
	reg := contract.NewRegistry("")
	reg.Add(&contract.Entry{Name: "Raffle", Network: "hardhat"})
	assert.NoError(t, reg.Save())
	assert.NoError(t, reg.Load())
}

func TestABIEntryIsReadFunction(t *testing.T) {
	tests := []struct {
		name     string
		entry    contract.ABIEntry
		expected bool
	}{
		{"view function", contract.ABIEntry{Type: "function", StateMutability: "view"}, true},
		{"pure function", contract.ABIEntry{Type: "function", StateMutability: "pure"}, true},
		{"nonpayable function", contract.ABIEntry{Type: "function", StateMutability: "nonpayable"}, false},
		{"payable function", contract.ABIEntry{Type: "function", StateMutability: "payable"}, false},
		{"event type", contract.ABIEntry{Type: "event"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entry.IsReadFunction())
		})
	}
}

func TestABIEntryIsWriteFunction(t *testing.T) {
	tests := []struct {
		name     string
		entry    contract.ABIEntry
		expected bool
	}{
		{"nonpayable function", contract.ABIEntry{Type: "function", StateMutability: "nonpayable"}, true},
		{"payable function", contract.ABIEntry{Type: "function", StateMutability: "payable"}, true},
		{"view function", contract.ABIEntry{Type: "function", StateMutability: "view"}, false},
		{"constructor", contract.ABIEntry{Type: "constructor", StateMutability: "nonpayable"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entry.IsWriteFunction())
		})
	}
}
