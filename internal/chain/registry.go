package chain

import (
	"errors"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds the deploy-time metadata for one network.
type Network struct {
	Name               string `json:"name"`
	DisplayName        string `json:"display_name"`
	ChainID            int64  `json:"chain_id"`
	RPCURL             string `json:"rpc_url,omitempty"`
	RPCEnv             string `json:"rpc_env,omitempty"` // env var overriding RPCURL
	BlockConfirmations uint64 `json:"block_confirmations"`
	Development        bool   `json:"development"`
	// Persistent networks keep their state between runs (localhost node).
	Persistent bool   `json:"persistent"`
	Explorer   string `json:"explorer,omitempty"`
	// Etherscan-compatible API endpoint used for verification.
	ExplorerAPI string `json:"explorer_api,omitempty"`

	Raffle RaffleParams `json:"raffle"`
}

// RaffleParams are the constructor arguments the deploy script passes to
// the raffle on a given network.
type RaffleParams struct {
	EntranceFee      *big.Int       `json:"entrance_fee"`
	Interval         time.Duration  `json:"interval"`
	GasLane          common.Hash    `json:"gas_lane"`
	CallbackGasLimit uint32         `json:"callback_gas_limit"`
	SubscriptionID   uint64         `json:"subscription_id,omitempty"`
	VRFCoordinator   common.Address `json:"vrf_coordinator,omitempty"`
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
}

// NewRegistry returns the registry of every known network.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// GetByName finds a network by name (e.g. "hardhat", "sepolia").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// DevelopmentChains lists the networks that get mocks deployed.
func (r *Registry) DevelopmentChains() []string {
	var out []string
	for _, n := range r.networks {
		if n.Development {
			out = append(out, n.Name)
		}
	}
	return out
}

// IsDevelopment reports whether name is a development chain.
func (r *Registry) IsDevelopment(name string) bool {
	return slices.Contains(r.DevelopmentChains(), strings.ToLower(name))
}

// Ether converts a decimal ether amount (e.g. "0.01") to wei. It returns nil
// for anything but plain decimal notation with at most 18 fractional digits.
func Ether(s string) *big.Int {
	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if whole == "" && frac == "" || len(frac) > etherDecimals || !isDigits(whole) || !isDigits(frac) {
		return nil
	}
	wei, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", etherDecimals-len(frac)), 10)
	if !ok {
		return nil
	}
	if neg {
		wei.Neg(wei)
	}
	return wei
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormatEther renders wei as ether with up to 18 decimals, trailing zeros trimmed.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)
	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	out := whole.String()
	if frac.Sign() != 0 {
		fs := frac.String()
		fs = strings.Repeat("0", 18-len(fs)) + fs
		out += "." + strings.TrimRight(fs, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

// --- network data ---

var (
	sepoliaGasLane = common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c")
	ropstenGasLane = common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc")
)

func allNetworks() []Network {
	devParams := RaffleParams{
		EntranceFee:      Ether("0.01"),
		Interval:         30 * time.Second,
		GasLane:          sepoliaGasLane,
		CallbackGasLimit: 500_000,
	}
	return []Network{
		{
			Name: "hardhat", DisplayName: "Hardhat (in-process)", ChainID: 31337,
			BlockConfirmations: 1, Development: true,
			Raffle: devParams,
		},
		{
			Name: "localhost", DisplayName: "Localhost node", ChainID: 31337,
			RPCURL:             "http://127.0.0.1:8545/",
			BlockConfirmations: 1, Development: true, Persistent: true,
			Raffle: devParams,
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111,
			RPCEnv:             "SEPOLIA_URL",
			BlockConfirmations: 6, Persistent: true,
			Explorer:    "https://sepolia.etherscan.io",
			ExplorerAPI: "https://api-sepolia.etherscan.io/api",
			Raffle: RaffleParams{
				EntranceFee:      Ether("0.01"),
				Interval:         30 * time.Second,
				GasLane:          sepoliaGasLane,
				CallbackGasLimit: 500_000,
				SubscriptionID:   1,
				VRFCoordinator:   common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625"),
			},
		},
		{
			Name: "ropsten", DisplayName: "Ropsten", ChainID: 3,
			RPCEnv:             "ROPSTEN_URL",
			BlockConfirmations: 6, Persistent: true,
			Explorer:    "https://ropsten.etherscan.io",
			ExplorerAPI: "https://api-ropsten.etherscan.io/api",
			Raffle: RaffleParams{
				EntranceFee:      Ether("0.1"),
				Interval:         30 * time.Second,
				GasLane:          ropstenGasLane,
				CallbackGasLimit: 500_000,
				SubscriptionID:   1,
				VRFCoordinator:   common.HexToAddress("0x6168499c0cFfCaCD319c818142124B7A15E857ab"),
			},
		},
	}
}
