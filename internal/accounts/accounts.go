package accounts

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Named account roles.
const (
	Deployer = "deployer"
	Player   = "player"
)

// Errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrInvalidKey      = errors.New("invalid private key")
)

// namedIndex maps a role to its slot in the development key set.
var namedIndex = map[string]int{
	Deployer: 0,
	Player:   1,
}

// devKeys is the public, well-known development mnemonic key set
// ("test test ... junk"). Never fund these on a live network.
var devKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6",
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a",
	"8b3a350cf5c34c9194ca85829a2df0ec3153be0318b5e2d3348e872092edffba",
	"92db14e403b83dfe3df233f83dfa3a0d7096f21ca9b0d6d6b8d88b2b4ec1564e",
	"4bbbf85ce3377467afe5d46f804f221813b2bb87f24d81f60f1fcdbf7cbf4356",
	"dbda1821b80551c9d65939329250298aa3472ba22feea921c0cf5d620ea67b97",
	"2a871d0798f97d79848a013d4936a73bf4cc922c825d33c1cf7073dff6d409c6",
}

// Account is an address with its signing key.
type Account struct {
	Name    string
	Index   int // -1 for imported keys
	Address common.Address
	key     *ecdsa.PrivateKey
}

// PrivateKey returns the account's key.
func (a Account) PrivateKey() *ecdsa.PrivateKey { return a.key }

// FromHex builds an account from a hex private key (0x prefix optional).
func FromHex(name, hexKey string) (Account, error) {
	key, err := crypto.HexToECDSA(stripHexPrefix(strings.TrimSpace(hexKey)))
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Account{
		Name:    name,
		Index:   -1,
		Address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}, nil
}

// DevCount is the number of development accounts available.
func DevCount() int { return len(devKeys) }

// Dev returns the i-th development account. Indices 0 and 1 carry their
// role names; the rest are named "account<i>".
func Dev(i int) (Account, error) {
	if i < 0 || i >= len(devKeys) {
		return Account{}, fmt.Errorf("%w: dev index %d of %d", ErrAccountNotFound, i, len(devKeys))
	}
	name := fmt.Sprintf("account%d", i)
	for role, idx := range namedIndex {
		if idx == i {
			name = role
		}
	}
	a, err := FromHex(name, devKeys[i])
	if err != nil {
		return Account{}, err
	}
	a.Index = i
	return a, nil
}

// DevAccounts returns the first n development accounts.
func DevAccounts(n int) ([]Account, error) {
	if n > len(devKeys) {
		n = len(devKeys)
	}
	out := make([]Account, 0, n)
	for i := 0; i < n; i++ {
		a, err := Dev(i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Named returns the development account for a role ("deployer", "player").
func Named(role string) (Account, error) {
	i, ok := namedIndex[role]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrAccountNotFound, role)
	}
	return Dev(i)
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
