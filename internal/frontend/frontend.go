// Package frontend exports the deployed raffle's address and ABI into a
// web front-end project.
package frontend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// Addresses maps a chain id (decimal string) to every address deployed there.
type Addresses map[string][]string

// ReadAddresses loads the address map at path. A missing file is an empty map.
func ReadAddresses(path string) (Addresses, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Addresses{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := Addresses{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, nil
}

// UpdateContractAddress appends addr under chainID unless it is already
// listed. It reports whether the file changed.
func UpdateContractAddress(path string, chainID int64, addr common.Address) (bool, error) {
	addrs, err := ReadAddresses(path)
	if err != nil {
		return false, err
	}
	key := strconv.FormatInt(chainID, 10)
	if slices.Contains(addrs[key], addr.Hex()) {
		return false, nil
	}
	addrs[key] = append(addrs[key], addr.Hex())

	data, err := json.Marshal(addrs)
	if err != nil {
		return false, err
	}
	return true, write(path, data)
}

// UpdateABI overwrites path with the ABI in JSON form.
func UpdateABI(path string, entries []contract.ABIEntry) error {
	data, err := contract.FormatJSON(entries)
	if err != nil {
		return err
	}
	return write(path, data)
}

func write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
