package contract

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// ParseABI decodes a raw ABI JSON array.
func ParseABI(data []byte) ([]ABIEntry, error) {
	var entries []ABIEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '{' {
			return nil, fmt.Errorf("file is a JSON object, not an ABI array; a Hardhat artifact must have an \"abi\" key")
		}
		return nil, fmt.Errorf("invalid ABI JSON: %w", err)
	}
	return entries, nil
}

// LoadFromArtifact loads an ABI from either a raw ABI array or a
// Hardhat/Foundry artifact ({"abi":[...], ...}).
func LoadFromArtifact(path string) ([]ABIEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read ABI file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ABI file is empty: %s", path)
	}

	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if json.Unmarshal(data, &artifact) == nil && len(artifact.ABI) > 1 && artifact.ABI[0] == '[' {
		data = artifact.ABI
	}

	entries, err := ParseABI(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(entries); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Validate checks that entries form an ABI go-ethereum can bind: at least
// one function, event or constructor, and only known Solidity types.
func Validate(entries []ABIEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("ABI is empty")
	}
	hasCallable := false
	for _, e := range entries {
		if e.Type == "function" || e.Type == "event" || e.Type == "constructor" {
			hasCallable = true
			break
		}
	}
	if !hasCallable {
		return fmt.Errorf("ABI has %d entries but none are functions or events", len(entries))
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if _, err := abi.JSON(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("invalid ABI: %w", err)
	}
	return nil
}

// FormatJSON renders entries as a compact ABI JSON array after validating it.
// This is the document written to the front-end's abi.json.
func FormatJSON(entries []ABIEntry) ([]byte, error) {
	if err := Validate(entries); err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}

// Signature returns the canonical signature, e.g. "getPlayer(uint256)".
func Signature(e ABIEntry) string {
	types := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		types[i] = p.Type
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector is the 4-byte function (or custom error) selector.
func Selector(e ABIEntry) string {
	return "0x" + hex.EncodeToString(keccak([]byte(Signature(e)))[:4])
}

// EventTopic is topic[0] of a log emitted by the event.
func EventTopic(e ABIEntry) common.Hash {
	return common.BytesToHash(keccak([]byte(Signature(e))))
}

// Find returns the first entry with the given type and name.
func Find(entries []ABIEntry, typ, name string) (ABIEntry, bool) {
	for _, e := range entries {
		if e.Type == typ && e.Name == name {
			return e, true
		}
	}
	return ABIEntry{}, false
}

// DeploymentAddress is the address a CREATE from deployer at nonce lands on.
func DeploymentAddress(deployer common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(deployer, nonce)
}

// DeploymentTxHash derives a stable transaction hash for a simulated
// deployment so that registry entries are reproducible.
func DeploymentTxHash(deployer common.Address, nonce uint64, name string) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(deployer.Bytes(), n[:], []byte(name))
}

func keccak(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}
