package accounts

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/99designs/keyring"
)

const keychainService = "rafflekit"

// Keystore keeps imported private keys out of the config directory.
type Keystore struct {
	ring keyring.Keyring
}

// NewKeystore wraps an opened keyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

// DefaultKeystore opens the OS keychain, falling back to an encrypted file
// keyring under dir. The file password comes from RAFFLEKIT_KEYRING_PASSWORD.
func DefaultKeystore(dir string) (*Keystore, error) {
	fileCfg := keyring.Config{
		ServiceName:      keychainService,
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          filepath.Join(dir, "keyring"),
		FilePasswordFunc: keyring.FixedStringPrompt(os.Getenv("RAFFLEKIT_KEYRING_PASSWORD")),
	}

	cfg := fileCfg
	cfg.KeychainTrustApplication = true
	cfg.AllowedBackends = nil
	// Headless Linux has no keychain; keep the backends that can run there.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, err = keyring.Open(fileCfg)
		if err != nil {
			return nil, fmt.Errorf("opening keyring: %w", err)
		}
	}
	return &Keystore{ring: ring}, nil
}

// Store saves a private key for an account name and returns its reference.
func (k *Keystore) Store(name, hexKey string) (string, error) {
	ref := keychainService + "." + name
	err := k.ring.Set(keyring.Item{
		Key:   ref,
		Data:  []byte(hexKey),
		Label: "rafflekit account " + name,
	})
	if err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

// Retrieve fetches a private key by its reference.
func (k *Keystore) Retrieve(ref string) (string, error) {
	item, err := k.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key.
func (k *Keystore) Delete(ref string) error {
	return k.ring.Remove(ref)
}
