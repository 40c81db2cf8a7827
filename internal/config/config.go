package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultNetwork        = "localhost"
	defaultLogLevel       = "info"
	defaultKeeperInterval = 500
	defaultFulfillDelay   = 200
	defaultRequestTimeout = 300
	defaultFundEther      = 10000

	defaultAddressesFile = "../lottery-front-end/constants/contract.json"
	defaultABIFile       = "../lottery-front-end/constants/abi.json"

	configFile    = "config.json"
	contractsFile = "deployments.json"
	databaseFile  = "devnet.db"
	envPrefix     = "RAFFLEKIT"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.rafflekit.
// Any key can be overridden with a RAFFLEKIT_* environment variable, e.g.
// RAFFLEKIT_DEFAULT_NETWORK or RAFFLEKIT_FRONT_END_UPDATE.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".rafflekit")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.configDir = dir
	if cfg.ExplorerKeys == nil {
		cfg.ExplorerKeys = make(map[string]string)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// ContractsPath is the deployment registry file.
func (c *Config) ContractsPath() string {
	return filepath.Join(c.configDir, contractsFile)
}

// DatabasePath is the sqlite file holding the state of persistent networks.
func (c *Config) DatabasePath(network string) string {
	return filepath.Join(c.configDir, network+"-"+databaseFile)
}

// SetExplorerKey stores the verification API key for a network.
func (c *Config) SetExplorerKey(network, key string) {
	if c.ExplorerKeys == nil {
		c.ExplorerKeys = make(map[string]string)
	}
	c.ExplorerKeys[network] = key
}

// GetExplorerKey returns the verification API key for a network, or "".
func (c *Config) GetExplorerKey(network string) string {
	return c.ExplorerKeys[network]
}

// KeeperEvery is the upkeep polling period.
func (c *Config) KeeperEvery() time.Duration {
	return time.Duration(c.KeeperInterval) * time.Millisecond
}

// OracleDelay is how long the mock oracle waits before answering.
func (c *Config) OracleDelay() time.Duration {
	return time.Duration(c.FulfillDelay) * time.Millisecond
}

// RandomnessTimeout is the age after which a request may be replaced.
func (c *Config) RandomnessTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// LoadEnv loads a .env file into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ReadSecrets collects deploy secrets from the environment. Any non-empty
// UPDATE_FRONT_END enables the front-end export.
func ReadSecrets() Secrets {
	return Secrets{
		PrivateKey:       os.Getenv("PRIVATE_KEY"),
		SepoliaURL:       os.Getenv("SEPOLIA_URL"),
		RopstenURL:       os.Getenv("ROPSTEN_URL"),
		EtherscanKey:     os.Getenv("ETHER_SCAN_KEY"),
		CoinmarketcapKey: os.Getenv("COINMARKETCAP_KEY"),
		UpdateFrontEnd:   os.Getenv("UPDATE_FRONT_END") != "",
	}
}

// --- helpers ---

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_network", defaultNetwork)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("error_log_file", "")
	v.SetDefault("keeper_interval", defaultKeeperInterval)
	v.SetDefault("fulfill_delay", defaultFulfillDelay)
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("fund_amount_ether", defaultFundEther)
	v.SetDefault("front_end.update", false)
	v.SetDefault("front_end.addresses_file", defaultAddressesFile)
	v.SetDefault("front_end.abi_file", defaultABIFile)
	v.SetDefault("explorer_keys", map[string]string{})
	v.SetDefault("verify.source_file", "contracts/Raffle.sol")
	v.SetDefault("verify.contract_name", "Raffle")
	v.SetDefault("verify.compiler_version", "v0.8.7+commit.e28d00a7")
	v.SetDefault("verify.optimize", true)
	v.SetDefault("verify.runs", 200)
}
