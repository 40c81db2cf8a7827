package config

// Config holds all rafflekit configuration.
type Config struct {
	DefaultNetwork string `json:"default_network" mapstructure:"default_network"`
	LogLevel       string `json:"log_level"       mapstructure:"log_level"` // "debug" | "info" | "warn" | "error"
	LogFile        string `json:"log_file"        mapstructure:"log_file"`
	ErrorLogFile   string `json:"error_log_file"  mapstructure:"error_log_file"`

	KeeperInterval  int `json:"keeper_interval"   mapstructure:"keeper_interval"`   // milliseconds between upkeep checks
	FulfillDelay    int `json:"fulfill_delay"     mapstructure:"fulfill_delay"`     // milliseconds before the mock oracle answers
	RequestTimeout  int `json:"request_timeout"   mapstructure:"request_timeout"`   // seconds before a request may be replaced
	FundAmountEther int `json:"fund_amount_ether" mapstructure:"fund_amount_ether"` // genesis balance of each dev account

	FrontEnd     FrontEnd          `json:"front_end"     mapstructure:"front_end"`
	Verify       Verify            `json:"verify"        mapstructure:"verify"`
	ExplorerKeys map[string]string `json:"explorer_keys" mapstructure:"explorer_keys"` // network -> Etherscan API key

	// internal: config dir path used for Save()
	configDir string
}

// FrontEnd controls the address/ABI export for the web front-end.
type FrontEnd struct {
	Update        bool   `json:"update"         mapstructure:"update"`
	AddressesFile string `json:"addresses_file" mapstructure:"addresses_file"`
	ABIFile       string `json:"abi_file"       mapstructure:"abi_file"`
}

// Verify describes the source submitted to the block explorer.
type Verify struct {
	SourceFile      string `json:"source_file"      mapstructure:"source_file"`
	ContractName    string `json:"contract_name"    mapstructure:"contract_name"`
	CompilerVersion string `json:"compiler_version" mapstructure:"compiler_version"`
	Optimize        bool   `json:"optimize"         mapstructure:"optimize"`
	Runs            int    `json:"runs"             mapstructure:"runs"`
}

// Secrets are read from the process environment (and .env). They are never
// written to config.json.
type Secrets struct {
	PrivateKey       string
	SepoliaURL       string
	RopstenURL       string
	EtherscanKey     string
	CoinmarketcapKey string
	UpdateFrontEnd   bool
}
