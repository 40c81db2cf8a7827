package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DefaultNetwork)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500, cfg.KeeperInterval)
	assert.Equal(t, 200, cfg.FulfillDelay)
	assert.Equal(t, 300, cfg.RequestTimeout)
	assert.Equal(t, 10000, cfg.FundAmountEther)
	assert.False(t, cfg.FrontEnd.Update)
	assert.Equal(t, "../lottery-front-end/constants/contract.json", cfg.FrontEnd.AddressesFile)
	assert.Equal(t, "../lottery-front-end/constants/abi.json", cfg.FrontEnd.ABIFile)
	assert.Equal(t, "contracts/Raffle.sol", cfg.Verify.SourceFile)
	assert.Equal(t, "Raffle", cfg.Verify.ContractName)
	assert.True(t, cfg.Verify.Optimize)
	assert.Equal(t, 200, cfg.Verify.Runs)
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultNetwork = "hardhat"
	cfg.LogLevel = "debug"
	cfg.KeeperInterval = 50
	cfg.FrontEnd.Update = true
	cfg.FrontEnd.ABIFile = "/tmp/abi.json"

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "hardhat", reloaded.DefaultNetwork)
	assert.Equal(t, "debug", reloaded.LogLevel)
	assert.Equal(t, 50, reloaded.KeeperInterval)
	assert.True(t, reloaded.FrontEnd.Update)
	assert.Equal(t, "/tmp/abi.json", reloaded.FrontEnd.ABIFile)
	// untouched keys keep their defaults
	assert.Equal(t, 300, reloaded.RequestTimeout)
}

func TestEnvOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RAFFLEKIT_DEFAULT_NETWORK", "sepolia")
	t.Setenv("RAFFLEKIT_FRONT_END_UPDATE", "true")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sepolia", cfg.DefaultNetwork)
	assert.True(t, cfg.FrontEnd.Update)
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestConfigPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "deployments.json"), cfg.ContractsPath())
	assert.Equal(t, filepath.Join(dir, "localhost-devnet.db"), cfg.DatabasePath("localhost"))
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.DefaultNetwork)
}

func TestExplorerKeys(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	assert.Equal(t, "", cfg.GetExplorerKey("sepolia"))
	cfg.SetExplorerKey("sepolia", "abc")
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc", reloaded.GetExplorerKey("sepolia"))
}

func TestDurations(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	assert.Equal(t, 500*time.Millisecond, cfg.KeeperEvery())
	assert.Equal(t, 200*time.Millisecond, cfg.OracleDelay())
	assert.Equal(t, 5*time.Minute, cfg.RandomnessTimeout())
}

func TestLoadEnvAndSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ETHER_SCAN_KEY=from-file\nUPDATE_FRONT_END=yes\n"), 0o600))

	t.Setenv("ETHER_SCAN_KEY", "")
	require.NoError(t, os.Unsetenv("ETHER_SCAN_KEY"))
	t.Setenv("UPDATE_FRONT_END", "")
	require.NoError(t, os.Unsetenv("UPDATE_FRONT_END"))
	t.Setenv("PRIVATE_KEY", "0xabc")

	require.NoError(t, config.LoadEnv(path))
	s := config.ReadSecrets()
	assert.Equal(t, "from-file", s.EtherscanKey)
	assert.Equal(t, "0xabc", s.PrivateKey)
	assert.True(t, s.UpdateFrontEnd)
}

func TestLoadEnvMissingFile(t *testing.T) {
	assert.NoError(t, config.LoadEnv(filepath.Join(t.TempDir(), "nope.env")))
}
