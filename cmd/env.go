package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/accounts"
	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/Mohsinsiddi/rafflekit/internal/deploy"
	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/store"
	"github.com/Mohsinsiddi/rafflekit/internal/verify"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const accountsFile = "accounts.json"

// currentNetwork resolves --network or the configured default.
func currentNetwork() (*chain.Network, error) {
	name := networkFlag
	if name == "" {
		name = cfg.DefaultNetwork
	}
	n, err := chain.NewRegistry().GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("unknown network %q, run `rafflekit network list` to see all networks", name)
	}
	// Callers may tweak the copy (e.g. simulate --fee).
	cp := *n
	return &cp, nil
}

// openEnv opens the selected network. Persistent networks resume from the
// state database and the deployments file. hardhat lives for one command,
// so its fixture (mocks and raffle) is deployed on open.
func openEnv(ctx context.Context, n *chain.Network) (*devnet.Env, error) {
	opts := devnet.Options{
		Network:        n,
		FundEther:      cfg.FundAmountEther,
		FrontEnd:       cfg.FrontEnd,
		RequestTimeout: cfg.RandomnessTimeout(),
		PrivateKey:     secrets.PrivateKey,
		Log:            log,
	}
	if n.Persistent {
		reg := contract.NewRegistry(cfg.ContractsPath())
		if err := reg.Load(); err != nil {
			return nil, fmt.Errorf("loading deployments: %w", err)
		}
		opts.Registry = reg
		opts.DSN = cfg.DatabasePath(n.Name)
	} else {
		opts.DSN = store.MemoryDSN
	}
	if !n.Development {
		v, err := newVerifier(n)
		switch {
		case err == nil:
			opts.Verifier = v
		case errors.Is(err, verify.ErrNoAPIKey):
			log.Info("no explorer key, contracts will not be verified", zap.String("network", n.Name))
		default:
			log.Warn("verification disabled", zap.Error(err))
		}
	}

	env, err := devnet.Open(opts)
	if err != nil {
		return nil, err
	}
	if !n.Persistent {
		if err := env.Deploy(ctx, false, deploy.TagMocks, deploy.TagRaffle); err != nil {
			_ = env.Close()
			return nil, fmt.Errorf("deploying fixture: %w", err)
		}
	}
	return env, nil
}

// withEnv opens the selected network, runs fn and saves the network.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, env *devnet.Env) error) (err error) {
	n, err := currentNetwork()
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	env, err := openEnv(ctx, n)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, env)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newVerifier builds the explorer client for n. The API key comes from
// ETHER_SCAN_KEY or the per-network key in config.
func newVerifier(n *chain.Network) (deploy.Verifier, error) {
	key := secrets.EtherscanKey
	if key == "" {
		key = cfg.GetExplorerKey(n.Name)
	}
	if key == "" {
		return nil, verify.ErrNoAPIKey
	}
	if n.ExplorerAPI == "" {
		return nil, fmt.Errorf("network %s has no explorer API", n.Name)
	}
	code, err := os.ReadFile(cfg.Verify.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("reading contract source: %w", err)
	}
	c, err := verify.New(n.ExplorerAPI, key, verify.Source{
		ContractName:    cfg.Verify.ContractName,
		Code:            string(code),
		CompilerVersion: cfg.Verify.CompilerVersion,
		Optimize:        cfg.Verify.Optimize,
		Runs:            cfg.Verify.Runs,
	}, verify.WithLogger(log.Named("verify")))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// accountManager opens the imported-account metadata. withKeys also opens
// the keystore, which signing lookups need.
func accountManager(withKeys bool) (*accounts.Manager, error) {
	var ks *accounts.Keystore
	if withKeys {
		var err error
		ks, err = accounts.DefaultKeystore(cfg.Dir())
		if err != nil {
			return nil, err
		}
	}
	return accounts.NewManager(filepath.Join(cfg.Dir(), accountsFile), ks), nil
}

// resolveAccount turns a role ("deployer", "player"), a dev account name
// ("account3"), a hex address or an imported account name into an address.
func resolveAccount(name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.Address{}, errors.New("account name is required")
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	if a, err := accounts.Named(name); err == nil {
		return a.Address, nil
	}
	if i, ok := devIndex(name); ok {
		a, err := accounts.Dev(i)
		if err != nil {
			return common.Address{}, err
		}
		return a.Address, nil
	}
	mgr, err := accountManager(true)
	if err != nil {
		return common.Address{}, err
	}
	a, err := mgr.Get(name)
	if err != nil {
		return common.Address{}, err
	}
	return a.Address, nil
}

func devIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "account")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// parseEther parses an ether amount ("0.1"). Empty means nil.
func parseEther(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	wei := chain.Ether(s)
	if wei == nil || wei.Sign() < 0 {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	return wei, nil
}

// parseSeconds parses a whole or fractional number of seconds, or a Go
// duration ("1m30s").
func parseSeconds(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// parseWords parses decimal or 0x-prefixed random words.
func parseWords(in []string) ([]*big.Int, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]*big.Int, 0, len(in))
	for _, s := range in {
		w, ok := new(big.Int).SetString(s, 0)
		if !ok || w.Sign() < 0 {
			return nil, fmt.Errorf("invalid random word %q", s)
		}
		out = append(out, w)
	}
	return out, nil
}
