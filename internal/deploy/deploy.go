// Package deploy runs the tagged deploy scripts that bring a network from
// empty to a live raffle: mocks, the raffle itself and the front-end export.
package deploy

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/accounts"
	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/config"
	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/ledger"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Tags.
const (
	TagAll      = "all"
	TagMocks    = "mocks"
	TagRaffle   = "raffle"
	TagFrontend = "frontend"
)

// Verifier publishes contract source to a block explorer.
type Verifier interface {
	Verify(ctx context.Context, address common.Address, constructorArgs []byte) error
}

// Env is what the scripts deploy into. The scripts fill Coordinator and
// Raffle.
type Env struct {
	Network  *chain.Network
	Clock    *chain.Clock
	Ledger   *ledger.Ledger
	Emitter  events.Emitter
	Registry *contract.Registry
	Deployer accounts.Account
	// Nonces is shared with the caller; every transaction bumps its sender.
	Nonces map[common.Address]uint64

	FrontEnd       config.FrontEnd
	Verifier       Verifier // nil skips verification
	RequestTimeout time.Duration
	Log            *zap.Logger

	Coordinator *vrf.Coordinator
	Raffle      *raffle.Raffle
}

// Script is one deploy step.
type Script struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, e *Env) error
}

// Scripts returns every script in execution order.
func Scripts() []Script {
	return []Script{
		{Name: "00-deploy-mocks", Tags: []string{TagAll, TagMocks}, Run: deployMocks},
		{Name: "01-deploy-raffle", Tags: []string{TagAll, TagRaffle}, Run: deployRaffle},
		{Name: "02-update-front-end", Tags: []string{TagAll, TagFrontend}, Run: updateFrontEnd},
	}
}

// Select returns the scripts carrying any of tags, in order. No tags means
// TagAll.
func Select(tags ...string) []Script {
	if len(tags) == 0 {
		tags = []string{TagAll}
	}
	var out []Script
	for _, s := range Scripts() {
		for _, t := range tags {
			if slices.Contains(s.Tags, t) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Run executes the scripts selected by tags against e.
func Run(ctx context.Context, e *Env, tags ...string) error {
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	if e.Nonces == nil {
		e.Nonces = make(map[common.Address]uint64)
	}
	scripts := Select(tags...)
	if len(scripts) == 0 {
		return fmt.Errorf("no deploy script matches tags %v", tags)
	}
	for _, s := range scripts {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.Log.Debug("running deploy script", zap.String("script", s.Name))
		if err := s.Run(ctx, e); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

// Transact mines one block for a transaction from sender and returns the
// nonce it used.
func (e *Env) Transact(sender common.Address) (nonce, block uint64) {
	nonce = e.Nonces[sender]
	e.Nonces[sender] = nonce + 1
	block, _ = e.Clock.Mine()
	return nonce, block
}

// deployContract records a deployment of name and waits out the network's
// block confirmations.
func (e *Env) deployContract(name string, args ...string) *contract.Entry {
	from := e.Deployer.Address
	nonce, block := e.Transact(from)
	entry := &contract.Entry{
		Name:       name,
		Network:    e.Network.Name,
		ChainID:    e.Network.ChainID,
		Address:    contract.DeploymentAddress(from, nonce),
		Deployer:   from,
		ABI:        contract.GetBuiltinABI(name),
		Args:       args,
		TxHash:     contract.DeploymentTxHash(from, nonce, name),
		Block:      block,
		DeployedAt: e.Clock.Now(),
	}
	if c := e.Network.BlockConfirmations; c > 1 {
		e.Clock.MineN(c - 1)
	}
	e.Registry.Add(entry)
	e.Log.Info("deployed contract",
		zap.String("contract", name),
		zap.String("address", entry.Address.Hex()),
		zap.Uint64("block", block),
		zap.String("network", e.Network.Name))
	return entry
}

func bigString(b *big.Int) string {
	if b == nil {
		return "0"
	}
	return b.String()
}
