package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/config"
	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/Mohsinsiddi/rafflekit/internal/frontend"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/verify"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrNoCoordinator is returned when the raffle is deployed on a development
// chain before the mocks.
var ErrNoCoordinator = errors.New("VRF coordinator not deployed, run the mocks script first")

func deployMocks(_ context.Context, e *Env) error {
	if !e.Network.Development {
		e.Log.Info("not a development chain, skipping mocks", zap.String("network", e.Network.Name))
		return nil
	}
	if e.Coordinator != nil {
		e.Log.Info("reusing VRF coordinator", zap.String("address", e.Coordinator.Address().Hex()))
		return nil
	}
	baseFee := big.NewInt(config.MockBaseFee)
	gasPrice := big.NewInt(config.MockGasPriceLink)

	e.Log.Info("local network detected, deploying mocks")
	entry := e.deployContract(contract.CoordinatorMockName, baseFee.String(), gasPrice.String())
	e.Coordinator = vrf.NewCoordinator(baseFee, gasPrice, e.Emitter,
		vrf.WithAddress(entry.Address),
		vrf.WithLogger(e.Log.Named("vrf")))
	e.Log.Info("mocks deployed")
	return nil
}

func deployRaffle(ctx context.Context, e *Env) error {
	if e.Raffle != nil {
		e.Log.Info("reusing raffle", zap.String("address", e.Raffle.Address().Hex()))
		return nil
	}
	params := e.Network.Raffle
	if e.Coordinator == nil {
		if e.Network.Development {
			return ErrNoCoordinator
		}
		// Live networks are rehearsed against a stand-in at the real
		// coordinator address.
		e.Coordinator = vrf.NewCoordinator(big.NewInt(config.MockBaseFee), big.NewInt(config.MockGasPriceLink), e.Emitter,
			vrf.WithAddress(params.VRFCoordinator),
			vrf.WithLogger(e.Log.Named("vrf")))
	}

	subID := e.Coordinator.CreateSubscription(e.Deployer.Address)
	e.Transact(e.Deployer.Address)
	if err := e.Coordinator.FundSubscription(subID, chain.Ether(config.MockSubFund)); err != nil {
		return err
	}
	e.Transact(e.Deployer.Address)

	coordAddr := e.Coordinator.Address()
	entry := e.deployContract(contract.RaffleName,
		coordAddr.Hex(),
		strconv.FormatUint(subID, 10),
		params.GasLane.Hex(),
		strconv.FormatInt(int64(params.Interval.Seconds()), 10),
		bigString(params.EntranceFee),
		strconv.FormatUint(uint64(params.CallbackGasLimit), 10),
	)

	r, err := raffle.New(raffle.Config{
		Address:          entry.Address,
		EntranceFee:      params.EntranceFee,
		Interval:         params.Interval,
		GasLane:          params.GasLane,
		SubscriptionID:   subID,
		CallbackGasLimit: params.CallbackGasLimit,
		Confirmations:    config.RequestConfirmations,
		NumWords:         config.NumWords,
	}, raffle.Deps{
		Coordinator: e.Coordinator,
		Ledger:      e.Ledger,
		Clock:       e.Clock,
		Emitter:     e.Emitter,
	}, raffle.WithLogger(e.Log.Named("raffle")), raffle.WithRequestTimeout(e.RequestTimeout))
	if err != nil {
		return err
	}

	if err := e.Coordinator.AddConsumer(subID, entry.Address); err != nil {
		return fmt.Errorf("adding raffle as consumer: %w", err)
	}
	e.Transact(e.Deployer.Address)
	e.Raffle = r

	if !e.Network.Development && e.Verifier != nil {
		return VerifyRaffle(ctx, e.Verifier, e.Coordinator.Address(), r.Config())
	}
	return nil
}

// VerifyRaffle submits the raffle deployed with cfg against coordinator to v.
func VerifyRaffle(ctx context.Context, v Verifier, coordinator common.Address, cfg raffle.Config) error {
	args, err := verify.ConstructorArgs(contract.GetBuiltinABI(contract.RaffleName),
		coordinator,
		cfg.SubscriptionID,
		[32]byte(cfg.GasLane),
		big.NewInt(int64(cfg.Interval.Seconds())),
		cfg.EntranceFee,
		cfg.CallbackGasLimit)
	if err != nil {
		return fmt.Errorf("encoding constructor arguments: %w", err)
	}
	vctx, cancel := context.WithTimeout(ctx, config.VerifyTimeout)
	defer cancel()
	return v.Verify(vctx, cfg.Address, args)
}

func updateFrontEnd(_ context.Context, e *Env) error {
	if !e.FrontEnd.Update {
		e.Log.Debug("front-end update disabled")
		return nil
	}
	e.Log.Info("updating front end",
		zap.String("addresses", e.FrontEnd.AddressesFile),
		zap.String("abi", e.FrontEnd.ABIFile))
	return ExportFrontEnd(e.FrontEnd, e.Registry, e.Network)
}

// ExportFrontEnd writes the raffle address deployed on n and its ABI to the
// front-end constants files.
func ExportFrontEnd(fe config.FrontEnd, reg *contract.Registry, n *chain.Network) error {
	entry, err := reg.Get(contract.RaffleName, n.Name)
	if err != nil {
		return err
	}
	if _, err := frontend.UpdateContractAddress(fe.AddressesFile, n.ChainID, entry.Address); err != nil {
		return fmt.Errorf("writing addresses: %w", err)
	}
	if err := frontend.UpdateABI(fe.ABIFile, entry.ABI); err != nil {
		return fmt.Errorf("writing abi: %w", err)
	}
	return nil
}
