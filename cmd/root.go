package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/rafflekit/internal/config"
	"github.com/Mohsinsiddi/rafflekit/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/rafflekit/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir      string
	cfg         *config.Config
	secrets     config.Secrets
	log         = zap.NewNop()
	closeLog    = func() error { return nil }
	networkFlag string
	envFile     string
	verbose     bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "rafflekit",
	Short: "Raffle lottery on a simulated chain",
	Long: `rafflekit runs a Chainlink-style raffle on a simulated network.

  Deploy the VRF coordinator mock and the raffle, enter players, move the
  block clock, perform upkeep and answer randomness requests.

Networks: hardhat (in-process, reset every run), localhost (persistent
development chain) and the sepolia/ropsten rehearsals. Select one with
--network or persist it with: rafflekit config set-network <name>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if err := config.LoadEnv(envFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		secrets = config.ReadSecrets()
		if secrets.UpdateFrontEnd {
			cfg.FrontEnd.Update = true
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		l, closeFn, err := logger.New(logger.Config{
			Level:     level,
			LogFile:   cfg.LogFile,
			ErrorFile: cfg.ErrorLogFile,
			Console:   verbose,
			Writer:    cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		log, closeLog = l, closeFn
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// execute runs the root command and flushes the log afterwards. Cobra skips
// post-run hooks when a command fails, so the log is closed here.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error("command failed", zap.Error(err))
	}
	if cerr := shutdownLog(); err == nil {
		err = cerr
	}
	return err
}

func shutdownLog() error {
	closeFn := closeLog
	log, closeLog = zap.NewNop(), func() error { return nil }
	return closeFn()
}

func init() {
	// RAFFLEKIT_CONFIG_DIR env var overrides --config flag.
	if envDir := os.Getenv("RAFFLEKIT_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.rafflekit)")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network to run against (default: config default_network)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with PRIVATE_KEY, ETHER_SCAN_KEY, UPDATE_FRONT_END")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")

	rootCmd.AddCommand(
		deployCmd,
		enterCmd,
		stateCmd,
		playersCmd,
		upkeepCmd,
		fulfillCmd,
		retryCmd,
		timeCmd,
		accountsCmd,
		eventsCmd,
		exportCmd,
		verifyCmd,
		simulateCmd,
		watchCmd,
		networkCmd,
		configCmd,
	)
}
