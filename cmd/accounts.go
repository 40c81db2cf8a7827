package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Mohsinsiddi/rafflekit/internal/accounts"
	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	importKey  string
	fundAmount string
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"account"},
	Short:   "Manage accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List development and imported accounts with their balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := accountManager(false)
		if err != nil {
			return err
		}
		imported, err := mgr.List()
		if err != nil {
			return err
		}
		devs, err := accounts.DevAccounts(accounts.DevCount())
		if err != nil {
			return err
		}

		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			t := ui.NewTable([]ui.Column{
				{Title: "Name", Width: 12},
				{Title: "Address", Width: 44},
				{Title: "Balance (ETH)", Width: 22},
				{Title: "Nonce", Width: 6},
			})
			for _, a := range devs {
				t.AddRow(accountRow(env, a.Name, a.Address))
			}
			for _, imp := range imported {
				t.AddRow(accountRow(env, imp.Name, imp.Address))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.Render())
			if !env.Network().Development {
				fmt.Fprintln(out, ui.Warn("development keys are public, never fund them on a live network"))
			}
			return nil
		})
	},
}

func accountRow(env *devnet.Env, name string, addr common.Address) ui.Row {
	return ui.Row{
		name,
		ui.Addr(addr.Hex()),
		chain.FormatEther(env.Ledger.BalanceOf(addr)),
		fmt.Sprintf("%d", env.Nonce(addr)),
	}
}

var accountsBalanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show an account's balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := resolveAccount(args[0])
		if err != nil {
			return err
		}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock(args[0], [][2]string{
				{"Address", addr.Hex()},
				{"Balance", chain.FormatEther(env.Ledger.BalanceOf(addr)) + " ETH"},
				{"Nonce", fmt.Sprintf("%d", env.Nonce(addr))},
			}))
			return nil
		})
	},
}

var accountsFundCmd = &cobra.Command{
	Use:   "fund <account>",
	Short: "Mint ether to an account (development chains only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := resolveAccount(args[0])
		if err != nil {
			return err
		}
		amount, err := parseEther(fundAmount)
		if err != nil {
			return err
		}
		if amount == nil || amount.Sign() == 0 {
			return fmt.Errorf("--amount must be positive")
		}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if err := env.Fund(addr, amount); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Funded %s with %s ETH",
				ui.Addr(addr.Hex()), chain.FormatEther(amount))))
			return nil
		})
	},
}

var accountsImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a private key into the OS keychain",
	Long: `Import a private key under a name. The key is stored in the OS keychain
(or an encrypted file keyring on headless machines); only the address is
written to accounts.json.

Without --key the key is read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := importKey
		if key == "" {
			var err error
			key, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Private key: ")
			if err != nil {
				return err
			}
		}
		mgr, err := accountManager(true)
		if err != nil {
			return err
		}
		a, err := mgr.Import(args[0], key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Imported %q: %s", a.Name, ui.Addr(a.Address.Hex()))))
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Forget an imported account and delete its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := accountManager(true)
		if err != nil {
			return err
		}
		if err := mgr.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed %q", args[0])))
		return nil
	},
}

// readSecret reads one line without echo when in is a terminal.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	accountsImportCmd.Flags().StringVar(&importKey, "key", "", "hex private key (default: read from stdin)")
	accountsFundCmd.Flags().StringVar(&fundAmount, "amount", "100", "ether to mint")
	accountsCmd.AddCommand(accountsListCmd, accountsBalanceCmd, accountsFundCmd, accountsImportCmd, accountsRemoveCmd)
}
