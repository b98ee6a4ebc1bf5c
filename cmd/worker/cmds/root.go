package cmds

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/pandodao/generic"
	"github.com/pandodao/sac-wallet/core"
	"github.com/spf13/cobra"
)

type Cmd struct {
	Wallets   core.WalletStore
	Walletz   core.WalletService
	Refreshz  core.RefreshService
	Transferz core.TransferService
}

func (c *Cmd) Run(ctx context.Context, args []string) error {
	root := &cobra.Command{
		Use:          "sac-wallet",
		Short:        "sac wallet operator commands",
		SilenceUsage: true,
	}

	root.AddCommand(c.createWalletCmd())
	root.AddCommand(c.exportAllWalletsCmd())
	root.AddCommand(c.exportWalletCmd())
	root.AddCommand(c.refreshCmd())
	root.AddCommand(c.withdrawCmd())
	root.AddCommand(c.toWalletCmd())
	root.AddCommand(c.toSpendingCmd())
	root.AddCommand(c.sendCmd())
	root.AddCommand(c.withdrawNftCmd())
	root.AddCommand(c.toSpendingNftCmd())
	root.AddCommand(c.toWalletNftCmd())

	root.SetArgs(args)
	root.SetOut(os.Stdout)

	return root.ExecuteContext(ctx)
}

type walletView struct {
	UserID    int64                       `json:"user_id"`
	Addresses map[core.NetworkType]string `json:"addresses"`
}

func viewWallet(wallet *core.Wallet) walletView {
	return walletView{UserID: wallet.UserID, Addresses: wallet.Addresses()}
}

func (c *Cmd) createWalletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-wallet <user_id>",
		Short: "issue a wallet for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			wallet, err := c.Walletz.Create(cmd.Context(), userID)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, viewWallet(wallet))
		},
	}
}

func (c *Cmd) exportAllWalletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-wallets",
		Short: "export the addresses of all wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			wallets, err := c.Wallets.List(cmd.Context())
			if err != nil {
				return err
			}

			return jsonPrint(cmd, generic.MapSlice(wallets, viewWallet))
		},
	}
}

func (c *Cmd) exportWalletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-wallet <user_id>",
		Short: "export a wallet with its private keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			wallet, err := c.Wallets.Find(cmd.Context(), userID)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, wallet)
		},
	}
}

func (c *Cmd) refreshCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh <user_id>",
		Short: "show the balances and nfts of a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			snapshot, err := c.Refreshz.Refresh(cmd.Context(), userID, force)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, snapshot)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the freshness cache")
	return cmd
}

func parseUserID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func jsonPrint(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
