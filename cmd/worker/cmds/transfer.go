package cmds

import (
	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type result struct {
	OK bool `json:"ok"`
}

func (c *Cmd) withdrawCmd() *cobra.Command {
	var reqID string

	cmd := &cobra.Command{
		Use:   "withdraw <user_id> <token> <to> <amount>",
		Short: "withdraw coins from a wallet to an external address",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			token, err := core.ParseToken(args[1])
			if err != nil {
				return err
			}

			amount, err := decimal.NewFromString(args[3])
			if err != nil {
				return err
			}

			w := &core.Withdrawal{
				ReqID:     reqID,
				UserID:    userID,
				Token:     token,
				ToAddress: args[2],
				Amount:    amount,
			}

			ok, err := c.Transferz.Withdrawal(cmd.Context(), w)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, map[string]any{"ok": ok, "req_id": w.ReqID, "hash": w.Hash})
		},
	}

	cmd.Flags().StringVar(&reqID, "req", "", "request id (optional)")
	return cmd
}

func (c *Cmd) toWalletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to-wallet <user_id> <token> <amount>",
		Short: "move spending balance to the user wallet",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, token, amount, err := parseCoinArgs(args)
			if err != nil {
				return err
			}

			ok, err := c.Transferz.ToWallet(cmd.Context(), userID, token, amount)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, result{OK: ok})
		},
	}
}

func (c *Cmd) toSpendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to-spending <user_id> <token> <amount>",
		Short: "move wallet coins to the spending balance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, token, amount, err := parseCoinArgs(args)
			if err != nil {
				return err
			}

			ok, err := c.Transferz.ToSpending(cmd.Context(), userID, token, amount)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, result{OK: ok})
		},
	}
}

func (c *Cmd) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <user_id> <network> <to> <amount>",
		Short: "send native coins from a wallet without fee accounting",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			network, err := core.ParseNetwork(args[1])
			if err != nil {
				return err
			}

			amount, err := decimal.NewFromString(args[3])
			if err != nil {
				return err
			}

			receipt, err := c.Transferz.Send(cmd.Context(), userID, network, args[2], amount)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, receipt)
		},
	}
}

func (c *Cmd) withdrawNftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw-nft <user_id> <network> <token_id> <to>",
		Short: "send an nft from a wallet to an external address",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			network, err := core.ParseNetwork(args[1])
			if err != nil {
				return err
			}

			ok, err := c.Transferz.WithdrawalNFT(cmd.Context(), userID, args[2], network, args[3])
			if err != nil {
				return err
			}

			return jsonPrint(cmd, result{OK: ok})
		},
	}
}

func (c *Cmd) toSpendingNftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to-spending-nft <user_id> <token_id>",
		Short: "move an nft from the wallet into custody",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			ok, err := c.Transferz.ToSpendingNFT(cmd.Context(), userID, args[1])
			if err != nil {
				return err
			}

			return jsonPrint(cmd, result{OK: ok})
		},
	}
}

func (c *Cmd) toWalletNftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to-wallet-nft <user_id> <network> <token_id>",
		Short: "deliver a custodial nft to the wallet, minting it if needed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			network, err := core.ParseNetwork(args[1])
			if err != nil {
				return err
			}

			ok, err := c.Transferz.ToWalletNFT(cmd.Context(), userID, args[2], network)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, result{OK: ok})
		},
	}
}

func parseCoinArgs(args []string) (int64, core.TokenType, decimal.Decimal, error) {
	userID, err := parseUserID(args[0])
	if err != nil {
		return 0, "", decimal.Zero, err
	}

	token, err := core.ParseToken(args[1])
	if err != nil {
		return 0, "", decimal.Zero, err
	}

	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return 0, "", decimal.Zero, err
	}

	return userID, token, amount, nil
}
