package core

import (
	"context"

	"github.com/shopspring/decimal"
)

type TransferService interface {
	Withdrawal(ctx context.Context, w *Withdrawal) (bool, error)
	ToWallet(ctx context.Context, userID int64, token TokenType, amount decimal.Decimal) (bool, error)
	ToSpending(ctx context.Context, userID int64, token TokenType, amount decimal.Decimal) (bool, error)
	WithdrawalNFT(ctx context.Context, userID int64, tokenID string, network NetworkType, to string) (bool, error)
	ToSpendingNFT(ctx context.Context, userID int64, tokenID string) (bool, error)
	ToWalletNFT(ctx context.Context, userID int64, tokenID string, network NetworkType) (bool, error)
	Send(ctx context.Context, userID int64, network NetworkType, to string, amount decimal.Decimal) (*Receipt, error)
	// Resume drives an interrupted intent to a terminal or unconfirmed state.
	Resume(ctx context.Context, intent *Intent) error
}
