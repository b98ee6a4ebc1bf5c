package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Submission is a transaction accepted by a node. GasUsed is the fee charged in native coin,
// an estimate until the receipt is known.
type Submission struct {
	Hash     string          `json:"hash"`
	GasUsed  decimal.Decimal `json:"gas_used"`
	GasPrice decimal.Decimal `json:"gas_price"`
}

type Receipt struct {
	Hash        string          `json:"hash"`
	Success     bool            `json:"success"`
	GasUsed     decimal.Decimal `json:"gas_used"`
	BlockNumber uint64          `json:"block_number"`
}

// Chain is the capability set of one network adapter.
type Chain interface {
	Network() NetworkType
	CoinBalance(ctx context.Context, address string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, address, symbol string) (decimal.Decimal, error)
	SendCoin(ctx context.Context, key, to string, amount decimal.Decimal) (*Submission, error)
	SendToken(ctx context.Context, key, to, symbol string, amount decimal.Decimal) (*Submission, error)
	TransferNFT(ctx context.Context, key, to, tokenID string) (*Submission, error)
	// MintNFT mints with the adapter's minter key, ErrMintUnsupported if the network has none.
	MintNFT(ctx context.Context, to, tokenID string) (*Submission, error)
	CanMint() bool
	WaitForConfirmation(ctx context.Context, hash string, timeout time.Duration) (*Receipt, error)
	ListNFTs(ctx context.Context, address string) ([]string, error)
}

type ChainRegistry interface {
	Get(network NetworkType) (Chain, error)
}
