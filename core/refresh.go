package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the aggregated on-chain view of one user's wallet.
type Snapshot struct {
	UserID    int64                         `json:"user_id"`
	Balances  map[TokenType]decimal.Decimal `json:"balances"`
	Nfts      []*NftOwnership               `json:"nfts"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

type FreshnessCache interface {
	Get(ctx context.Context, userID int64) (*Snapshot, bool)
	Set(ctx context.Context, snapshot *Snapshot, ttl time.Duration) error
}

type RefreshService interface {
	Refresh(ctx context.Context, userID int64, force bool) (*Snapshot, error)
	// RefreshNft reconciles the NFT inventories of the given per-network addresses.
	RefreshNft(ctx context.Context, addrs map[NetworkType]string) error
}
