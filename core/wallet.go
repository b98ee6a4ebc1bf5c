package core

import (
	"context"
	"fmt"
	"time"
)

type Account struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

type Wallet struct {
	UserID    int64                    `json:"user_id"`
	CreatedAt time.Time                `json:"created_at"`
	Accounts  map[NetworkType]*Account `json:"accounts"`
}

// Validate checks that every supported network has an account.
func (w *Wallet) Validate() error {
	for _, n := range Networks {
		if a, ok := w.Accounts[n]; !ok || a == nil || a.Address == "" || a.PrivateKey == "" {
			return fmt.Errorf("wallet %d: missing %s account", w.UserID, n)
		}
	}

	return nil
}

func (w *Wallet) Account(network NetworkType) (*Account, error) {
	a, ok := w.Accounts[network]
	if !ok || a == nil {
		return nil, &UnsupportedNetworkError{Network: string(network)}
	}

	return a, nil
}

// Addresses returns the wallet address of every network.
func (w *Wallet) Addresses() map[NetworkType]string {
	addrs := make(map[NetworkType]string, len(w.Accounts))
	for n, a := range w.Accounts {
		addrs[n] = a.Address
	}

	return addrs
}

type WalletStore interface {
	Create(ctx context.Context, wallet *Wallet) error
	Find(ctx context.Context, userID int64) (*Wallet, error)
	List(ctx context.Context) ([]*Wallet, error)
}

type WalletService interface {
	Create(ctx context.Context, userID int64) (*Wallet, error)
}
