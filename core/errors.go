package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrBusy is returned by a fail-fast guard when the key is already held.
	ErrBusy = errors.New("operation busy")

	// ErrUnconfirmed means a transaction was submitted but not confirmed in time.
	ErrUnconfirmed = errors.New("transaction submitted but unconfirmed")

	ErrWalletNotFound       = errors.New("wallet not found")
	ErrMintUnsupported      = errors.New("mint not supported on network")
	ErrInsufficientSpending = errors.New("spending balance would go negative")
	ErrDuplicateRequest     = errors.New("request already exists")
)

type InsufficientFundsError struct {
	Op      string
	UserID  int64
	Token   TokenType
	Amount  decimal.Decimal
	Fee     decimal.Decimal
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("not enough coin [%s] %d : %s : amount=%s : fee=%s : balance=%s",
		e.Op, e.UserID, e.Token, e.Amount, e.Fee, e.Balance)
}

type NotOwnerError struct {
	UserID  int64
	TokenID string
	Network NetworkType
	Address string
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("it's not my nft : (%d, %s, %s, %s)", e.UserID, e.TokenID, e.Network, e.Address)
}

type UnsupportedNetworkError struct {
	Network string
	Token   string
}

func (e *UnsupportedNetworkError) Error() string {
	switch {
	case e.Network != "" && e.Token != "":
		return fmt.Sprintf("not support network %q token %q", e.Network, e.Token)
	case e.Token != "":
		return fmt.Sprintf("not support token %q", e.Token)
	default:
		return fmt.Sprintf("not support network %q", e.Network)
	}
}

// ChainError wraps a failed or malformed adapter call.
type ChainError struct {
	Network NetworkType
	Op      string
	Err     error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain %s %s: %v", e.Network, e.Op, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

type ConfigurationError struct {
	Network NetworkType
	Field   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured for network %s", e.Field, e.Network)
}

type AlreadyOffchainError struct {
	UserID  int64
	TokenID string
}

func (e *AlreadyOffchainError) Error() string {
	return fmt.Sprintf("nft already offchain: %d / %s", e.UserID, e.TokenID)
}

// NftStateError reports custody records of an NFT that do not allow the requested move.
type NftStateError struct {
	UserID  int64
	TokenID string
	Network NetworkType
	Reason  string
}

func (e *NftStateError) Error() string {
	return fmt.Sprintf("nft state: %s (%d, %s, %s)", e.Reason, e.UserID, e.TokenID, e.Network)
}
