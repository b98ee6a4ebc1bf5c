package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type IntentState uint8

const (
	_ IntentState = iota
	IntentStateInitiated
	IntentStateLedgerApplied
	IntentStateChainSubmitted
	IntentStateConfirmed
	IntentStateUnconfirmed
	IntentStateFailed
	// IntentStateSubmitting is persisted right before the chain send.
	IntentStateSubmitting
	// IntentStateManual marks a send whose outcome is unknown; an operator settles it.
	IntentStateManual
)

func (s IntentState) String() string {
	switch s {
	case IntentStateInitiated:
		return "initiated"
	case IntentStateLedgerApplied:
		return "ledger-applied"
	case IntentStateChainSubmitted:
		return "chain-submitted"
	case IntentStateConfirmed:
		return "confirmed"
	case IntentStateUnconfirmed:
		return "unconfirmed"
	case IntentStateFailed:
		return "failed"
	case IntentStateSubmitting:
		return "submitting"
	case IntentStateManual:
		return "manual"
	default:
		return "unknown"
	}
}

func (s IntentState) Terminal() bool {
	return s == IntentStateConfirmed || s == IntentStateFailed || s == IntentStateManual
}

// PendingIntentStates are the states the recovery worker resumes.
var PendingIntentStates = []IntentState{
	IntentStateInitiated,
	IntentStateLedgerApplied,
	IntentStateSubmitting,
	IntentStateChainSubmitted,
	IntentStateUnconfirmed,
}

type IntentKind string

const (
	IntentWithdrawal      IntentKind = "withdrawal"
	IntentToWallet        IntentKind = "to_wallet"
	IntentToSpending      IntentKind = "to_spending"
	IntentWithdrawalNft   IntentKind = "withdrawal_nft"
	IntentToSpendingNft   IntentKind = "to_spending_nft"
	IntentToWalletNftMint IntentKind = "to_wallet_nft_mint"
	IntentToWalletNft     IntentKind = "to_wallet_nft"
)

// Intent is the durable record of one money movement. Debits are applied before the chain
// transfer, Credits only after it is confirmed.
type Intent struct {
	ID            uint64           `json:"id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	TraceID       string           `json:"trace_id"`
	Kind          IntentKind       `json:"kind"`
	State         IntentState      `json:"state"`
	UserID        int64            `json:"user_id"`
	Network       NetworkType      `json:"network"`
	Token         TokenType        `json:"token,omitempty"`
	TokenID       string           `json:"token_id,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Fee           decimal.Decimal  `json:"fee"`
	FeeRemainder  decimal.Decimal  `json:"fee_remainder"`
	Debits        []*SpendingEntry `json:"debits,omitempty"`
	Credits       []*SpendingEntry `json:"credits,omitempty"`
	LedgerApplied bool             `json:"ledger_applied"`
	TxHash        string           `json:"tx_hash,omitempty"`
	FeeTxHash     string           `json:"fee_tx_hash,omitempty"`
	Error         string           `json:"error,omitempty"`
}

type IntentStore interface {
	Create(ctx context.Context, intent *Intent) error
	// Update persists the intent and moves it to state, failing if another writer moved it first.
	Update(ctx context.Context, intent *Intent, to IntentState) error
	FindTrace(ctx context.Context, traceID string) (*Intent, error)
	// ListStates lists intents in states last updated before the given time.
	ListStates(ctx context.Context, states []IntentState, before time.Time, limit int) ([]*Intent, error)
}
