package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus uint8

const (
	_ WithdrawalStatus = iota
	WithdrawalStatusPending
	WithdrawalStatusHashRecorded
	WithdrawalStatusErrored
)

func (s WithdrawalStatus) String() string {
	switch s {
	case WithdrawalStatusPending:
		return "pending"
	case WithdrawalStatusHashRecorded:
		return "hash-recorded"
	case WithdrawalStatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

type Withdrawal struct {
	ID          uint64           `json:"id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ReqID       string           `json:"req_id"`
	Status      WithdrawalStatus `json:"status"`
	UserID      int64            `json:"user_id"`
	Token       TokenType        `json:"token"`
	Network     NetworkType      `json:"network"`
	FromAddress string           `json:"from_address,omitempty"`
	ToAddress   string           `json:"to_address"`
	Amount      decimal.Decimal  `json:"amount"`
	Fee         decimal.Decimal  `json:"fee"`
	Hash        string           `json:"hash,omitempty"`
}

type WithdrawalStore interface {
	Create(ctx context.Context, w *Withdrawal) error
	FindReq(ctx context.Context, reqID string) (*Withdrawal, error)
	ListPending(ctx context.Context, limit int) ([]*Withdrawal, error)
	RecordHash(ctx context.Context, reqID, hash string) error
	// RecordError marks the request errored and writes an error row with the resolved context.
	RecordError(ctx context.Context, w *Withdrawal, errText string) error
}

const withdrawalTracePrefix = "withdrawal:"

// WithdrawalTrace is the intent trace id of a withdrawal request.
func WithdrawalTrace(reqID string) string {
	return withdrawalTracePrefix + reqID
}

// WithdrawalReqID returns the request id of a withdrawal trace.
func WithdrawalReqID(traceID string) string {
	return strings.TrimPrefix(traceID, withdrawalTracePrefix)
}
