package core

import (
	"context"

	"github.com/shopspring/decimal"
)

type Spending struct {
	UserID  int64           `json:"user_id"`
	Network NetworkType     `json:"network"`
	Token   string          `json:"token"`
	Amount  decimal.Decimal `json:"amount"`
}

// SpendingEntry is one signed adjustment of a spending row.
type SpendingEntry struct {
	UserID  int64           `json:"user_id"`
	Network NetworkType     `json:"network"`
	Token   string          `json:"token"`
	Delta   decimal.Decimal `json:"delta"`
}

type SpendingStore interface {
	Find(ctx context.Context, userID int64, network NetworkType, token string) (decimal.Decimal, error)
	// Adjust applies all entries in one transaction. It is a no-op for entries already applied
	// under the same trace id and fails without effect if any row would go negative.
	Adjust(ctx context.Context, traceID, memo string, entries []*SpendingEntry) error
	// Applied reports whether any entry was recorded under traceID.
	Applied(ctx context.Context, traceID string) (bool, error)
}

// Reverse returns the compensating entries.
func Reverse(entries []*SpendingEntry) []*SpendingEntry {
	out := make([]*SpendingEntry, 0, len(entries))
	for _, e := range entries {
		r := *e
		r.Delta = e.Delta.Neg()
		out = append(out, &r)
	}

	return out
}
