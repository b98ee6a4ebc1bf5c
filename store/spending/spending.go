package spending

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/store"
	"github.com/shopspring/decimal"
	"github.com/tsenart/nap"
)

func New(db *nap.DB) core.SpendingStore {
	return &spendingStore{db: db}
}

type spendingStore struct {
	db *nap.DB
}

func (s *spendingStore) Find(ctx context.Context, userID int64, network core.NetworkType, token string) (decimal.Decimal, error) {
	b := sq.Select("amount").
		From("spendings").
		Where(sq.Eq{"user_id": userID, "network": network, "token": token})

	var amount decimal.Decimal
	if err := b.RunWith(s.db).QueryRowContext(ctx).Scan(&amount); err != nil && !store.IsErrNotFound(err) {
		return decimal.Zero, err
	}

	return amount, nil
}

func (s *spendingStore) Adjust(ctx context.Context, traceID, memo string, entries []*core.SpendingEntry) error {
	tx, err := s.db.Master().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	for _, entry := range entries {
		if err := adjust(ctx, tx, traceID, memo, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func adjust(ctx context.Context, tx *sql.Tx, traceID, memo string, entry *core.SpendingEntry) error {
	if entry.Delta.IsZero() {
		return nil
	}

	applied, err := insertLog(ctx, tx, traceID, memo, entry)
	if err != nil {
		return err
	}

	if !applied {
		return nil
	}

	if entry.Delta.IsPositive() {
		b := sq.Insert("spendings").
			Columns("user_id", "network", "token", "amount").
			Values(entry.UserID, entry.Network, entry.Token, entry.Delta).
			Suffix("ON DUPLICATE KEY UPDATE amount = amount + VALUES(amount)")
		_, err := b.RunWith(tx).ExecContext(ctx)
		return err
	}

	b := sq.Update("spendings").
		Set("amount", sq.Expr("amount + ?", entry.Delta)).
		Where(sq.Eq{"user_id": entry.UserID, "network": entry.Network, "token": entry.Token}).
		Where("amount + ? >= 0", entry.Delta)
	r, err := b.RunWith(tx).ExecContext(ctx)
	if err != nil {
		return err
	}

	n, err := r.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("adjust %d %s/%s by %s: %w", entry.UserID, entry.Network, entry.Token, entry.Delta, core.ErrInsufficientSpending)
	}

	return nil
}

// insertLog reports false when the entry was already applied under traceID.
func insertLog(ctx context.Context, tx *sql.Tx, traceID, memo string, entry *core.SpendingEntry) (bool, error) {
	if len(memo) > 255 {
		memo = memo[:255]
	}

	b := sq.Insert("spending_logs").
		Options("IGNORE").
		Columns("trace_id", "user_id", "network", "token", "delta", "memo").
		Values(traceID, entry.UserID, entry.Network, entry.Token, entry.Delta, memo)
	r, err := b.RunWith(tx).ExecContext(ctx)
	if err != nil {
		return false, err
	}

	n, err := r.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *spendingStore) Applied(ctx context.Context, traceID string) (bool, error) {
	b := sq.Select("id").
		From("spending_logs").
		Where("trace_id = ?", traceID).
		Limit(1)

	var id int64
	if err := b.RunWith(s.db).QueryRowContext(ctx).Scan(&id); err != nil {
		if store.IsErrNotFound(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}
