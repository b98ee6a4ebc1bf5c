package withdrawal

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/store"
	"github.com/tsenart/nap"
)

func New(db *nap.DB) core.WithdrawalStore {
	return &withdrawalStore{db: db}
}

type withdrawalStore struct {
	db *nap.DB
}

func (s *withdrawalStore) Create(ctx context.Context, w *core.Withdrawal) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	if w.Status == 0 {
		w.Status = core.WithdrawalStatusPending
	}

	b := sq.Insert("withdrawals").
		Columns("created_at", "req_id", "status", "user_id", "token", "network", "from_address", "to_address", "amount", "fee").
		Values(w.CreatedAt, w.ReqID, w.Status, w.UserID, w.Token, w.Network, w.FromAddress, w.ToAddress, w.Amount, w.Fee)

	r, err := b.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		if store.IsErrDuplicate(err) {
			return fmt.Errorf("withdrawal %s: %w", w.ReqID, core.ErrDuplicateRequest)
		}

		return err
	}

	id, err := r.LastInsertId()
	if err != nil {
		return err
	}

	w.ID = uint64(id)
	return nil
}

func (s *withdrawalStore) FindReq(ctx context.Context, reqID string) (*core.Withdrawal, error) {
	b := sq.Select(scanColumns...).
		From("withdrawals").
		Where("req_id = ?", reqID)
	row := b.RunWith(s.db).QueryRowContext(ctx)

	var w core.Withdrawal
	if err := scanWithdrawal(row, &w); err != nil {
		return nil, err
	}

	return &w, nil
}

func (s *withdrawalStore) ListPending(ctx context.Context, limit int) ([]*core.Withdrawal, error) {
	b := sq.Select(scanColumns...).
		From("withdrawals").
		Where("status = ?", core.WithdrawalStatusPending).
		OrderBy("id").
		Limit(uint64(limit))

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var withdrawals []*core.Withdrawal
	for rows.Next() {
		var w core.Withdrawal
		if err := scanWithdrawal(rows, &w); err != nil {
			return nil, err
		}

		withdrawals = append(withdrawals, &w)
	}

	return withdrawals, rows.Err()
}

func (s *withdrawalStore) RecordHash(ctx context.Context, reqID, hash string) error {
	b := sq.Update("withdrawals").
		Set("hash", hash).
		Set("status", core.WithdrawalStatusHashRecorded).
		Where("req_id = ? AND status = ?", reqID, core.WithdrawalStatusPending)
	r, err := b.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return err
	}

	n, err := r.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("optimistic lock failed")
	}

	return nil
}

func (s *withdrawalStore) RecordError(ctx context.Context, w *core.Withdrawal, errText string) error {
	tx, err := s.db.Master().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	insert := sq.Insert("withdrawal_errors").
		Columns("req_id", "network", "token", "user_id", "from_address", "to_address", "amount", "error_str").
		Values(w.ReqID, w.Network, w.Token, w.UserID, w.FromAddress, w.ToAddress, w.Amount, errText)
	if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
		return err
	}

	update := sq.Update("withdrawals").
		Set("status", core.WithdrawalStatusErrored).
		Set("from_address", w.FromAddress).
		Where("req_id = ? AND status = ?", w.ReqID, core.WithdrawalStatusPending)
	if _, err := update.RunWith(tx).ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}
