package intent

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/store"
	"github.com/tsenart/nap"
)

func New(db *nap.DB) core.IntentStore {
	return &intentStore{db: db}
}

type intentStore struct {
	db *nap.DB
}

func (s *intentStore) Create(ctx context.Context, i *core.Intent) error {
	now := time.Now()
	i.CreatedAt, i.UpdatedAt = now, now

	if i.State == 0 {
		i.State = core.IntentStateInitiated
	}

	debits, err := marshalEntries(i.Debits)
	if err != nil {
		return err
	}

	credits, err := marshalEntries(i.Credits)
	if err != nil {
		return err
	}

	b := sq.Insert("intents").
		Columns(
			"created_at",
			"updated_at",
			"trace_id",
			"kind",
			"state",
			"user_id",
			"network",
			"token",
			"token_id",
			"amount",
			"fee",
			"fee_remainder",
			"debits",
			"credits",
		).
		Values(
			i.CreatedAt,
			i.UpdatedAt,
			i.TraceID,
			i.Kind,
			i.State,
			i.UserID,
			i.Network,
			i.Token,
			i.TokenID,
			i.Amount,
			i.Fee,
			i.FeeRemainder,
			debits,
			credits,
		)

	r, err := b.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		if store.IsErrDuplicate(err) {
			return fmt.Errorf("intent %s: %w", i.TraceID, core.ErrDuplicateRequest)
		}

		return err
	}

	id, err := r.LastInsertId()
	if err != nil {
		return err
	}

	i.ID = uint64(id)
	return nil
}

func (s *intentStore) Update(ctx context.Context, i *core.Intent, to core.IntentState) error {
	updatedAt := time.Now()

	b := sq.Update("intents").
		Set("state", to).
		Set("updated_at", updatedAt).
		Set("fee_remainder", i.FeeRemainder).
		Set("ledger_applied", i.LedgerApplied).
		Set("tx_hash", i.TxHash).
		Set("fee_tx_hash", i.FeeTxHash).
		Set("error", i.Error).
		Where("id = ? AND state = ?", i.ID, i.State)

	r, err := b.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return err
	}

	n, err := r.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("intent %s: optimistic lock failed at state %s", i.TraceID, i.State)
	}

	i.State = to
	i.UpdatedAt = updatedAt
	return nil
}

func (s *intentStore) FindTrace(ctx context.Context, traceID string) (*core.Intent, error) {
	b := sq.Select(scanColumns...).
		From("intents").
		Where("trace_id = ?", traceID)

	var i core.Intent
	if err := scanIntent(b.RunWith(s.db).QueryRowContext(ctx), &i); err != nil {
		return nil, err
	}

	return &i, nil
}

func (s *intentStore) ListStates(ctx context.Context, states []core.IntentState, before time.Time, limit int) ([]*core.Intent, error) {
	b := sq.Select(scanColumns...).
		From("intents").
		Where(sq.Eq{"state": states}).
		Where(sq.Lt{"updated_at": before}).
		OrderBy("id").
		Limit(uint64(limit))

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var intents []*core.Intent
	for rows.Next() {
		var i core.Intent
		if err := scanIntent(rows, &i); err != nil {
			return nil, err
		}

		intents = append(intents, &i)
	}

	return intents, rows.Err()
}
