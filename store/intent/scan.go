package intent

import (
	"database/sql"
	"encoding/json"

	"github.com/pandodao/sac-wallet/core"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

var scanColumns = []string{
	"id",
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
	"ledger_applied",
	"tx_hash",
	"fee_tx_hash",
	"error",
}

func scanIntent(scanner scanner, i *core.Intent) error {
	var (
		debits, credits []byte
		errText         sql.NullString
	)

	if err := scanner.Scan(
		&i.ID,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.TraceID,
		&i.Kind,
		&i.State,
		&i.UserID,
		&i.Network,
		&i.Token,
		&i.TokenID,
		&i.Amount,
		&i.Fee,
		&i.FeeRemainder,
		&debits,
		&credits,
		&i.LedgerApplied,
		&i.TxHash,
		&i.FeeTxHash,
		&errText,
	); err != nil {
		return err
	}

	i.Error = errText.String

	if len(debits) > 0 {
		if err := json.Unmarshal(debits, &i.Debits); err != nil {
			return err
		}
	}

	if len(credits) > 0 {
		if err := json.Unmarshal(credits, &i.Credits); err != nil {
			return err
		}
	}

	return nil
}

func marshalEntries(entries []*core.SpendingEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	return json.Marshal(entries)
}
