package withdrawal

import (
	"github.com/pandodao/sac-wallet/core"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

var scanColumns = []string{
	"id",
	"created_at",
	"req_id",
	"status",
	"user_id",
	"token",
	"network",
	"from_address",
	"to_address",
	"amount",
	"fee",
	"hash",
}

func scanWithdrawal(scanner scanner, w *core.Withdrawal) error {
	return scanner.Scan(
		&w.ID,
		&w.CreatedAt,
		&w.ReqID,
		&w.Status,
		&w.UserID,
		&w.Token,
		&w.Network,
		&w.FromAddress,
		&w.ToAddress,
		&w.Amount,
		&w.Fee,
		&w.Hash,
	)
}
