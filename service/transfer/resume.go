package transfer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pandodao/sac-wallet/core"
)

var (
	errInterrupted    = errors.New("interrupted before chain submission")
	errUnknownOutcome = errors.New("interrupted during chain submission, tx hash unknown")
)

// Resume drives an interrupted intent under the lock of its operation family. Intents that never
// reached the chain send are failed and their debits reversed. Intents caught during the send
// without a hash move to manual and keep their debits. Submitted ones are waited on.
func (s *service) Resume(ctx context.Context, intent *core.Intent) error {
	family, ok := intentFamilies[intent.Kind]
	if !ok {
		return &core.UnsupportedNetworkError{Network: string(intent.Network), Token: string(intent.Kind)}
	}

	return s.guard.Do(ctx, s.guard.Key(family, intent.UserID), func(ctx context.Context, logger *slog.Logger, _ string) error {
		logger = logger.With("intent", intent.TraceID, "kind", intent.Kind, "user", intent.UserID)

		// reload, the intent may have moved while waiting for the lock
		current, err := s.intents.FindTrace(ctx, intent.TraceID)
		if err != nil {
			logger.Error("intents.FindTrace", "err", err)
			return err
		}

		if current.State.Terminal() {
			return nil
		}

		return s.resume(ctx, logger, current)
	})
}

func (s *service) resume(ctx context.Context, logger *slog.Logger, intent *core.Intent) error {
	if intent.TxHash == "" && intent.State == core.IntentStateSubmitting {
		logger.Error("intent needs manual settlement", "ledger_applied", intent.LedgerApplied)
		intent.Error = errUnknownOutcome.Error()
		return s.advance(ctx, logger, intent, core.IntentStateManual)
	}

	if intent.TxHash == "" {
		if len(intent.Debits) > 0 {
			applied, err := s.spendings.Applied(ctx, intent.TraceID)
			if err != nil {
				logger.Error("spendings.Applied", "err", err)
				return err
			}

			intent.LedgerApplied = applied
		}

		logger.Info("fail unsubmitted intent", "ledger_applied", intent.LedgerApplied)
		_ = s.fail(ctx, logger, intent, errInterrupted)
		return s.closeWithdrawal(ctx, logger, intent, errInterrupted)
	}

	chain, err := s.chains.Get(intent.Network)
	if err != nil {
		return err
	}

	r, err := s.wait(ctx, logger, chain, intent, intent.TxHash)
	if err != nil {
		if r != nil {
			_ = s.fail(ctx, logger, intent, err)
			return s.closeWithdrawal(ctx, logger, intent, err)
		}

		if errors.Is(err, core.ErrUnconfirmed) {
			logger.Info("intent still unconfirmed", "hash", intent.TxHash)
			return nil
		}

		return err
	}

	if err := s.complete(ctx, logger, intent); err != nil {
		return err
	}

	s.confirm(ctx, logger, intent, r)
	logger.Info("intent resumed", "hash", intent.TxHash)
	return nil
}

// closeWithdrawal writes the error row of a failed withdrawal intent whose request is still pending.
func (s *service) closeWithdrawal(ctx context.Context, logger *slog.Logger, intent *core.Intent, cause error) error {
	if intent.Kind != core.IntentWithdrawal {
		return nil
	}

	reqID := core.WithdrawalReqID(intent.TraceID)
	w, err := s.withdrawals.FindReq(ctx, reqID)
	if err != nil {
		logger.Error("withdrawals.FindReq", "req", reqID, "err", err)
		return err
	}

	if w.Status != core.WithdrawalStatusPending {
		return nil
	}

	return s.withdrawals.RecordError(ctx, w, cause.Error())
}
