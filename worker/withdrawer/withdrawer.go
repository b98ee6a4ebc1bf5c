package withdrawer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/store"
	"golang.org/x/sync/errgroup"
)

func New(
	withdrawals core.WithdrawalStore,
	intents core.IntentStore,
	transferz core.TransferService,
	logger *slog.Logger,
) *Withdrawer {
	return &Withdrawer{
		withdrawals: withdrawals,
		intents:     intents,
		transferz:   transferz,
		logger:      logger.With("worker", "withdrawer"),
	}
}

// Withdrawer executes pending withdrawal requests.
type Withdrawer struct {
	withdrawals core.WithdrawalStore
	intents     core.IntentStore
	transferz   core.TransferService
	logger      *slog.Logger
}

func (w *Withdrawer) Run(ctx context.Context) error {
	w.logger.Info("withdrawer start")

	for {
		dur := time.Second
		if w.run(ctx) == nil {
			dur = 200 * time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
		}
	}
}

func (w *Withdrawer) run(ctx context.Context) error {
	const limit = 64
	withdrawals, err := w.withdrawals.ListPending(ctx, limit)
	if err != nil {
		w.logger.Error("withdrawals.ListPending", "err", err)
		return err
	}

	if len(withdrawals) == 0 {
		return fmt.Errorf("pending withdrawals dry")
	}

	var g errgroup.Group
	g.SetLimit(4)

	for idx := range withdrawals {
		withdrawal := withdrawals[idx]
		g.Go(func() error {
			return w.handleWithdrawal(ctx, withdrawal)
		})
	}

	return g.Wait()
}

func (w *Withdrawer) handleWithdrawal(ctx context.Context, withdrawal *core.Withdrawal) error {
	logger := w.logger.With("req", withdrawal.ReqID)

	// a request with an intent was already started, recovery settles it
	if _, err := w.intents.FindTrace(ctx, core.WithdrawalTrace(withdrawal.ReqID)); err == nil {
		logger.Debug("withdrawal already started")
		return nil
	} else if !store.IsErrNotFound(err) {
		logger.Error("intents.FindTrace", "err", err)
		return err
	}

	logger.Info("handle withdrawal", "token", withdrawal.Token, "amount", withdrawal.Amount, "to", withdrawal.ToAddress)

	ok, err := w.transferz.Withdrawal(ctx, withdrawal)
	if err != nil {
		logger.Error("transferz.Withdrawal", "err", err)

		// rejected before any io, the request can never succeed
		var unsupported *core.UnsupportedNetworkError
		if errors.As(err, &unsupported) {
			if err := w.withdrawals.RecordError(ctx, withdrawal, err.Error()); err != nil {
				logger.Error("withdrawals.RecordError", "err", err)
				return err
			}

			return nil
		}

		return err
	}

	if !ok {
		// rejected without an error row, close the request
		if err := w.withdrawals.RecordError(ctx, withdrawal, "invalid amount "+withdrawal.Amount.String()); err != nil {
			logger.Error("withdrawals.RecordError", "err", err)
			return err
		}
	}

	logger.Debug("withdrawal handled", "ok", ok)
	return nil
}
