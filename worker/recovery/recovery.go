package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/pandodao/sac-wallet/core"
)

type Config struct {
	// Stale is how long an intent must sit untouched before it is resumed.
	Stale    time.Duration `valid:"required"`
	Interval time.Duration `valid:"required"`
}

// Recovery resumes intents left behind by crashed or timed out operations.
type Recovery struct {
	intents   core.IntentStore
	transferz core.TransferService
	logger    *slog.Logger
	cfg       Config
}

func New(
	intents core.IntentStore,
	transferz core.TransferService,
	logger *slog.Logger,
	cfg Config,
) *Recovery {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &Recovery{
		intents:   intents,
		transferz: transferz,
		logger:    logger.With("worker", "recovery"),
		cfg:       cfg,
	}
}

func (w *Recovery) Run(ctx context.Context) error {
	w.logger.Info("recovery start")

	for {
		_ = w.run(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.Interval):
		}
	}
}

func (w *Recovery) run(ctx context.Context) error {
	const limit = 64
	intents, err := w.intents.ListStates(ctx, core.PendingIntentStates, time.Now().Add(-w.cfg.Stale), limit)
	if err != nil {
		w.logger.Error("intents.ListStates", "err", err)
		return err
	}

	for _, intent := range intents {
		logger := w.logger.With("intent", intent.TraceID, "kind", intent.Kind, "state", intent.State)
		logger.Info("resume intent")

		if err := w.transferz.Resume(ctx, intent); err != nil {
			logger.Error("transferz.Resume", "err", err)
			continue
		}
	}

	return nil
}
