package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/pandodao/sac-wallet/core"
)

const (
	propertyVaultNftSyncedAt = "vault_nft_synced_at"
)

type Config struct {
	Vaults   map[core.NetworkType]string
	Interval time.Duration `valid:"required"`
}

func New(
	refreshz core.RefreshService,
	properties core.PropertyStore,
	logger *slog.Logger,
	cfg Config,
) *Syncer {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &Syncer{
		refreshz:   refreshz,
		properties: properties,
		logger:     logger.With("worker", "syncer"),
		cfg:        cfg,
	}
}

// Syncer keeps the NFT inventory of the vaults reconciled with the chains.
type Syncer struct {
	refreshz   core.RefreshService
	properties core.PropertyStore
	logger     *slog.Logger
	cfg        Config
}

func (w *Syncer) Run(ctx context.Context) error {
	w.logger.Info("syncer start")

	for {
		_ = w.run(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.Interval / 4):
		}
	}
}

func (w *Syncer) run(ctx context.Context) error {
	if len(w.cfg.Vaults) == 0 {
		return nil
	}

	var syncedAt time.Time
	if err := w.properties.Get(ctx, propertyVaultNftSyncedAt, &syncedAt); err != nil {
		w.logger.Error("properties.Get", "err", err)
		return err
	}

	if time.Since(syncedAt) < w.cfg.Interval {
		return nil
	}

	if err := w.refreshz.RefreshNft(ctx, w.cfg.Vaults); err != nil {
		w.logger.Error("refreshz.RefreshNft", "err", err)
		return err
	}

	now := time.Now()
	if err := w.properties.Set(ctx, propertyVaultNftSyncedAt, now); err != nil {
		w.logger.Error("properties.Set", "err", err)
		return err
	}

	w.logger.Debug("vault nfts synced", "at", now)
	return nil
}
