package main

import (
	"time"

	"github.com/google/wire"
	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/service/transfer"
	"github.com/pandodao/sac-wallet/worker/recovery"
	"github.com/pandodao/sac-wallet/worker/syncer"
	"github.com/pandodao/sac-wallet/worker/withdrawer"
	"github.com/spf13/viper"
)

var workerSet = wire.NewSet(
	withdrawer.New,
	provideRecoveryConfig,
	recovery.New,
	provideSyncerConfig,
	syncer.New,
)

func provideRecoveryConfig(v *viper.Viper) recovery.Config {
	v.SetDefault("workers.recovery.stale", 10*time.Minute)
	v.SetDefault("workers.recovery.interval", 30*time.Second)

	return recovery.Config{
		Stale:    v.GetDuration("workers.recovery.stale"),
		Interval: v.GetDuration("workers.recovery.interval"),
	}
}

func provideSyncerConfig(v *viper.Viper, transferCfg transfer.Config) syncer.Config {
	v.SetDefault("workers.syncer.interval", 10*time.Minute)

	vaults := map[core.NetworkType]string{}
	for network, vault := range transferCfg.Vaults {
		if vault.Address != "" {
			vaults[network] = vault.Address
		}
	}

	return syncer.Config{
		Vaults:   vaults,
		Interval: v.GetDuration("workers.syncer.interval"),
	}
}
