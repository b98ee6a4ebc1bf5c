package main

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/wire"
	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/service/chain"
	"github.com/pandodao/sac-wallet/service/chain/aptos"
	"github.com/pandodao/sac-wallet/service/chain/evm"
	"github.com/pandodao/sac-wallet/service/freshness"
	"github.com/pandodao/sac-wallet/service/guard"
	"github.com/pandodao/sac-wallet/service/refresh"
	"github.com/pandodao/sac-wallet/service/transfer"
	walletz "github.com/pandodao/sac-wallet/service/wallet"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var serviceSet = wire.NewSet(
	provideChains,
	provideGuard,
	wire.Bind(new(core.Guard), new(*guard.Guard)),
	provideFreshness,
	provideRefreshConfig,
	refresh.New,
	provideTransferConfig,
	transfer.New,
	walletz.New,
)

func provideChains(v *viper.Viper, logger *slog.Logger) (core.ChainRegistry, func(), error) {
	var (
		chains  []core.Chain
		clients []*ethclient.Client
	)

	cleanup := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	for _, network := range []core.NetworkType{core.NetworkEth, core.NetworkBfc} {
		key := "chains." + string(network)
		if !v.IsSet(key) {
			continue
		}

		client, err := ethclient.Dial(v.GetString(key + ".rpc"))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("dial %s: %w", network, err)
		}

		clients = append(clients, client)
		chains = append(chains, evm.New(client, logger, evm.Config{
			Network:     string(network),
			ChainID:     v.GetInt64(key + ".chain_id"),
			Tokens:      v.GetStringMapString(key + ".tokens"),
			NftContract: v.GetString(key + ".nft_contract"),
			MinterKey:   v.GetString(key + ".minter_key"),
		}))
	}

	if v.IsSet("chains.apt") {
		chains = append(chains, aptos.New(logger, aptos.Config{
			Endpoint:     v.GetString("chains.apt.endpoint"),
			IndexerURL:   v.GetString("chains.apt.indexer"),
			Collection:   v.GetString("chains.apt.collection"),
			MaxGasAmount: v.GetUint64("chains.apt.max_gas_amount"),
		}))
	}

	return chain.NewRegistry(chains...), cleanup, nil
}

func provideGuard(v *viper.Viper, logger *slog.Logger) *guard.Guard {
	return guard.New(logger, guard.Config{
		Policy: v.GetString("guard.policy"),
		Scope:  v.GetString("guard.scope"),
	})
}

// provideFreshness shares snapshots through redis when refresh.redis_addr is set.
func provideFreshness(v *viper.Viper, logger *slog.Logger) (core.FreshnessCache, func(), error) {
	addr := v.GetString("refresh.redis_addr")
	if addr == "" {
		ttl := v.GetDuration("refresh.ttl")
		if ttl <= 0 {
			ttl = refresh.DefaultTTL
		}

		v.SetDefault("refresh.cache_size", 4096)
		return freshness.NewMemory(v.GetInt("refresh.cache_size"), ttl), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: v.GetString("refresh.redis_password"),
		DB:       v.GetInt("refresh.redis_db"),
	})

	return freshness.NewRedis(client, logger), func() { _ = client.Close() }, nil
}

func provideRefreshConfig(v *viper.Viper) refresh.Config {
	return refresh.Config{
		TTL: v.GetDuration("refresh.ttl"),
	}
}

func provideTransferConfig(v *viper.Viper) (transfer.Config, error) {
	cfg := transfer.Config{
		Vaults:         map[core.NetworkType]transfer.Vault{},
		ConfirmTimeout: v.GetDuration("transfer.confirm_timeout"),
	}

	for _, network := range core.Networks {
		key := "vaults." + string(network)
		if !v.IsSet(key) {
			continue
		}

		cfg.Vaults[network] = transfer.Vault{
			Address:    v.GetString(key + ".address"),
			PrivateKey: v.GetString(key + ".private_key"),
		}
	}

	tables := []struct {
		key   string
		table *map[core.NetworkType]decimal.Decimal
	}{
		{"fees.network_gas", &cfg.Fees.NetworkGas},
		{"fees.to_wallet", &cfg.Fees.ToWallet},
		{"fees.to_spending", &cfg.Fees.ToSpending},
		{"fees.withdrawal_nft", &cfg.Fees.WithdrawalNft},
		{"fees.to_spending_nft", &cfg.Fees.ToSpendingNft},
		{"fees.to_wallet_nft.none_minted", &cfg.Fees.ToWalletNftNoneMinted},
		{"fees.to_wallet_nft.minted", &cfg.Fees.ToWalletNftMinted},
	}

	for _, t := range tables {
		table, err := parseFeeTable(v, t.key)
		if err != nil {
			return cfg, err
		}

		*t.table = table
	}

	return cfg, nil
}

// parseFeeTable reads a network -> amount map. Amounts are strings to keep them exact.
func parseFeeTable(v *viper.Viper, key string) (map[core.NetworkType]decimal.Decimal, error) {
	table := map[core.NetworkType]decimal.Decimal{}
	for name, value := range v.GetStringMapString(key) {
		network, err := core.ParseNetwork(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		fee, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", key, name, err)
		}

		if fee.IsNegative() {
			return nil, fmt.Errorf("%s.%s: negative fee %s", key, name, fee)
		}

		table[network] = fee
	}

	return table, nil
}
