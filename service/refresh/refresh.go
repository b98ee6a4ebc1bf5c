package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
	"github.com/zyedidia/generic/mapset"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 5 * time.Minute

type Config struct {
	TTL time.Duration
}

func New(
	wallets core.WalletStore,
	nfts core.NftStore,
	chains core.ChainRegistry,
	cache core.FreshnessCache,
	logger *slog.Logger,
	cfg Config,
) core.RefreshService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	return &service{
		wallets: wallets,
		nfts:    nfts,
		chains:  chains,
		cache:   cache,
		logger:  logger.With("service", "refresh"),
		cfg:     cfg,
	}
}

type service struct {
	wallets core.WalletStore
	nfts    core.NftStore
	chains  core.ChainRegistry
	cache   core.FreshnessCache
	logger  *slog.Logger
	cfg     Config
	sf      singleflight.Group
	mux     sync.Mutex
}

func (s *service) Refresh(ctx context.Context, userID int64, force bool) (*core.Snapshot, error) {
	if !force {
		if snapshot, ok := s.cache.Get(ctx, userID); ok {
			return snapshot, nil
		}
	}

	// a forced refresh follows a transfer and must not join a read that started before it
	if force {
		return s.refresh(ctx, userID)
	}

	v, err, _ := s.sf.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return s.refresh(ctx, userID)
	})

	if err != nil {
		return nil, err
	}

	return v.(*core.Snapshot), nil
}

func (s *service) refresh(ctx context.Context, userID int64) (*core.Snapshot, error) {
	started := time.Now()

	wallet, err := s.wallets.Find(ctx, userID)
	if err != nil {
		return nil, err
	}

	addrs := wallet.Addresses()
	balances, err := s.readBalances(ctx, addrs)
	if err != nil {
		return nil, err
	}

	if err := s.RefreshNft(ctx, addrs); err != nil {
		return nil, err
	}

	snapshot := &core.Snapshot{
		UserID:    userID,
		Balances:  balances,
		UpdatedAt: started,
	}

	// eth and bfc share one address
	seen := mapset.New[string]()
	for _, n := range core.Networks {
		addr := addrs[n]
		if seen.Has(addr) {
			continue
		}

		seen.Put(addr)

		owned, err := s.nfts.ListOwned(ctx, addr)
		if err != nil {
			s.logger.Error("nfts.ListOwned", "user", userID, "err", err)
			return nil, err
		}

		snapshot.Nfts = append(snapshot.Nfts, owned...)
	}

	s.store(ctx, snapshot)
	return snapshot, nil
}

// store caches snapshot unless a refresh that started later already did.
func (s *service) store(ctx context.Context, snapshot *core.Snapshot) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if cur, ok := s.cache.Get(ctx, snapshot.UserID); ok && cur.UpdatedAt.After(snapshot.UpdatedAt) {
		return
	}

	if err := s.cache.Set(ctx, snapshot, s.cfg.TTL); err != nil {
		s.logger.Error("cache.Set", "user", snapshot.UserID, "err", err)
	}
}

func (s *service) readBalances(ctx context.Context, addrs map[core.NetworkType]string) (map[core.TokenType]decimal.Decimal, error) {
	var (
		balances = make(map[core.TokenType]decimal.Decimal, len(core.Tokens))
		mux      sync.Mutex
		g        errgroup.Group
	)

	for _, token := range core.Tokens {
		asset, err := core.ResolveAsset(token)
		if err != nil {
			return nil, err
		}

		chain, err := s.chains.Get(asset.Network)
		if err != nil {
			return nil, err
		}

		g.Go(func() error {
			balance, err := chain.TokenBalance(ctx, addrs[asset.Network], asset.Symbol)
			if err != nil {
				return fmt.Errorf("read %s balance: %w", asset.Type, err)
			}

			mux.Lock()
			balances[asset.Type] = balance
			mux.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("readBalances", "err", err)
		return nil, err
	}

	return balances, nil
}

func (s *service) RefreshNft(ctx context.Context, addrs map[core.NetworkType]string) error {
	for _, n := range core.Networks {
		addr, ok := addrs[n]
		if !ok || addr == "" {
			continue
		}

		chain, err := s.chains.Get(n)
		if err != nil {
			return err
		}

		ids, err := chain.ListNFTs(ctx, addr)
		if err != nil {
			s.logger.Error("chain.ListNFTs", "network", n, "address", addr, "err", err)
			return err
		}

		if err := s.nfts.Replace(ctx, addr, n, ids); err != nil {
			s.logger.Error("nfts.Replace", "network", n, "address", addr, "err", err)
			return err
		}
	}

	return nil
}
