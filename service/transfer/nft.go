package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/store"
	"github.com/shopspring/decimal"
)

// WithdrawalNFT sends an NFT held by the user's wallet to an external address.
func (s *service) WithdrawalNFT(ctx context.Context, userID int64, tokenID string, network core.NetworkType, to string) (bool, error) {
	if !network.Valid() {
		return false, &core.UnsupportedNetworkError{Network: string(network)}
	}

	err := s.guard.Do(ctx, s.guard.Key(familyWithdrawalNft, userID), func(ctx context.Context, logger *slog.Logger, traceID string) error {
		logger = logger.With("user", userID, "token_id", tokenID, "network", network)
		return s.withdrawNft(ctx, logger, traceID, userID, tokenID, network, to)
	})

	return err == nil, err
}

func (s *service) withdrawNft(ctx context.Context, logger *slog.Logger, traceID string, userID int64, tokenID string, network core.NetworkType, to string) error {
	wallet, err := s.wallets.Find(ctx, userID)
	if err != nil {
		return err
	}

	account, err := wallet.Account(network)
	if err != nil {
		return err
	}

	if err := s.refreshz.RefreshNft(ctx, wallet.Addresses()); err != nil {
		return err
	}

	if _, err := s.nfts.FindOwned(ctx, account.Address, network, tokenID); err != nil {
		if store.IsErrNotFound(err) {
			return &core.NotOwnerError{UserID: userID, TokenID: tokenID, Network: network, Address: account.Address}
		}

		return err
	}

	vault, err := s.vault(network, false)
	if err != nil {
		return err
	}

	fee, err := lookupFee(s.cfg.Fees.WithdrawalNft, "fees.withdrawal_nft", network)
	if err != nil {
		return err
	}

	chain, err := s.chains.Get(network)
	if err != nil {
		return err
	}

	if err := checkCoin(ctx, chain, "withdrawalNFT", userID, account.Address, network, fee); err != nil {
		return err
	}

	intent := &core.Intent{
		TraceID: traceID,
		Kind:    core.IntentWithdrawalNft,
		UserID:  userID,
		Network: network,
		Token:   core.TokenType(network),
		TokenID: tokenID,
		Fee:     fee,
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		logger.Error("intents.Create", "err", err)
		return err
	}

	if err := s.submitting(ctx, logger, intent); err != nil {
		return err
	}

	logger.Info("start transfer nft", "to", to)
	sub, err := chain.TransferNFT(ctx, account.PrivateKey, to, tokenID)
	if err != nil {
		return s.fail(ctx, logger, intent, err)
	}

	if err := s.submitted(ctx, logger, intent, sub.Hash); err != nil {
		return err
	}

	r, err := s.wait(ctx, logger, chain, intent, sub.Hash)
	if err != nil {
		if r != nil {
			return s.fail(ctx, logger, intent, err)
		}

		return err
	}

	s.confirm(ctx, logger, intent, r)
	s.forwardFee(ctx, logger, chain, intent, account.PrivateKey, vault.Address)
	s.refreshInventories(ctx, logger, wallet)
	return nil
}

// ToSpendingNFT moves an NFT from the user's wallet into vault custody.
func (s *service) ToSpendingNFT(ctx context.Context, userID int64, tokenID string) (bool, error) {
	err := s.guard.Do(ctx, s.guard.Key(familyToSpendingNft, userID), func(ctx context.Context, logger *slog.Logger, traceID string) error {
		logger = logger.With("user", userID, "token_id", tokenID)
		return s.toSpendingNft(ctx, logger, traceID, userID, tokenID)
	})

	return err == nil, err
}

func (s *service) toSpendingNft(ctx context.Context, logger *slog.Logger, traceID string, userID int64, tokenID string) error {
	wallet, err := s.wallets.Find(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.refreshz.RefreshNft(ctx, wallet.Addresses()); err != nil {
		return err
	}

	records, err := s.userNfts.ListToken(ctx, tokenID)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		logger.Error("nft already offchain", "records", len(records))
		return &core.AlreadyOffchainError{UserID: userID, TokenID: tokenID}
	}

	network, account, err := s.findOwner(ctx, wallet, tokenID)
	if err != nil {
		return err
	}

	vault, err := s.vault(network, false)
	if err != nil {
		return err
	}

	fee, err := lookupFee(s.cfg.Fees.ToSpendingNft, "fees.to_spending_nft", network)
	if err != nil {
		return err
	}

	chain, err := s.chains.Get(network)
	if err != nil {
		return err
	}

	if err := checkCoin(ctx, chain, "toSpendingNFT", userID, account.Address, network, fee); err != nil {
		return err
	}

	intent := &core.Intent{
		TraceID: traceID,
		Kind:    core.IntentToSpendingNft,
		UserID:  userID,
		Network: network,
		Token:   core.TokenType(network),
		TokenID: tokenID,
		Fee:     fee,
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		logger.Error("intents.Create", "err", err)
		return err
	}

	if err := s.submitting(ctx, logger, intent); err != nil {
		return err
	}

	logger.Info("start transfer nft", "network", network, "to", vault.Address)
	sub, err := chain.TransferNFT(ctx, account.PrivateKey, vault.Address, tokenID)
	if err != nil {
		return s.fail(ctx, logger, intent, err)
	}

	if err := s.submitted(ctx, logger, intent, sub.Hash); err != nil {
		return err
	}

	r, err := s.wait(ctx, logger, chain, intent, sub.Hash)
	if err != nil {
		if r != nil {
			return s.fail(ctx, logger, intent, err)
		}

		return err
	}

	if err := s.complete(ctx, logger, intent); err != nil {
		return err
	}

	s.confirm(ctx, logger, intent, r)
	s.forwardFee(ctx, logger, chain, intent, account.PrivateKey, vault.Address)
	s.refreshInventories(ctx, logger, wallet)
	return nil
}

// findOwner returns the network on which one of the wallet's addresses holds tokenID.
func (s *service) findOwner(ctx context.Context, wallet *core.Wallet, tokenID string) (core.NetworkType, *core.Account, error) {
	for _, n := range core.Networks {
		account, err := wallet.Account(n)
		if err != nil {
			return "", nil, err
		}

		_, err = s.nfts.FindOwned(ctx, account.Address, n, tokenID)
		if err == nil {
			return n, account, nil
		}

		if !store.IsErrNotFound(err) {
			return "", nil, err
		}
	}

	return "", nil, &core.NotOwnerError{UserID: wallet.UserID, TokenID: tokenID}
}

// ToWalletNFT delivers a custodial NFT to the user's wallet on network, minting it on first delivery.
func (s *service) ToWalletNFT(ctx context.Context, userID int64, tokenID string, network core.NetworkType) (bool, error) {
	if !network.Valid() {
		return false, &core.UnsupportedNetworkError{Network: string(network)}
	}

	err := s.guard.Do(ctx, s.guard.Key(familyToWalletNft, userID), func(ctx context.Context, logger *slog.Logger, traceID string) error {
		logger = logger.With("user", userID, "token_id", tokenID, "network", network)
		return s.toWalletNft(ctx, logger, traceID, userID, tokenID, network)
	})

	return err == nil, err
}

func (s *service) toWalletNft(ctx context.Context, logger *slog.Logger, traceID string, userID int64, tokenID string, network core.NetworkType) error {
	vault, err := s.vault(network, false)
	if err != nil {
		return err
	}

	records, err := s.userNfts.ListToken(ctx, tokenID)
	if err != nil {
		return err
	}

	record := pickCustody(records, userID, network, vault.Address)
	if record == nil {
		return &core.NftStateError{UserID: userID, TokenID: tokenID, Network: network, Reason: "no custody record"}
	}

	wallet, err := s.wallets.Find(ctx, userID)
	if err != nil {
		return err
	}

	account, err := wallet.Account(network)
	if err != nil {
		return err
	}

	chain, err := s.chains.Get(network)
	if err != nil {
		return err
	}

	minted := record.Minted()

	// a mint is signed by the adapter's minter, only a vault transfer needs the vault key
	if minted {
		if _, err := s.vault(network, true); err != nil {
			return err
		}
	}

	kind, table, field := core.IntentToWalletNft, s.cfg.Fees.ToWalletNftMinted, "fees.to_wallet_nft.minted"
	if !minted {
		kind, table, field = core.IntentToWalletNftMint, s.cfg.Fees.ToWalletNftNoneMinted, "fees.to_wallet_nft.none_minted"

		if !chain.CanMint() {
			logger.Error("nft never minted", "network", network)
			return fmt.Errorf("toWalletNFT %d, %s: %w", userID, tokenID, core.ErrMintUnsupported)
		}
	}

	fee, err := lookupFee(table, field, network)
	if err != nil {
		return err
	}

	coin, err := s.spendings.Find(ctx, userID, network, string(network))
	if err != nil {
		return err
	}

	if coin.LessThan(fee) {
		return &core.InsufficientFundsError{
			Op:      "toWalletNFT",
			UserID:  userID,
			Token:   core.TokenType(network),
			Fee:     fee,
			Balance: coin,
		}
	}

	intent := &core.Intent{
		TraceID: traceID,
		Kind:    kind,
		UserID:  userID,
		Network: network,
		Token:   core.TokenType(network),
		TokenID: tokenID,
		Fee:     fee,
		Debits: []*core.SpendingEntry{
			{UserID: userID, Network: network, Token: string(network), Delta: fee.Neg()},
		},
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		logger.Error("intents.Create", "err", err)
		return err
	}

	if err := s.applyDebits(ctx, logger, intent, "towallet mint:"+tokenID+":network:"+string(network)); err != nil {
		return err
	}

	if err := s.submitting(ctx, logger, intent); err != nil {
		return err
	}

	var sub *core.Submission
	if minted {
		logger.Info("start transfer nft from vault", "to", account.Address)
		sub, err = chain.TransferNFT(ctx, vault.PrivateKey, account.Address, tokenID)
	} else {
		logger.Info("start mint nft", "to", account.Address)
		sub, err = chain.MintNFT(ctx, account.Address, tokenID)
	}

	if err != nil {
		return s.fail(ctx, logger, intent, err)
	}

	if err := s.submitted(ctx, logger, intent, sub.Hash); err != nil {
		return err
	}

	r, err := s.wait(ctx, logger, chain, intent, sub.Hash)
	if err != nil {
		if r != nil {
			return s.fail(ctx, logger, intent, err)
		}

		return err
	}

	if err := s.complete(ctx, logger, intent); err != nil {
		return err
	}

	s.confirm(ctx, logger, intent, r)
	s.refreshInventories(ctx, logger, wallet)
	return nil
}

// pickCustody prefers the record of an NFT the vault holds on network over a never-minted one.
func pickCustody(records []*core.UserNft, userID int64, network core.NetworkType, vaultAddress string) *core.UserNft {
	for _, r := range records {
		if r.UserID == userID && r.Network == network && strings.EqualFold(r.Address, vaultAddress) {
			return r
		}
	}

	for _, r := range records {
		if r.UserID == userID && !r.Minted() {
			return r
		}
	}

	return nil
}

func checkCoin(ctx context.Context, chain core.Chain, op string, userID int64, address string, network core.NetworkType, fee decimal.Decimal) error {
	coin, err := chain.CoinBalance(ctx, address)
	if err != nil {
		return err
	}

	if coin.LessThan(fee) {
		return &core.InsufficientFundsError{
			Op:      op,
			UserID:  userID,
			Token:   core.TokenType(network),
			Fee:     fee,
			Balance: coin,
		}
	}

	return nil
}
