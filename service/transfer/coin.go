package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

// Withdrawal sends coins from the user's wallet to an external address. Any failure once the
// request is known is recorded as an error row before it is returned.
func (s *service) Withdrawal(ctx context.Context, w *core.Withdrawal) (bool, error) {
	if !w.Amount.IsPositive() {
		return false, nil
	}

	asset, err := core.ResolveAsset(w.Token)
	if err != nil {
		return false, err
	}

	if w.ID == 0 {
		if w.ReqID == "" {
			w.ReqID = uuid.NewString()
		}

		w.Network = asset.Network
		if err := s.withdrawals.Create(ctx, w); err != nil {
			s.logger.Error("withdrawals.Create", "req", w.ReqID, "err", err)
			return false, err
		}
	}

	err = s.guard.Do(ctx, s.guard.Key(familyWithdrawal, w.UserID), func(ctx context.Context, logger *slog.Logger, _ string) error {
		logger = logger.With("req", w.ReqID, "user", w.UserID)
		defer s.refreshWallet(ctx, logger, w.UserID)
		return s.withdraw(ctx, logger, asset, w)
	})

	if err != nil {
		// busy requests are retried, unconfirmed ones are settled by recovery
		if !errors.Is(err, core.ErrBusy) && !errors.Is(err, core.ErrUnconfirmed) {
			if rerr := s.withdrawals.RecordError(ctx, w, err.Error()); rerr != nil {
				s.logger.Error("withdrawals.RecordError", "req", w.ReqID, "err", rerr)
			}
		}

		return false, err
	}

	return true, nil
}

func (s *service) withdraw(ctx context.Context, logger *slog.Logger, asset core.Asset, w *core.Withdrawal) error {
	wallet, err := s.wallets.Find(ctx, w.UserID)
	if err != nil {
		return err
	}

	account, err := wallet.Account(asset.Network)
	if err != nil {
		return err
	}

	w.FromAddress = account.Address

	chain, err := s.chains.Get(asset.Network)
	if err != nil {
		return err
	}

	fee, err := lookupFee(s.cfg.Fees.NetworkGas, "fees.network_gas", asset.Network)
	if err != nil {
		return err
	}

	w.Fee = fee

	coin, token, err := chainBalances(ctx, chain, account.Address, asset)
	if err != nil {
		return err
	}

	if !covers(asset, coin, token, w.Amount, fee) {
		return &core.InsufficientFundsError{
			Op:      "withdrawal",
			UserID:  w.UserID,
			Token:   asset.Type,
			Amount:  w.Amount,
			Fee:     fee,
			Balance: token,
		}
	}

	intent := &core.Intent{
		TraceID: core.WithdrawalTrace(w.ReqID),
		Kind:    core.IntentWithdrawal,
		UserID:  w.UserID,
		Network: asset.Network,
		Token:   asset.Type,
		Amount:  w.Amount,
		Fee:     fee,
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		logger.Error("intents.Create", "err", err)
		return err
	}

	if err := s.submitting(ctx, logger, intent); err != nil {
		return err
	}

	logger.Info("start transfer coin", "network", asset.Network, "to", w.ToAddress, "token", asset.Type, "amount", w.Amount)
	sub, err := chain.SendToken(ctx, account.PrivateKey, w.ToAddress, asset.Symbol, w.Amount)
	if err != nil {
		return s.fail(ctx, logger, intent, err)
	}

	logger.Info("success transfer coin", "hash", sub.Hash, "gas", sub.GasUsed)
	if err := s.submitted(ctx, logger, intent, sub.Hash); err != nil {
		return err
	}

	// the request keeps pending until the receipt is known
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

	w.Hash = sub.Hash
	w.Status = core.WithdrawalStatusHashRecorded
	s.confirm(ctx, logger, intent, r)
	logger.Info("withdrawal success", "id", w.ID)
	return nil
}

// ToWallet moves amount from the user's spending balance to their wallet, paid by the vault.
func (s *service) ToWallet(ctx context.Context, userID int64, token core.TokenType, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, nil
	}

	asset, err := core.ResolveAsset(token)
	if err != nil {
		return false, err
	}

	err = s.guard.Do(ctx, s.guard.Key(familyToWallet, userID), func(ctx context.Context, logger *slog.Logger, traceID string) error {
		logger = logger.With("user", userID)
		defer s.refreshWallet(ctx, logger, userID)
		return s.toWallet(ctx, logger, traceID, userID, asset, amount)
	})

	return err == nil, err
}

func (s *service) toWallet(ctx context.Context, logger *slog.Logger, traceID string, userID int64, asset core.Asset, amount decimal.Decimal) error {
	vault, err := s.vault(asset.Network, true)
	if err != nil {
		return err
	}

	fee, err := lookupFee(s.cfg.Fees.ToWallet, "fees.to_wallet", asset.Network)
	if err != nil {
		return err
	}

	wallet, err := s.wallets.Find(ctx, userID)
	if err != nil {
		return err
	}

	account, err := wallet.Account(asset.Network)
	if err != nil {
		return err
	}

	chain, err := s.chains.Get(asset.Network)
	if err != nil {
		return err
	}

	coin, tokenBalance, err := s.spendingBalances(ctx, userID, asset)
	if err != nil {
		return err
	}

	if !covers(asset, coin, tokenBalance, amount, fee) {
		return &core.InsufficientFundsError{
			Op:      "toWallet",
			UserID:  userID,
			Token:   asset.Type,
			Amount:  amount,
			Fee:     fee,
			Balance: tokenBalance,
		}
	}

	_, vaultToken, err := chainBalances(ctx, chain, vault.Address, asset)
	if err != nil {
		return err
	}

	if vaultToken.LessThan(amount) {
		return &core.InsufficientFundsError{
			Op:      "toWallet vault",
			UserID:  userID,
			Token:   asset.Type,
			Amount:  amount,
			Balance: vaultToken,
		}
	}

	intent := &core.Intent{
		TraceID: traceID,
		Kind:    core.IntentToWallet,
		UserID:  userID,
		Network: asset.Network,
		Token:   asset.Type,
		Amount:  amount,
		Fee:     fee,
		Debits:  debitEntries(userID, asset, amount, fee),
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		logger.Error("intents.Create", "err", err)
		return err
	}

	memo := fmt.Sprintf("to wallet:%d, %s, %s", userID, asset.Type, amount)
	if err := s.applyDebits(ctx, logger, intent, memo); err != nil {
		return err
	}

	if err := s.submitting(ctx, logger, intent); err != nil {
		return err
	}

	logger.Info("send coin", "network", asset.Network, "token", asset.Type, "amount", amount)
	sub, err := chain.SendToken(ctx, vault.PrivateKey, account.Address, asset.Symbol, amount)
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
	logger.Info("send coin success", "hash", sub.Hash)
	return nil
}

// ToSpending moves amount from the user's wallet to the vault and credits the spending balance
// once the transfer is confirmed.
func (s *service) ToSpending(ctx context.Context, userID int64, token core.TokenType, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, nil
	}

	asset, err := core.ResolveAsset(token)
	if err != nil {
		return false, err
	}

	err = s.guard.Do(ctx, s.guard.Key(familyToSpending, userID), func(ctx context.Context, logger *slog.Logger, traceID string) error {
		logger = logger.With("user", userID)
		defer s.refreshWallet(ctx, logger, userID)
		return s.toSpending(ctx, logger, traceID, userID, asset, amount)
	})

	return err == nil, err
}

func (s *service) toSpending(ctx context.Context, logger *slog.Logger, traceID string, userID int64, asset core.Asset, amount decimal.Decimal) error {
	vault, err := s.vault(asset.Network, false)
	if err != nil {
		return err
	}

	fee, err := lookupFee(s.cfg.Fees.ToSpending, "fees.to_spending", asset.Network)
	if err != nil {
		return err
	}

	wallet, err := s.wallets.Find(ctx, userID)
	if err != nil {
		return err
	}

	account, err := wallet.Account(asset.Network)
	if err != nil {
		return err
	}

	chain, err := s.chains.Get(asset.Network)
	if err != nil {
		return err
	}

	coin, tokenBalance, err := chainBalances(ctx, chain, account.Address, asset)
	if err != nil {
		return err
	}

	if !covers(asset, coin, tokenBalance, amount, fee) {
		return &core.InsufficientFundsError{
			Op:      "toSpending",
			UserID:  userID,
			Token:   asset.Type,
			Amount:  amount,
			Fee:     fee,
			Balance: tokenBalance,
		}
	}

	intent := &core.Intent{
		TraceID: traceID,
		Kind:    core.IntentToSpending,
		UserID:  userID,
		Network: asset.Network,
		Token:   asset.Type,
		Amount:  amount,
		Fee:     fee,
		Credits: []*core.SpendingEntry{
			{UserID: userID, Network: asset.Network, Token: asset.Symbol, Delta: amount},
		},
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		logger.Error("intents.Create", "err", err)
		return err
	}

	if err := s.submitting(ctx, logger, intent); err != nil {
		return err
	}

	logger.Info("start transfer coin", "network", asset.Network, "to", vault.Address, "token", asset.Type, "amount", amount)
	sub, err := chain.SendToken(ctx, account.PrivateKey, vault.Address, asset.Symbol, amount)
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
	return nil
}

// Send transfers coins from the user's wallet and waits for the receipt.
func (s *service) Send(ctx context.Context, userID int64, network core.NetworkType, to string, amount decimal.Decimal) (*core.Receipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("send %s: amount must be positive", amount)
	}

	wallet, err := s.wallets.Find(ctx, userID)
	if err != nil {
		return nil, err
	}

	account, err := wallet.Account(network)
	if err != nil {
		return nil, err
	}

	chain, err := s.chains.Get(network)
	if err != nil {
		return nil, err
	}

	sub, err := chain.SendCoin(ctx, account.PrivateKey, to, amount)
	if err != nil {
		return nil, err
	}

	return chain.WaitForConfirmation(ctx, sub.Hash, s.cfg.ConfirmTimeout)
}
