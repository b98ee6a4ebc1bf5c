package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

const (
	familyWithdrawal    = "withdrawal"
	familyToWallet      = "toWallet"
	familyToSpending    = "toSpending"
	familyWithdrawalNft = "withdrawal nft"
	familyToSpendingNft = "to spending nft"
	familyToWalletNft   = "to wallet nft"
)

var intentFamilies = map[core.IntentKind]string{
	core.IntentWithdrawal:      familyWithdrawal,
	core.IntentToWallet:        familyToWallet,
	core.IntentToSpending:      familyToSpending,
	core.IntentWithdrawalNft:   familyWithdrawalNft,
	core.IntentToSpendingNft:   familyToSpendingNft,
	core.IntentToWalletNftMint: familyToWalletNft,
	core.IntentToWalletNft:     familyToWalletNft,
}

const DefaultConfirmTimeout = 3 * time.Minute

var (
	submitAttempts = 3
	submitBackoff  = 100 * time.Millisecond
)

type Vault struct {
	Address    string
	PrivateKey string
}

// Fees are flat fees per network, paid in the network coin.
type Fees struct {
	NetworkGas            map[core.NetworkType]decimal.Decimal
	ToWallet              map[core.NetworkType]decimal.Decimal
	ToSpending            map[core.NetworkType]decimal.Decimal
	WithdrawalNft         map[core.NetworkType]decimal.Decimal
	ToSpendingNft         map[core.NetworkType]decimal.Decimal
	ToWalletNftNoneMinted map[core.NetworkType]decimal.Decimal
	ToWalletNftMinted     map[core.NetworkType]decimal.Decimal
}

type Config struct {
	Vaults         map[core.NetworkType]Vault
	Fees           Fees
	ConfirmTimeout time.Duration
}

func New(
	wallets core.WalletStore,
	spendings core.SpendingStore,
	withdrawals core.WithdrawalStore,
	nfts core.NftStore,
	userNfts core.UserNftStore,
	intents core.IntentStore,
	chains core.ChainRegistry,
	refreshz core.RefreshService,
	guard core.Guard,
	logger *slog.Logger,
	cfg Config,
) core.TransferService {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}

	return &service{
		wallets:     wallets,
		spendings:   spendings,
		withdrawals: withdrawals,
		nfts:        nfts,
		userNfts:    userNfts,
		intents:     intents,
		chains:      chains,
		refreshz:    refreshz,
		guard:       guard,
		logger:      logger.With("service", "transfer"),
		cfg:         cfg,
	}
}

type service struct {
	wallets     core.WalletStore
	spendings   core.SpendingStore
	withdrawals core.WithdrawalStore
	nfts        core.NftStore
	userNfts    core.UserNftStore
	intents     core.IntentStore
	chains      core.ChainRegistry
	refreshz    core.RefreshService
	guard       core.Guard
	logger      *slog.Logger
	cfg         Config
}

func (s *service) vault(network core.NetworkType, withKey bool) (Vault, error) {
	v := s.cfg.Vaults[network]
	if v.Address == "" {
		return v, &core.ConfigurationError{Network: network, Field: "vault address"}
	}

	if withKey && v.PrivateKey == "" {
		return v, &core.ConfigurationError{Network: network, Field: "vault private key"}
	}

	return v, nil
}

func (s *service) vaultAddresses() map[core.NetworkType]string {
	addrs := make(map[core.NetworkType]string, len(s.cfg.Vaults))
	for n, v := range s.cfg.Vaults {
		if v.Address != "" {
			addrs[n] = v.Address
		}
	}

	return addrs
}

func lookupFee(table map[core.NetworkType]decimal.Decimal, field string, network core.NetworkType) (decimal.Decimal, error) {
	fee, ok := table[network]
	if !ok {
		return decimal.Zero, &core.ConfigurationError{Network: network, Field: field}
	}

	return fee, nil
}

// feeRemainder is the part of a flat fee left after gas, truncated to 6 decimals and never negative.
func feeRemainder(flatFee, gasUsed, networkGas decimal.Decimal) decimal.Decimal {
	v := flatFee.Sub(gasUsed).Sub(networkGas).RoundFloor(6)
	if v.IsNegative() {
		return decimal.Zero
	}

	return v
}

// covers reports whether the balances pay amount of asset plus a fee in the network coin.
func covers(asset core.Asset, coin, token, amount, fee decimal.Decimal) bool {
	if asset.Native() {
		return coin.GreaterThanOrEqual(amount.Add(fee))
	}

	return token.GreaterThanOrEqual(amount) && coin.GreaterThanOrEqual(fee)
}

// chainBalances reads the live coin and token balance of address.
func chainBalances(ctx context.Context, chain core.Chain, address string, asset core.Asset) (coin, token decimal.Decimal, err error) {
	coin, err = chain.CoinBalance(ctx, address)
	if err != nil {
		return
	}

	if asset.Native() {
		return coin, coin, nil
	}

	token, err = chain.TokenBalance(ctx, address, asset.Symbol)
	return
}

func (s *service) spendingBalances(ctx context.Context, userID int64, asset core.Asset) (coin, token decimal.Decimal, err error) {
	coin, err = s.spendings.Find(ctx, userID, asset.Network, string(asset.Network))
	if err != nil {
		return
	}

	if asset.Native() {
		return coin, coin, nil
	}

	token, err = s.spendings.Find(ctx, userID, asset.Network, asset.Symbol)
	return
}

func debitEntries(userID int64, asset core.Asset, amount, fee decimal.Decimal) []*core.SpendingEntry {
	coin := string(asset.Network)
	if asset.Native() {
		return []*core.SpendingEntry{
			{UserID: userID, Network: asset.Network, Token: coin, Delta: amount.Add(fee).Neg()},
		}
	}

	entries := []*core.SpendingEntry{
		{UserID: userID, Network: asset.Network, Token: asset.Symbol, Delta: amount.Neg()},
	}

	if fee.IsPositive() {
		entries = append(entries, &core.SpendingEntry{UserID: userID, Network: asset.Network, Token: coin, Delta: fee.Neg()})
	}

	return entries
}

func revertTrace(traceID string) string {
	return "revert:" + traceID
}

func (s *service) advance(ctx context.Context, logger *slog.Logger, intent *core.Intent, to core.IntentState) error {
	from := intent.State
	if err := s.intents.Update(ctx, intent, to); err != nil {
		logger.Error("intents.Update", "intent", intent.TraceID, "to", to, "err", err)
		return err
	}

	logger.Debug("intent advanced", "intent", intent.TraceID, "from", from, "to", to)
	return nil
}

// applyDebits takes the intent's debits off the ledger before any chain call.
func (s *service) applyDebits(ctx context.Context, logger *slog.Logger, intent *core.Intent, memo string) error {
	if err := s.spendings.Adjust(ctx, intent.TraceID, memo, intent.Debits); err != nil {
		logger.Error("spendings.Adjust", "err", err)
		intent.Error = err.Error()
		_ = s.advance(ctx, logger, intent, core.IntentStateFailed)
		return err
	}

	intent.LedgerApplied = true
	return s.advance(ctx, logger, intent, core.IntentStateLedgerApplied)
}

// fail reverses applied debits and marks the intent failed. It returns cause.
func (s *service) fail(ctx context.Context, logger *slog.Logger, intent *core.Intent, cause error) error {
	if intent.LedgerApplied && len(intent.Debits) > 0 {
		memo := fmt.Sprintf("revert %s:%d", intent.Kind, intent.UserID)
		if err := s.spendings.Adjust(ctx, revertTrace(intent.TraceID), memo, core.Reverse(intent.Debits)); err != nil {
			logger.Error("spendings.Adjust", "revert", intent.TraceID, "err", err)
			return cause
		}

		intent.LedgerApplied = false
	}

	intent.Error = cause.Error()
	_ = s.advance(ctx, logger, intent, core.IntentStateFailed)
	return cause
}

// submitting records that the intent is about to reach the chain. Nothing was sent when it fails.
func (s *service) submitting(ctx context.Context, logger *slog.Logger, intent *core.Intent) error {
	if err := s.advance(ctx, logger, intent, core.IntentStateSubmitting); err != nil {
		return s.fail(ctx, logger, intent, err)
	}

	return nil
}

// submitted persists the hash of a transaction the node accepted. When it gives up the intent
// stays submitting and recovery hands it to an operator. The error wraps ErrUnconfirmed.
func (s *service) submitted(ctx context.Context, logger *slog.Logger, intent *core.Intent, hash string) error {
	intent.TxHash = hash

	var err error
	for attempt := 0; attempt < submitAttempts && ctx.Err() == nil; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(attempt) * submitBackoff):
			}
		}

		if err = s.advance(ctx, logger, intent, core.IntentStateChainSubmitted); err == nil {
			return nil
		}
	}

	if err == nil {
		err = ctx.Err()
	}

	logger.Error("tx hash not persisted", "intent", intent.TraceID, "hash", hash, "err", err)
	return fmt.Errorf("%w: persist tx %s: %w", core.ErrUnconfirmed, hash, err)
}

// wait blocks for the receipt of hash. A timeout moves the intent to unconfirmed. A reverted
// transaction returns its receipt together with a ChainError.
func (s *service) wait(ctx context.Context, logger *slog.Logger, chain core.Chain, intent *core.Intent, hash string) (*core.Receipt, error) {
	r, err := chain.WaitForConfirmation(ctx, hash, s.cfg.ConfirmTimeout)
	if err != nil {
		logger.Error("chain.WaitForConfirmation", "hash", hash, "err", err)
		intent.Error = err.Error()
		_ = s.advance(ctx, logger, intent, core.IntentStateUnconfirmed)

		if errors.Is(err, core.ErrUnconfirmed) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", core.ErrUnconfirmed, err)
	}

	if !r.Success {
		return r, &core.ChainError{Network: chain.Network(), Op: "confirm", Err: fmt.Errorf("transaction %s reverted", hash)}
	}

	return r, nil
}

// complete applies the effects that follow a confirmed transfer. Each step is idempotent.
func (s *service) complete(ctx context.Context, logger *slog.Logger, intent *core.Intent) error {
	switch intent.Kind {
	case core.IntentWithdrawal:
		reqID := core.WithdrawalReqID(intent.TraceID)
		w, err := s.withdrawals.FindReq(ctx, reqID)
		if err != nil {
			logger.Error("withdrawals.FindReq", "req", reqID, "err", err)
			return err
		}

		if w.Status == core.WithdrawalStatusPending {
			if err := s.withdrawals.RecordHash(ctx, reqID, intent.TxHash); err != nil {
				logger.Error("withdrawals.RecordHash", "req", reqID, "err", err)
				return err
			}
		}
	case core.IntentToSpending:
		memo := fmt.Sprintf("to spending:%d, %s, %s", intent.UserID, intent.Token, intent.Amount)
		if err := s.spendings.Adjust(ctx, intent.TraceID, memo, intent.Credits); err != nil {
			logger.Error("spendings.Adjust", "err", err)
			return err
		}

		intent.LedgerApplied = true
	case core.IntentToSpendingNft:
		vault, err := s.vault(intent.Network, false)
		if err != nil {
			return err
		}

		if err := s.userNfts.Save(ctx, &core.UserNft{
			UserID:  intent.UserID,
			TokenID: intent.TokenID,
			Network: intent.Network,
			Address: vault.Address,
		}); err != nil {
			logger.Error("userNfts.Save", "err", err)
			return err
		}
	case core.IntentToWalletNft, core.IntentToWalletNftMint:
		if err := s.userNfts.Delete(ctx, intent.UserID, intent.TokenID); err != nil {
			logger.Error("userNfts.Delete", "err", err)
			return err
		}
	}

	return nil
}

// confirm records the fee remainder and settles the intent.
func (s *service) confirm(ctx context.Context, logger *slog.Logger, intent *core.Intent, r *core.Receipt) {
	networkGas := s.cfg.Fees.NetworkGas[intent.Network]
	intent.FeeRemainder = feeRemainder(intent.Fee, r.GasUsed, networkGas)
	intent.Error = ""
	_ = s.advance(ctx, logger, intent, core.IntentStateConfirmed)
}

// forwardFee moves the fee remainder from key to the vault as a separate transaction.
func (s *service) forwardFee(ctx context.Context, logger *slog.Logger, chain core.Chain, intent *core.Intent, key, vaultAddress string) {
	if !intent.FeeRemainder.IsPositive() {
		return
	}

	logger.Info("start transfer fee", "fee", intent.FeeRemainder, "to", vaultAddress)
	sub, err := chain.SendCoin(ctx, key, vaultAddress, intent.FeeRemainder)
	if err != nil {
		logger.Error("chain.SendCoin", "fee", intent.FeeRemainder, "err", err)
		intent.Error = "fee transfer: " + err.Error()
	} else {
		intent.FeeTxHash = sub.Hash
		if _, err := chain.WaitForConfirmation(ctx, sub.Hash, s.cfg.ConfirmTimeout); err != nil {
			logger.Error("chain.WaitForConfirmation", "hash", sub.Hash, "err", err)
		}
	}

	_ = s.advance(ctx, logger, intent, intent.State)
}

func (s *service) refreshWallet(ctx context.Context, logger *slog.Logger, userID int64) {
	if _, err := s.refreshz.Refresh(ctx, userID, true); err != nil {
		logger.Error("refreshz.Refresh", "user", userID, "err", err)
	}
}

// refreshInventories reconciles the NFT sets of the user and the vaults.
func (s *service) refreshInventories(ctx context.Context, logger *slog.Logger, wallet *core.Wallet) {
	if err := s.refreshz.RefreshNft(ctx, wallet.Addresses()); err != nil {
		logger.Error("refreshz.RefreshNft", "user", wallet.UserID, "err", err)
	}

	if err := s.refreshz.RefreshNft(ctx, s.vaultAddresses()); err != nil {
		logger.Error("refreshz.RefreshNft", "vault", true, "err", err)
	}
}
