package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/mocks"
	"github.com/pandodao/sac-wallet/service/chain"
	"github.com/pandodao/sac-wallet/service/freshness"
	"github.com/pandodao/sac-wallet/service/guard"
	"github.com/pandodao/sac-wallet/service/refresh"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	userEvm  = "0xuser"
	userApt  = "0xaptuser"
	vaultEvm = "0xvault"
	vaultApt = "0xaptvault"
	external = "0xexternal"
)

var d = decimal.RequireFromString

func mustAsset(t core.TokenType) core.Asset {
	asset, err := core.ResolveAsset(t)
	if err != nil {
		panic(err)
	}

	return asset
}

type countingGuard struct {
	core.Guard
	calls atomic.Int32
}

func (g *countingGuard) Do(ctx context.Context, key string, fn core.GuardFunc) error {
	g.calls.Add(1)
	return g.Guard.Do(ctx, key, fn)
}

type fixture struct {
	eth, bfc, apt *mocks.Chain
	spendings     *mocks.Spendings
	withdrawals   *mocks.Withdrawals
	nfts          *mocks.Nfts
	userNfts      *mocks.UserNfts
	intents       *mocks.Intents
	refreshz      core.RefreshService
	guard         *countingGuard
	svc           core.TransferService
}

func testConfig() Config {
	perNetwork := func(eth, apt string) map[core.NetworkType]decimal.Decimal {
		return map[core.NetworkType]decimal.Decimal{
			core.NetworkEth: d(eth),
			core.NetworkBfc: d(eth),
			core.NetworkApt: d(apt),
		}
	}

	return Config{
		Vaults: map[core.NetworkType]Vault{
			core.NetworkEth: {Address: vaultEvm, PrivateKey: mocks.Key(vaultEvm)},
			core.NetworkBfc: {Address: vaultEvm, PrivateKey: mocks.Key(vaultEvm)},
			core.NetworkApt: {Address: vaultApt, PrivateKey: mocks.Key(vaultApt)},
		},
		Fees: Fees{
			NetworkGas:            perNetwork("0.0001", "0.05"),
			ToWallet:              perNetwork("0.01", "0.01"),
			ToSpending:            perNetwork("0.01", "0.1"),
			WithdrawalNft:         perNetwork("0.01", "0.1"),
			ToSpendingNft:         perNetwork("0.01", "0.1"),
			ToWalletNftNoneMinted: perNetwork("0.005", "0.005"),
			ToWalletNftMinted:     perNetwork("0.02", "0.02"),
		},
		ConfirmTimeout: time.Second,
	}
}

func newFixture(opts ...func(*Config)) *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wallets := mocks.NewWallets(mocks.NewWallet(1, userEvm, userApt))

	f := &fixture{
		eth:         mocks.NewChain(core.NetworkEth, d("0.002")),
		bfc:         mocks.NewChain(core.NetworkBfc, d("0.002")),
		apt:         mocks.NewChain(core.NetworkApt, d("0.05")),
		spendings:   mocks.NewSpendings(),
		withdrawals: mocks.NewWithdrawals(),
		nfts:        mocks.NewNfts(),
		userNfts:    mocks.NewUserNfts(),
		intents:     mocks.NewIntents(),
		guard:       &countingGuard{Guard: guard.New(logger, guard.Config{})},
	}

	chains := chain.NewRegistry(f.eth, f.bfc, f.apt)
	f.refreshz = refresh.New(wallets, f.nfts, chains, freshness.NewMemory(16, time.Hour), logger, refresh.Config{})

	cfg := testConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	f.svc = New(wallets, f.spendings, f.withdrawals, f.nfts, f.userNfts, f.intents, chains, f.refreshz, f.guard, logger, cfg)
	return f
}

func (f *fixture) spending(network core.NetworkType, token string) decimal.Decimal {
	v, _ := f.spendings.Find(context.Background(), 1, network, token)
	return v
}

func (f *fixture) lastIntent(t *testing.T, kind core.IntentKind) *core.Intent {
	intents := f.intents.Kinds(kind)
	require.NotEmpty(t, intents)
	return intents[len(intents)-1]
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestAmountNotPositive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, amount := range []decimal.Decimal{decimal.Zero, d("-1")} {
		ok, err := f.svc.Withdrawal(ctx, &core.Withdrawal{UserID: 1, Token: core.TokenApt, ToAddress: external, Amount: amount})
		assert.False(t, ok)
		assert.NoError(t, err)

		ok, err = f.svc.ToWallet(ctx, 1, core.TokenEth, amount)
		assert.False(t, ok)
		assert.NoError(t, err)

		ok, err = f.svc.ToSpending(ctx, 1, core.TokenEth, amount)
		assert.False(t, ok)
		assert.NoError(t, err)
	}

	assert.Zero(t, f.guard.calls.Load())
	assert.Zero(t, f.spendings.Adjusted)
	assert.Empty(t, f.withdrawals.Errors)
}

func TestUnsupportedToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Withdrawal(ctx, &core.Withdrawal{UserID: 1, Token: "doge", ToAddress: external, Amount: d("1")})
	var unsupported *core.UnsupportedNetworkError
	assert.ErrorAs(t, err, &unsupported)

	_, err = f.svc.ToWallet(ctx, 1, "doge", d("1"))
	assert.ErrorAs(t, err, &unsupported)

	_, err = f.svc.ToWalletNFT(ctx, 1, "9", "sol")
	assert.ErrorAs(t, err, &unsupported)

	assert.Zero(t, f.guard.calls.Load())
	for _, c := range []*mocks.Chain{f.eth, f.bfc, f.apt} {
		assert.Zero(t, c.Calls("TokenBalance"))
		assert.Zero(t, c.Calls("Send"))
	}
}

func TestWithdrawalApt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.apt.SetBalance(userApt, "apt", d("10"))

	w := &core.Withdrawal{ReqID: "req-1", UserID: 1, Token: core.TokenApt, ToAddress: external, Amount: d("1.5")}
	ok, err := f.svc.Withdrawal(ctx, w)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.apt.Calls("Send"))

	assertDecimal(t, "1.5", f.apt.Balance(external, "apt"))
	assert.Equal(t, core.WithdrawalStatusHashRecorded, w.Status)
	assert.NotEmpty(t, w.Hash)
	assert.Equal(t, userApt, w.FromAddress)

	intent := f.lastIntent(t, core.IntentWithdrawal)
	assert.Equal(t, core.IntentStateConfirmed, intent.State)
	assert.Equal(t, "withdrawal:req-1", intent.TraceID)
	assert.Equal(t, w.Hash, intent.TxHash)

	// the forced refresh filled the cache
	snapshot, err := f.refreshz.Refresh(ctx, 1, false)
	require.NoError(t, err)
	assertDecimal(t, "8.45", snapshot.Balances[core.TokenApt])
}

func TestWithdrawalInsufficient(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		ok      bool
	}{
		{"boundary", "1.55", true},
		{"short", "1.5499", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.apt.SetBalance(userApt, "apt", d(tt.balance))

			w := &core.Withdrawal{ReqID: "req-" + tt.name, UserID: 1, Token: core.TokenApt, ToAddress: external, Amount: d("1.5")}
			ok, err := f.svc.Withdrawal(context.Background(), w)
			assert.Equal(t, tt.ok, ok)

			if tt.ok {
				assert.NoError(t, err)
				assert.Empty(t, f.withdrawals.Errors)
				return
			}

			var insufficient *core.InsufficientFundsError
			require.ErrorAs(t, err, &insufficient)
			assertDecimal(t, "1.5", insufficient.Amount)
			assertDecimal(t, "0.05", insufficient.Fee)
			assert.Zero(t, f.apt.Calls("Send"))
			assert.Equal(t, core.WithdrawalStatusErrored, w.Status)
			assert.Contains(t, f.withdrawals.Errors[w.ReqID], "not enough coin")
		})
	}
}

func TestWithdrawalSendFailure(t *testing.T) {
	f := newFixture()
	f.eth.SetBalance(userEvm, "eth", d("2"))
	f.eth.SendErr = errors.New("nonce too low")

	w := &core.Withdrawal{ReqID: "req-1", UserID: 1, Token: core.TokenEth, ToAddress: external, Amount: d("1")}
	ok, err := f.svc.Withdrawal(context.Background(), w)
	assert.False(t, ok)

	var chainErr *core.ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Contains(t, f.withdrawals.Errors["req-1"], "nonce too low")
	assert.Equal(t, core.IntentStateFailed, f.lastIntent(t, core.IntentWithdrawal).State)
}

func TestWithdrawalRevert(t *testing.T) {
	f := newFixture()
	f.eth.SetBalance(userEvm, "eth", d("2"))
	f.eth.Revert = true

	w := &core.Withdrawal{ReqID: "req-1", UserID: 1, Token: core.TokenEth, ToAddress: external, Amount: d("1")}
	ok, err := f.svc.Withdrawal(context.Background(), w)
	assert.False(t, ok)

	var chainErr *core.ChainError
	require.ErrorAs(t, err, &chainErr)

	// a reverted transfer never reaches hash-recorded
	assert.Equal(t, core.WithdrawalStatusErrored, w.Status)
	assert.Empty(t, w.Hash)
	assert.Contains(t, f.withdrawals.Errors["req-1"], "reverted")
	assert.Equal(t, core.IntentStateFailed, f.lastIntent(t, core.IntentWithdrawal).State)
}

func TestWithdrawalUnconfirmed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.eth.SetBalance(userEvm, "eth", d("2"))
	f.eth.Unconfirmed = true

	w := &core.Withdrawal{ReqID: "req-1", UserID: 1, Token: core.TokenEth, ToAddress: external, Amount: d("1")}
	ok, err := f.svc.Withdrawal(ctx, w)
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrUnconfirmed)

	// left pending for recovery, no error row
	assert.Equal(t, core.WithdrawalStatusPending, w.Status)
	assert.Empty(t, f.withdrawals.Errors)

	intent := f.lastIntent(t, core.IntentWithdrawal)
	assert.Equal(t, core.IntentStateUnconfirmed, intent.State)

	f.eth.Unconfirmed = false
	require.NoError(t, f.svc.Resume(ctx, intent))
	assert.Equal(t, core.WithdrawalStatusHashRecorded, w.Status)
	assert.Equal(t, intent.TxHash, w.Hash)
}

func TestSubmittedPersist(t *testing.T) {
	t.Run("retried", func(t *testing.T) {
		f := newFixture()
		f.spendings.Set(1, core.NetworkEth, "eth", d("1.01"))
		f.eth.SetBalance(vaultEvm, "eth", d("5"))
		f.intents.FailState = core.IntentStateChainSubmitted
		f.intents.FailUpdates = 1

		ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, core.IntentStateConfirmed, f.lastIntent(t, core.IntentToWallet).State)
	})

	t.Run("gives up before waiting", func(t *testing.T) {
		f := newFixture()
		f.spendings.Set(1, core.NetworkEth, "eth", d("1.01"))
		f.eth.SetBalance(vaultEvm, "eth", d("5"))
		f.intents.FailState = core.IntentStateChainSubmitted
		f.intents.FailUpdates = 10

		ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
		assert.False(t, ok)
		assert.ErrorIs(t, err, core.ErrUnconfirmed)
		assert.Equal(t, 1, f.eth.Calls("Send"))
		assert.Zero(t, f.eth.Calls("WaitForConfirmation"))

		// the transfer was sent, its debits stay applied
		assertDecimal(t, "0", f.spending(core.NetworkEth, "eth"))
		intent := f.lastIntent(t, core.IntentToWallet)
		assert.Equal(t, core.IntentStateSubmitting, intent.State)
		assert.True(t, intent.LedgerApplied)

		// recovery cannot tell whether the send went out and leaves it to an operator
		require.NoError(t, f.svc.Resume(context.Background(), intent))
		assertDecimal(t, "0", f.spending(core.NetworkEth, "eth"))
		intent = f.lastIntent(t, core.IntentToWallet)
		assert.Equal(t, core.IntentStateManual, intent.State)
		assert.Equal(t, errUnknownOutcome.Error(), intent.Error)
	})

	t.Run("not submitting", func(t *testing.T) {
		f := newFixture()
		f.spendings.Set(1, core.NetworkEth, "eth", d("1.01"))
		f.eth.SetBalance(vaultEvm, "eth", d("5"))
		f.intents.FailState = core.IntentStateSubmitting
		f.intents.FailUpdates = 1

		ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
		assert.False(t, ok)
		assert.Error(t, err)
		assert.Zero(t, f.eth.Calls("Send"))

		assertDecimal(t, "1.01", f.spending(core.NetworkEth, "eth"))
		assert.Equal(t, core.IntentStateFailed, f.lastIntent(t, core.IntentToWallet).State)
	})
}

func TestToWallet(t *testing.T) {
	tests := []struct {
		name     string
		spending string
		ok       bool
		left     string
	}{
		{"boundary", "1.01", true, "0"},
		{"surplus", "3", true, "1.99"},
		{"short", "1.0099", false, "1.0099"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.spendings.Set(1, core.NetworkEth, "eth", d(tt.spending))
			f.eth.SetBalance(vaultEvm, "eth", d("5"))

			ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
			assert.Equal(t, tt.ok, ok)
			assertDecimal(t, tt.left, f.spending(core.NetworkEth, "eth"))

			if !tt.ok {
				var insufficient *core.InsufficientFundsError
				assert.ErrorAs(t, err, &insufficient)
				assert.Zero(t, f.spendings.Adjusted)
				assert.Zero(t, f.eth.Calls("Send"))
				return
			}

			require.NoError(t, err)
			assertDecimal(t, "1", f.eth.Balance(userEvm, "eth"))

			intent := f.lastIntent(t, core.IntentToWallet)
			assert.Equal(t, core.IntentStateConfirmed, intent.State)
			assert.True(t, intent.LedgerApplied)
			assertDecimal(t, "0.0079", intent.FeeRemainder)
		})
	}
}

func TestToWalletToken(t *testing.T) {
	f := newFixture()
	f.spendings.Set(1, core.NetworkEth, "eth", d("0.01"))
	f.spendings.Set(1, core.NetworkEth, "usdt", d("20"))
	f.eth.SetBalance(vaultEvm, "eth", d("1"))
	f.eth.SetBalance(vaultEvm, "usdt", d("100"))

	ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenUsdt, d("20"))
	require.NoError(t, err)
	assert.True(t, ok)

	assertDecimal(t, "0", f.spending(core.NetworkEth, "eth"))
	assertDecimal(t, "0", f.spending(core.NetworkEth, "usdt"))
	assertDecimal(t, "20", f.eth.Balance(userEvm, "usdt"))
}

func TestToWalletVaultShort(t *testing.T) {
	f := newFixture()
	f.spendings.Set(1, core.NetworkEth, "eth", d("2"))
	f.eth.SetBalance(vaultEvm, "eth", d("0.5"))

	_, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
	var insufficient *core.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "toWallet vault", insufficient.Op)
	assert.Zero(t, f.spendings.Adjusted)
}

func TestToWalletConcurrent(t *testing.T) {
	f := newFixture()
	f.spendings.Set(1, core.NetworkEth, "eth", d("1.01"))
	f.eth.SetBalance(vaultEvm, "eth", d("5"))

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		errs      = make(chan error, 2)
	)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
			if ok {
				successes.Add(1)
			}

			if err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	assert.Equal(t, int32(1), successes.Load())
	for err := range errs {
		var insufficient *core.InsufficientFundsError
		assert.ErrorAs(t, err, &insufficient)
	}

	assertDecimal(t, "0", f.spending(core.NetworkEth, "eth"))
	assertDecimal(t, "1", f.eth.Balance(userEvm, "eth"))
	assert.Equal(t, 1, f.eth.Calls("Send"))
}

func TestToWalletSendFailure(t *testing.T) {
	f := newFixture()
	f.spendings.Set(1, core.NetworkEth, "eth", d("1.01"))
	f.eth.SetBalance(vaultEvm, "eth", d("5"))
	f.eth.SendErr = errors.New("nonce too low")

	ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
	assert.False(t, ok)

	var chainErr *core.ChainError
	require.ErrorAs(t, err, &chainErr)

	assertDecimal(t, "1.01", f.spending(core.NetworkEth, "eth"))
	assert.Equal(t, 2, f.spendings.Adjusted)

	intent := f.lastIntent(t, core.IntentToWallet)
	assert.Equal(t, core.IntentStateFailed, intent.State)
	assert.False(t, intent.LedgerApplied)
	assert.Contains(t, intent.Error, "nonce too low")
}

func TestToWalletUnconfirmed(t *testing.T) {
	f := newFixture()
	f.spendings.Set(1, core.NetworkEth, "eth", d("1.01"))
	f.eth.SetBalance(vaultEvm, "eth", d("5"))
	f.eth.Unconfirmed = true

	ok, err := f.svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrUnconfirmed)

	// debits stay applied until the transaction is settled
	assertDecimal(t, "0", f.spending(core.NetworkEth, "eth"))

	intent := f.lastIntent(t, core.IntentToWallet)
	assert.Equal(t, core.IntentStateUnconfirmed, intent.State)
	assert.NotEmpty(t, intent.TxHash)
}

func TestToSpending(t *testing.T) {
	f := newFixture()
	f.eth.SetBalance(userEvm, "eth", d("2"))

	ok, err := f.svc.ToSpending(context.Background(), 1, core.TokenEth, d("1"))
	require.NoError(t, err)
	assert.True(t, ok)

	assertDecimal(t, "1", f.spending(core.NetworkEth, "eth"))
	assertDecimal(t, "1.0079", f.eth.Balance(vaultEvm, "eth"))
	assertDecimal(t, "0.9881", f.eth.Balance(userEvm, "eth"))

	intent := f.lastIntent(t, core.IntentToSpending)
	assert.Equal(t, core.IntentStateConfirmed, intent.State)
	assertDecimal(t, "0.0079", intent.FeeRemainder)
	assert.NotEmpty(t, intent.FeeTxHash)
	assert.Equal(t, 2, f.eth.Calls("Send"))
}

func TestToSpendingRevert(t *testing.T) {
	f := newFixture()
	f.eth.SetBalance(userEvm, "eth", d("2"))
	f.eth.Revert = true

	ok, err := f.svc.ToSpending(context.Background(), 1, core.TokenEth, d("1"))
	assert.False(t, ok)

	var chainErr *core.ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Zero(t, f.spendings.Adjusted)
	assertDecimal(t, "0", f.spending(core.NetworkEth, "eth"))
	assert.Equal(t, core.IntentStateFailed, f.lastIntent(t, core.IntentToSpending).State)
}

func TestToSpendingMissingVault(t *testing.T) {
	f := newFixture(func(cfg *Config) {
		delete(cfg.Vaults, core.NetworkBfc)
	})
	f.bfc.SetBalance(userEvm, "bfc", d("2"))

	_, err := f.svc.ToSpending(context.Background(), 1, core.TokenBfc, d("1"))
	var configErr *core.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, core.NetworkBfc, configErr.Network)
	assert.Zero(t, f.bfc.Calls("Send"))
}

func TestSend(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.bfc.SetBalance(userEvm, "bfc", d("1"))

	r, err := f.svc.Send(ctx, 1, core.NetworkBfc, external, d("0.25"))
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.NotEmpty(t, r.Hash)
	assertDecimal(t, "0.25", f.bfc.Balance(external, "bfc"))
	assertDecimal(t, "0.748", f.bfc.Balance(userEvm, "bfc"))

	// direct sends bypass the ledger and the intent log
	assert.Zero(t, f.guard.calls.Load())
	assert.Zero(t, f.spendings.Adjusted)
	assert.Empty(t, f.intents.Kinds(core.IntentWithdrawal))

	_, err = f.svc.Send(ctx, 1, core.NetworkBfc, external, decimal.Zero)
	assert.Error(t, err)

	_, err = f.svc.Send(ctx, 1, core.NetworkBfc, external, d("5"))
	var chainErr *core.ChainError
	assert.ErrorAs(t, err, &chainErr)
}

func TestForcedRefresh(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eth := mocks.NewChain(core.NetworkEth, d("0.002"))
	r := &mocks.Refresh{}
	r.On("Refresh", mock.Anything, int64(1), true).Return(nil, nil).Once()

	svc := New(
		mocks.NewWallets(mocks.NewWallet(1, userEvm, userApt)),
		mocks.NewSpendings(),
		mocks.NewWithdrawals(),
		mocks.NewNfts(),
		mocks.NewUserNfts(),
		mocks.NewIntents(),
		chain.NewRegistry(eth),
		r,
		guard.New(logger, guard.Config{}),
		logger,
		testConfig(),
	)

	ok, err := svc.ToWallet(context.Background(), 1, core.TokenEth, d("1"))
	assert.False(t, ok)
	assert.Error(t, err)
	r.AssertExpectations(t)
}

func TestWithdrawalNFT(t *testing.T) {
	t.Run("not owner", func(t *testing.T) {
		f := newFixture()
		f.eth.SetBalance(userEvm, "eth", d("1"))
		f.eth.SetOwner("7", "0xsomeone")

		ok, err := f.svc.WithdrawalNFT(context.Background(), 1, "7", core.NetworkEth, external)
		assert.False(t, ok)

		var notOwner *core.NotOwnerError
		require.ErrorAs(t, err, &notOwner)
		assert.Equal(t, userEvm, notOwner.Address)
		assert.Zero(t, f.eth.Calls("TransferNFT"))
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture()
		f.eth.SetBalance(userEvm, "eth", d("1"))
		f.eth.SetOwner("7", userEvm)

		ok, err := f.svc.WithdrawalNFT(context.Background(), 1, "7", core.NetworkEth, external)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Equal(t, external, f.eth.Owner("7"))
		assertDecimal(t, "0.0079", f.eth.Balance(vaultEvm, "eth"))

		intent := f.lastIntent(t, core.IntentWithdrawalNft)
		assert.Equal(t, core.IntentStateConfirmed, intent.State)
		assert.NotEmpty(t, intent.FeeTxHash)

		owned, err := f.nfts.ListOwned(context.Background(), userEvm)
		require.NoError(t, err)
		assert.Empty(t, owned)
	})

	t.Run("fee short", func(t *testing.T) {
		f := newFixture()
		f.eth.SetBalance(userEvm, "eth", d("0.001"))
		f.eth.SetOwner("7", userEvm)

		_, err := f.svc.WithdrawalNFT(context.Background(), 1, "7", core.NetworkEth, external)
		var insufficient *core.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.Zero(t, f.eth.Calls("TransferNFT"))
	})
}

func TestToSpendingNFT(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.apt.SetBalance(userApt, "apt", d("1"))
	f.apt.SetOwner("0xa1", userApt)

	ok, err := f.svc.ToSpendingNFT(ctx, 1, "0xa1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, vaultApt, f.apt.Owner("0xa1"))

	records, err := f.userNfts.ListToken(ctx, "0xa1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, &core.UserNft{UserID: 1, TokenID: "0xa1", Network: core.NetworkApt, Address: vaultApt}, records[0])

	owned, err := f.nfts.ListOwned(ctx, vaultApt)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	// no remainder after gas, nothing forwarded
	intent := f.lastIntent(t, core.IntentToSpendingNft)
	assert.True(t, intent.FeeRemainder.IsZero())
	assert.Empty(t, intent.FeeTxHash)

	_, err = f.svc.ToSpendingNFT(ctx, 1, "0xa1")
	var offchain *core.AlreadyOffchainError
	assert.ErrorAs(t, err, &offchain)
	assert.Equal(t, 1, f.apt.Calls("TransferNFT"))
}

func TestToSpendingNFTNotOwner(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ToSpendingNFT(context.Background(), 1, "42")
	var notOwner *core.NotOwnerError
	require.ErrorAs(t, err, &notOwner)
	assert.Zero(t, f.eth.Calls("TransferNFT"))
	assert.Zero(t, f.apt.Calls("TransferNFT"))
}

func TestToWalletNFT(t *testing.T) {
	ctx := context.Background()

	t.Run("never minted without funds", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.userNfts.Save(ctx, &core.UserNft{UserID: 1, TokenID: "9"}))

		ok, err := f.svc.ToWalletNFT(ctx, 1, "9", core.NetworkEth)
		assert.False(t, ok)

		var insufficient *core.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.Zero(t, f.eth.Calls("MintNFT"))
		assert.Zero(t, f.spendings.Adjusted)
	})

	t.Run("mint", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.userNfts.Save(ctx, &core.UserNft{UserID: 1, TokenID: "9"}))
		f.spendings.Set(1, core.NetworkEth, "eth", d("1"))

		ok, err := f.svc.ToWalletNFT(ctx, 1, "9", core.NetworkEth)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Equal(t, userEvm, f.eth.Owner("9"))
		assertDecimal(t, "0.995", f.spending(core.NetworkEth, "eth"))

		records, err := f.userNfts.ListToken(ctx, "9")
		require.NoError(t, err)
		assert.Empty(t, records)

		intent := f.lastIntent(t, core.IntentToWalletNftMint)
		assert.Equal(t, core.IntentStateConfirmed, intent.State)

		_, err = f.nfts.FindOwned(ctx, userEvm, core.NetworkEth, "9")
		assert.NoError(t, err)
	})

	t.Run("mint without vault key", func(t *testing.T) {
		f := newFixture(func(cfg *Config) {
			cfg.Vaults[core.NetworkEth] = Vault{Address: vaultEvm}
		})
		require.NoError(t, f.userNfts.Save(ctx, &core.UserNft{UserID: 1, TokenID: "9"}))
		f.spendings.Set(1, core.NetworkEth, "eth", d("1"))

		ok, err := f.svc.ToWalletNFT(ctx, 1, "9", core.NetworkEth)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, userEvm, f.eth.Owner("9"))
	})

	t.Run("minted without vault key", func(t *testing.T) {
		f := newFixture(func(cfg *Config) {
			cfg.Vaults[core.NetworkEth] = Vault{Address: vaultEvm}
		})
		require.NoError(t, f.userNfts.Save(ctx, &core.UserNft{UserID: 1, TokenID: "9", Network: core.NetworkEth, Address: vaultEvm}))
		f.eth.SetOwner("9", vaultEvm)
		f.spendings.Set(1, core.NetworkEth, "eth", d("1"))

		_, err := f.svc.ToWalletNFT(ctx, 1, "9", core.NetworkEth)
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "vault private key", cfgErr.Field)
		assert.Zero(t, f.eth.Calls("TransferNFT"))
		assert.Zero(t, f.spendings.Adjusted)
	})

	t.Run("minted on apt", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.userNfts.Save(ctx, &core.UserNft{UserID: 1, TokenID: "0xa2", Network: core.NetworkApt, Address: vaultApt}))
		f.apt.SetOwner("0xa2", vaultApt)
		f.apt.SetBalance(vaultApt, "apt", d("1"))
		f.spendings.Set(1, core.NetworkApt, "apt", d("1"))

		ok, err := f.svc.ToWalletNFT(ctx, 1, "0xa2", core.NetworkApt)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Equal(t, userApt, f.apt.Owner("0xa2"))
		assertDecimal(t, "0.98", f.spending(core.NetworkApt, "apt"))
		assert.Zero(t, f.apt.Calls("MintNFT"))
		assert.Equal(t, core.IntentStateConfirmed, f.lastIntent(t, core.IntentToWalletNft).State)
	})

	t.Run("never minted on apt", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.userNfts.Save(ctx, &core.UserNft{UserID: 1, TokenID: "9"}))
		f.spendings.Set(1, core.NetworkApt, "apt", d("1"))

		_, err := f.svc.ToWalletNFT(ctx, 1, "9", core.NetworkApt)
		assert.ErrorIs(t, err, core.ErrMintUnsupported)
		assert.Zero(t, f.apt.Calls("MintNFT"))
		assert.Zero(t, f.spendings.Adjusted)
	})

	t.Run("no custody record", func(t *testing.T) {
		f := newFixture()
		f.spendings.Set(1, core.NetworkEth, "eth", d("1"))

		_, err := f.svc.ToWalletNFT(ctx, 1, "9", core.NetworkEth)
		var stateErr *core.NftStateError
		assert.ErrorAs(t, err, &stateErr)
		assert.Zero(t, f.spendings.Adjusted)
	})

	t.Run("mint fails", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.userNfts.Save(ctx, &core.UserNft{UserID: 1, TokenID: "9"}))
		f.spendings.Set(1, core.NetworkEth, "eth", d("1"))
		f.eth.SendErr = errors.New("minter out of gas")

		ok, err := f.svc.ToWalletNFT(ctx, 1, "9", core.NetworkEth)
		assert.False(t, ok)
		assert.Error(t, err)

		assertDecimal(t, "1", f.spending(core.NetworkEth, "eth"))
		records, err := f.userNfts.ListToken(ctx, "9")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("reverses unsubmitted debits", func(t *testing.T) {
		f := newFixture()
		f.spendings.Set(1, core.NetworkEth, "eth", d("2"))

		intent := &core.Intent{
			TraceID: "t-1",
			Kind:    core.IntentToWallet,
			UserID:  1,
			Network: core.NetworkEth,
			Token:   core.TokenEth,
			Amount:  d("1"),
			Debits:  debitEntries(1, mustAsset(core.TokenEth), d("1"), decimal.Zero),
		}
		require.NoError(t, f.intents.Create(ctx, intent))
		require.NoError(t, f.spendings.Adjust(ctx, intent.TraceID, "to wallet", intent.Debits))
		assertDecimal(t, "1", f.spending(core.NetworkEth, "eth"))

		require.NoError(t, f.svc.Resume(ctx, intent))
		assertDecimal(t, "2", f.spending(core.NetworkEth, "eth"))

		stored, err := f.intents.FindTrace(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, core.IntentStateFailed, stored.State)
		assert.Zero(t, f.eth.Calls("Send"))
	})

	t.Run("unapplied debits are not reversed", func(t *testing.T) {
		f := newFixture()
		f.spendings.Set(1, core.NetworkEth, "eth", d("2"))

		intent := &core.Intent{
			TraceID: "t-1",
			Kind:    core.IntentToWallet,
			UserID:  1,
			Network: core.NetworkEth,
			Debits:  debitEntries(1, mustAsset(core.TokenEth), d("1"), decimal.Zero),
		}
		require.NoError(t, f.intents.Create(ctx, intent))

		require.NoError(t, f.svc.Resume(ctx, intent))
		assertDecimal(t, "2", f.spending(core.NetworkEth, "eth"))
		assert.Zero(t, f.spendings.Adjusted)
	})

	t.Run("credits confirmed to spending", func(t *testing.T) {
		f := newFixture()
		f.eth.SetBalance(userEvm, "eth", d("2"))
		sub, err := f.eth.SendToken(ctx, mocks.Key(userEvm), vaultEvm, "eth", d("1"))
		require.NoError(t, err)

		intent := &core.Intent{
			TraceID: "t-2",
			Kind:    core.IntentToSpending,
			State:   core.IntentStateChainSubmitted,
			UserID:  1,
			Network: core.NetworkEth,
			Token:   core.TokenEth,
			Amount:  d("1"),
			Fee:     d("0.01"),
			Credits: []*core.SpendingEntry{{UserID: 1, Network: core.NetworkEth, Token: "eth", Delta: d("1")}},
			TxHash:  sub.Hash,
		}
		require.NoError(t, f.intents.Create(ctx, intent))

		require.NoError(t, f.svc.Resume(ctx, intent))
		require.NoError(t, f.svc.Resume(ctx, intent))
		assertDecimal(t, "1", f.spending(core.NetworkEth, "eth"))

		stored, err := f.intents.FindTrace(ctx, "t-2")
		require.NoError(t, err)
		assert.Equal(t, core.IntentStateConfirmed, stored.State)
		assertDecimal(t, "0.0079", stored.FeeRemainder)
	})

	t.Run("still unconfirmed", func(t *testing.T) {
		f := newFixture()
		f.eth.Unconfirmed = true

		intent := &core.Intent{
			TraceID: "t-3",
			Kind:    core.IntentWithdrawal,
			State:   core.IntentStateChainSubmitted,
			UserID:  1,
			Network: core.NetworkEth,
			TxHash:  "0xeth0001",
		}
		require.NoError(t, f.intents.Create(ctx, intent))

		require.NoError(t, f.svc.Resume(ctx, intent))
		stored, err := f.intents.FindTrace(ctx, "t-3")
		require.NoError(t, err)
		assert.Equal(t, core.IntentStateUnconfirmed, stored.State)
	})

	t.Run("reverted withdrawal errors its request", func(t *testing.T) {
		f := newFixture()
		f.eth.SetBalance(userEvm, "eth", d("2"))
		f.eth.Revert = true

		w := &core.Withdrawal{ReqID: "req-8", UserID: 1, Token: core.TokenEth, Network: core.NetworkEth, ToAddress: external, Amount: d("1")}
		require.NoError(t, f.withdrawals.Create(ctx, w))

		sub, err := f.eth.SendToken(ctx, mocks.Key(userEvm), external, "eth", d("1"))
		require.NoError(t, err)

		intent := &core.Intent{
			TraceID: core.WithdrawalTrace("req-8"),
			Kind:    core.IntentWithdrawal,
			State:   core.IntentStateChainSubmitted,
			UserID:  1,
			Network: core.NetworkEth,
			TxHash:  sub.Hash,
		}
		require.NoError(t, f.intents.Create(ctx, intent))

		require.NoError(t, f.svc.Resume(ctx, intent))
		assert.Equal(t, core.WithdrawalStatusErrored, w.Status)
		assert.Empty(t, w.Hash)
		assert.Contains(t, f.withdrawals.Errors["req-8"], "reverted")
	})

	t.Run("unsubmitted withdrawal errors its request", func(t *testing.T) {
		f := newFixture()
		w := &core.Withdrawal{ReqID: "req-9", UserID: 1, Token: core.TokenEth, Network: core.NetworkEth, ToAddress: external, Amount: d("1")}
		require.NoError(t, f.withdrawals.Create(ctx, w))

		intent := &core.Intent{TraceID: core.WithdrawalTrace("req-9"), Kind: core.IntentWithdrawal, UserID: 1, Network: core.NetworkEth}
		require.NoError(t, f.intents.Create(ctx, intent))

		require.NoError(t, f.svc.Resume(ctx, intent))
		assert.Equal(t, core.WithdrawalStatusErrored, w.Status)
		assert.Equal(t, errInterrupted.Error(), f.withdrawals.Errors["req-9"])
	})
}
