package cmds

import (
	"context"
	"testing"

	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func amount(s string) any {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

func TestTransferCommands(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		setup func(m *mocks.Transfer)
	}{
		{
			name: "to-wallet",
			args: []string{"to-wallet", "1", "ETH", "1.5"},
			setup: func(m *mocks.Transfer) {
				m.On("ToWallet", mock.Anything, int64(1), core.TokenEth, amount("1.5")).Return(true, nil).Once()
			},
		},
		{
			name: "to-spending",
			args: []string{"to-spending", "2", "usdt", "20"},
			setup: func(m *mocks.Transfer) {
				m.On("ToSpending", mock.Anything, int64(2), core.TokenUsdt, amount("20")).Return(true, nil).Once()
			},
		},
		{
			name: "withdraw",
			args: []string{"withdraw", "1", "apt", "0xexternal", "1.5", "--req", "req-1"},
			setup: func(m *mocks.Transfer) {
				m.On("Withdrawal", mock.Anything, mock.MatchedBy(func(w *core.Withdrawal) bool {
					return w.ReqID == "req-1" && w.Token == core.TokenApt && w.ToAddress == "0xexternal" && w.Amount.Equal(decimal.RequireFromString("1.5"))
				})).Return(true, nil).Once()
			},
		},
		{
			name: "withdraw-nft",
			args: []string{"withdraw-nft", "1", "eth", "7", "0xexternal"},
			setup: func(m *mocks.Transfer) {
				m.On("WithdrawalNFT", mock.Anything, int64(1), "7", core.NetworkEth, "0xexternal").Return(true, nil).Once()
			},
		},
		{
			name: "to-spending-nft",
			args: []string{"to-spending-nft", "1", "7"},
			setup: func(m *mocks.Transfer) {
				m.On("ToSpendingNFT", mock.Anything, int64(1), "7").Return(true, nil).Once()
			},
		},
		{
			name: "to-wallet-nft",
			args: []string{"to-wallet-nft", "1", "apt", "0xa1"},
			setup: func(m *mocks.Transfer) {
				m.On("ToWalletNFT", mock.Anything, int64(1), "0xa1", core.NetworkApt).Return(true, nil).Once()
			},
		},
		{
			name: "send",
			args: []string{"send", "1", "bfc", "0xexternal", "0.1"},
			setup: func(m *mocks.Transfer) {
				m.On("Send", mock.Anything, int64(1), core.NetworkBfc, "0xexternal", amount("0.1")).Return(&core.Receipt{Hash: "0x1", Success: true}, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mocks.Transfer{}
			tt.setup(m)

			c := &Cmd{Transferz: m}
			assert.NoError(t, c.Run(context.Background(), tt.args))
			m.AssertExpectations(t)
		})
	}
}

func TestInvalidArgs(t *testing.T) {
	m := &mocks.Transfer{}
	c := &Cmd{Transferz: m}

	for _, args := range [][]string{
		{"to-wallet", "x", "eth", "1"},
		{"to-wallet", "1", "doge", "1"},
		{"to-wallet", "1", "eth", "one"},
		{"withdraw-nft", "1", "sol", "7", "0xexternal"},
	} {
		assert.Error(t, c.Run(context.Background(), args), args)
	}

	m.AssertNotCalled(t, "ToWallet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportWallets(t *testing.T) {
	wallets := mocks.NewWallets(mocks.NewWallet(1, "0xuser", "0xaptuser"))
	c := &Cmd{Wallets: wallets}
	assert.NoError(t, c.Run(context.Background(), []string{"export-wallets"}))
	assert.Error(t, c.Run(context.Background(), []string{"export-wallet", "2"}))
}
