package mocks

import (
	"context"

	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type Transfer struct {
	mock.Mock
}

func (m *Transfer) Withdrawal(ctx context.Context, w *core.Withdrawal) (bool, error) {
	args := m.Called(ctx, w)
	return args.Bool(0), args.Error(1)
}

func (m *Transfer) ToWallet(ctx context.Context, userID int64, token core.TokenType, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, userID, token, amount)
	return args.Bool(0), args.Error(1)
}

func (m *Transfer) ToSpending(ctx context.Context, userID int64, token core.TokenType, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, userID, token, amount)
	return args.Bool(0), args.Error(1)
}

func (m *Transfer) WithdrawalNFT(ctx context.Context, userID int64, tokenID string, network core.NetworkType, to string) (bool, error) {
	args := m.Called(ctx, userID, tokenID, network, to)
	return args.Bool(0), args.Error(1)
}

func (m *Transfer) ToSpendingNFT(ctx context.Context, userID int64, tokenID string) (bool, error) {
	args := m.Called(ctx, userID, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *Transfer) ToWalletNFT(ctx context.Context, userID int64, tokenID string, network core.NetworkType) (bool, error) {
	args := m.Called(ctx, userID, tokenID, network)
	return args.Bool(0), args.Error(1)
}

func (m *Transfer) Send(ctx context.Context, userID int64, network core.NetworkType, to string, amount decimal.Decimal) (*core.Receipt, error) {
	args := m.Called(ctx, userID, network, to, amount)
	r, _ := args.Get(0).(*core.Receipt)
	return r, args.Error(1)
}

func (m *Transfer) Resume(ctx context.Context, intent *core.Intent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}
