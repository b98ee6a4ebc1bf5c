package mocks

import (
	"context"

	"github.com/pandodao/sac-wallet/core"
	"github.com/stretchr/testify/mock"
)

type Refresh struct {
	mock.Mock
}

func (m *Refresh) Refresh(ctx context.Context, userID int64, force bool) (*core.Snapshot, error) {
	args := m.Called(ctx, userID, force)
	snapshot, _ := args.Get(0).(*core.Snapshot)
	return snapshot, args.Error(1)
}

func (m *Refresh) RefreshNft(ctx context.Context, addrs map[core.NetworkType]string) error {
	args := m.Called(ctx, addrs)
	return args.Error(0)
}
