package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pandodao/sac-wallet/core"
)

var pollInterval = time.Second

func (c *Chain) WaitForConfirmation(ctx context.Context, hash string, timeout time.Duration) (*core.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	txHash := common.HexToHash(hash)
	for {
		r, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return c.receipt(hash, r), nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", c.network, hash, core.ErrUnconfirmed)
		}

		if !errors.Is(err, ethereum.NotFound) {
			return nil, c.chainErr("receipt", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s %s: %w", c.network, hash, core.ErrUnconfirmed)
		case <-time.After(pollInterval):
		}
	}
}

func (c *Chain) receipt(hash string, r *types.Receipt) *core.Receipt {
	price := r.EffectiveGasPrice
	if price == nil {
		price = big.NewInt(0)
	}

	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(r.GasUsed))

	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}

	return &core.Receipt{
		Hash:        hash,
		Success:     r.Status == types.ReceiptStatusSuccessful,
		GasUsed:     fromUnits(fee, nativeDecimals),
		BlockNumber: block,
	}
}
