package aptos

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

var pollInterval = time.Second

type txStatus struct {
	Type         string `json:"type"`
	Hash         string `json:"hash"`
	Success      bool   `json:"success"`
	VMStatus     string `json:"vm_status"`
	GasUsed      string `json:"gas_used"`
	GasUnitPrice string `json:"gas_unit_price"`
	Version      string `json:"version"`
}

func (c *Chain) WaitForConfirmation(ctx context.Context, hash string, timeout time.Duration) (*core.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		var out txStatus
		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&out).
			SetError(&apiError{}).
			Get("/v1/transactions/by_hash/" + hash)

		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%s %s: %w", core.NetworkApt, hash, core.ErrUnconfirmed)
		case err == nil && resp.StatusCode() == http.StatusNotFound:
		case err != nil || resp.IsError():
			return nil, c.do("receipt", resp, err)
		case out.Type != "pending_transaction":
			return receipt(hash, &out), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s %s: %w", core.NetworkApt, hash, core.ErrUnconfirmed)
		case <-time.After(pollInterval):
		}
	}
}

func receipt(hash string, s *txStatus) *core.Receipt {
	gasUsed, _ := decimal.NewFromString(s.GasUsed)
	price, _ := decimal.NewFromString(s.GasUnitPrice)
	version, _ := decimal.NewFromString(s.Version)

	return &core.Receipt{
		Hash:        hash,
		Success:     s.Success,
		GasUsed:     gasUsed.Mul(price).Shift(-coinDecimals),
		BlockNumber: uint64(version.IntPart()),
	}
}
