package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

const coinGasLimit = 21000

func parseKey(key string) (*ecdsa.PrivateKey, common.Address, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}

	return pk, crypto.PubkeyToAddress(pk.PublicKey), nil
}

func (c *Chain) SendCoin(ctx context.Context, key, to string, amount decimal.Decimal) (*core.Submission, error) {
	if !common.IsHexAddress(to) {
		return nil, c.chainErr("send coin", fmt.Errorf("invalid address %q", to))
	}

	toAddr := common.HexToAddress(to)
	return c.send(ctx, "send coin", key, toAddr, toUnits(amount, nativeDecimals), nil)
}

func (c *Chain) SendToken(ctx context.Context, key, to, symbol string, amount decimal.Decimal) (*core.Submission, error) {
	if symbol == string(c.network) {
		return c.SendCoin(ctx, key, to, amount)
	}

	if !common.IsHexAddress(to) {
		return nil, c.chainErr("send token", fmt.Errorf("invalid address %q", to))
	}

	contract, err := c.tokenContract(symbol)
	if err != nil {
		return nil, err
	}

	decimals, err := c.tokenDecimals(ctx, contract)
	if err != nil {
		return nil, err
	}

	data, err := erc20ABI.Pack("transfer", common.HexToAddress(to), toUnits(amount, decimals))
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "send token", key, contract, big.NewInt(0), data)
}

// send signs and broadcasts a legacy transaction from key.
func (c *Chain) send(ctx context.Context, op, key string, to common.Address, value *big.Int, data []byte) (*core.Submission, error) {
	pk, from, err := parseKey(key)
	if err != nil {
		return nil, c.chainErr(op, err)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, c.chainErr(op, fmt.Errorf("get nonce: %w", err))
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, c.chainErr(op, fmt.Errorf("get gas price: %w", err))
	}

	gasLimit := uint64(coinGasLimit)
	if len(data) > 0 {
		gasLimit, err = c.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &to,
			Value: value,
			Data:  data,
		})

		if err != nil {
			return nil, c.chainErr(op, fmt.Errorf("estimate gas: %w", err))
		}
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), pk)
	if err != nil {
		return nil, c.chainErr(op, fmt.Errorf("sign transaction: %w", err))
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, c.chainErr(op, err)
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	c.logger.Info(op, "from", from.Hex(), "to", to.Hex(), "hash", signed.Hash().Hex(), "fee", fee)

	return &core.Submission{
		Hash:     signed.Hash().Hex(),
		GasUsed:  fromUnits(fee, nativeDecimals),
		GasPrice: fromUnits(gasPrice, nativeDecimals),
	}, nil
}
