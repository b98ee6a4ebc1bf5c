package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/asaskevich/govalidator"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
	"github.com/zyedidia/generic/cache"
)

const (
	nativeDecimals  = 18
	balanceDecimals = 6
)

// Backend is the subset of ethclient.Client the adapter needs.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Config struct {
	Network string `valid:"in(eth|bfc),required"`
	ChainID int64  `valid:"required"`
	// Tokens maps a token symbol to its ERC-20 contract address.
	Tokens      map[string]string
	NftContract string
	MinterKey   string
}

func New(backend Backend, logger *slog.Logger, cfg Config) *Chain {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &Chain{
		backend:  backend,
		network:  core.NetworkType(cfg.Network),
		chainID:  big.NewInt(cfg.ChainID),
		logger:   logger.With("chain", cfg.Network),
		cfg:      cfg,
		decimals: cache.New[common.Address, uint8](64),
	}
}

type Chain struct {
	backend Backend
	network core.NetworkType
	chainID *big.Int
	logger  *slog.Logger
	cfg     Config

	decimals *cache.Cache[common.Address, uint8]
	mux      sync.Mutex
}

var _ core.Chain = (*Chain)(nil)

func (c *Chain) Network() core.NetworkType {
	return c.network
}

func (c *Chain) chainErr(op string, err error) error {
	return &core.ChainError{Network: c.network, Op: op, Err: err}
}

func (c *Chain) CoinBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, c.chainErr("balance", fmt.Errorf("invalid address %q", address))
	}

	wei, err := c.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, c.chainErr("balance", err)
	}

	// coin balances are floored to 6 decimals, like fee remainders
	return fromUnits(wei, nativeDecimals).RoundFloor(balanceDecimals), nil
}

func (c *Chain) TokenBalance(ctx context.Context, address, symbol string) (decimal.Decimal, error) {
	if symbol == string(c.network) {
		return c.CoinBalance(ctx, address)
	}

	contract, err := c.tokenContract(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	data, err := erc20ABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, err
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return decimal.Zero, c.chainErr("balanceOf", err)
	}

	// empty result for addresses the token never touched
	if len(result) == 0 {
		return decimal.Zero, nil
	}

	var balance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return decimal.Zero, c.chainErr("balanceOf", err)
	}

	decimals, err := c.tokenDecimals(ctx, contract)
	if err != nil {
		return decimal.Zero, err
	}

	return fromUnits(balance, decimals), nil
}

func (c *Chain) tokenContract(symbol string) (common.Address, error) {
	addr, ok := c.cfg.Tokens[symbol]
	if !ok || !common.IsHexAddress(addr) {
		return common.Address{}, &core.UnsupportedNetworkError{Network: string(c.network), Token: symbol}
	}

	return common.HexToAddress(addr), nil
}

func (c *Chain) tokenDecimals(ctx context.Context, contract common.Address) (uint8, error) {
	c.mux.Lock()
	v, ok := c.decimals.Get(contract)
	c.mux.Unlock()

	if ok {
		return v, nil
	}

	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return 0, c.chainErr("decimals", err)
	}

	out, err := erc20ABI.Unpack("decimals", result)
	if err != nil || len(out) == 0 {
		return 0, c.chainErr("decimals", errors.Join(errors.New("malformed decimals"), err))
	}

	v, ok = out[0].(uint8)
	if !ok {
		return 0, c.chainErr("decimals", fmt.Errorf("unexpected decimals type %T", out[0]))
	}

	c.mux.Lock()
	c.decimals.Put(contract, v)
	c.mux.Unlock()

	return v, nil
}

func toUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).BigInt()
}

func fromUnits(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(v, -int32(decimals))
}
