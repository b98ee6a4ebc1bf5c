package aptos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-resty/resty/v2"
	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

const (
	coinDecimals = 8
	coinType     = "0x1::aptos_coin::AptosCoin"
)

type Config struct {
	Endpoint   string `valid:"required,url"`
	IndexerURL string `valid:"url"`
	// Collection is the collection id the custodial NFTs belong to.
	Collection   string
	MaxGasAmount uint64
}

func New(logger *slog.Logger, cfg Config) *Chain {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.MaxGasAmount == 0 {
		cfg.MaxGasAmount = 20000
	}

	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &Chain{
		client:  client,
		indexer: resty.New().SetTimeout(10 * time.Second),
		logger:  logger.With("chain", core.NetworkApt),
		cfg:     cfg,
	}
}

type Chain struct {
	client  *resty.Client
	indexer *resty.Client
	logger  *slog.Logger
	cfg     Config
}

var _ core.Chain = (*Chain)(nil)

func (c *Chain) Network() core.NetworkType {
	return core.NetworkApt
}

func (c *Chain) chainErr(op string, err error) error {
	return &core.ChainError{Network: core.NetworkApt, Op: op, Err: err}
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// do runs r and maps transport and api failures to a ChainError.
func (c *Chain) do(op string, resp *resty.Response, err error) error {
	if err != nil {
		return c.chainErr(op, err)
	}

	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
			return c.chainErr(op, e)
		}

		return c.chainErr(op, fmt.Errorf("http status %d", resp.StatusCode()))
	}

	return nil
}

func (c *Chain) CoinBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var out []string
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"function":       "0x1::coin::balance",
			"type_arguments": []string{coinType},
			"arguments":      []string{address},
		}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/v1/view")

	if err := c.do("balance", resp, err); err != nil {
		return decimal.Zero, err
	}

	if len(out) != 1 {
		return decimal.Zero, c.chainErr("balance", fmt.Errorf("malformed view result %v", out))
	}

	v, err := decimal.NewFromString(out[0])
	if err != nil {
		return decimal.Zero, c.chainErr("balance", err)
	}

	return v.Shift(-coinDecimals), nil
}

func (c *Chain) TokenBalance(ctx context.Context, address, symbol string) (decimal.Decimal, error) {
	if symbol != string(core.NetworkApt) {
		return decimal.Zero, &core.UnsupportedNetworkError{Network: string(core.NetworkApt), Token: symbol}
	}

	return c.CoinBalance(ctx, address)
}
