package aptos

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

type entryPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

type transaction struct {
	Sender                  string        `json:"sender"`
	SequenceNumber          string        `json:"sequence_number"`
	MaxGasAmount            string        `json:"max_gas_amount"`
	GasUnitPrice            string        `json:"gas_unit_price"`
	ExpirationTimestampSecs string        `json:"expiration_timestamp_secs"`
	Payload                 *entryPayload `json:"payload"`
	Signature               *signature    `json:"signature,omitempty"`
}

type signature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

func (c *Chain) SendCoin(ctx context.Context, key, to string, amount decimal.Decimal) (*core.Submission, error) {
	return c.submit(ctx, "send coin", key, &entryPayload{
		Type:          "entry_function_payload",
		Function:      "0x1::aptos_account::transfer",
		TypeArguments: []string{},
		Arguments:     []any{to, amount.Shift(coinDecimals).Truncate(0).String()},
	})
}

func (c *Chain) SendToken(ctx context.Context, key, to, symbol string, amount decimal.Decimal) (*core.Submission, error) {
	if symbol != string(core.NetworkApt) {
		return nil, &core.UnsupportedNetworkError{Network: string(core.NetworkApt), Token: symbol}
	}

	return c.SendCoin(ctx, key, to, amount)
}

func (c *Chain) sequenceNumber(ctx context.Context, address string) (string, error) {
	var out struct {
		SequenceNumber string `json:"sequence_number"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/v1/accounts/" + address)

	if err := c.do("account", resp, err); err != nil {
		return "", err
	}

	return out.SequenceNumber, nil
}

func (c *Chain) gasUnitPrice(ctx context.Context) (uint64, error) {
	var out struct {
		GasEstimate uint64 `json:"gas_estimate"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/v1/estimate_gas_price")

	if err := c.do("gas price", resp, err); err != nil {
		return 0, err
	}

	return out.GasEstimate, nil
}

// submit encodes, signs and submits an entry function call from key.
func (c *Chain) submit(ctx context.Context, op, key string, payload *entryPayload) (*core.Submission, error) {
	pk, err := ParseKey(key)
	if err != nil {
		return nil, c.chainErr(op, err)
	}

	pub := pk.Public().(ed25519.PublicKey)
	sender := Address(pub)

	seq, err := c.sequenceNumber(ctx, sender)
	if err != nil {
		return nil, err
	}

	price, err := c.gasUnitPrice(ctx)
	if err != nil {
		return nil, err
	}

	tx := &transaction{
		Sender:                  sender,
		SequenceNumber:          seq,
		MaxGasAmount:            strconv.FormatUint(c.cfg.MaxGasAmount, 10),
		GasUnitPrice:            strconv.FormatUint(price, 10),
		ExpirationTimestampSecs: strconv.FormatInt(time.Now().Add(10*time.Minute).Unix(), 10),
		Payload:                 payload,
	}

	var message string
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(tx).
		SetResult(&message).
		SetError(&apiError{}).
		Post("/v1/transactions/encode_submission")

	if err := c.do(op, resp, err); err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(message, "0x"))
	if err != nil {
		return nil, c.chainErr(op, fmt.Errorf("decode signing message: %w", err))
	}

	tx.Signature = &signature{
		Type:      "ed25519_signature",
		PublicKey: "0x" + hex.EncodeToString(pub),
		Signature: "0x" + hex.EncodeToString(ed25519.Sign(pk, raw)),
	}

	var pending struct {
		Hash string `json:"hash"`
	}

	resp, err = c.client.R().
		SetContext(ctx).
		SetBody(tx).
		SetResult(&pending).
		SetError(&apiError{}).
		Post("/v1/transactions")

	if err := c.do(op, resp, err); err != nil {
		return nil, err
	}

	gasPrice := decimal.NewFromInt(int64(price)).Shift(-coinDecimals)
	c.logger.Info(op, "from", sender, "hash", pending.Hash, "function", payload.Function)

	return &core.Submission{
		Hash:     pending.Hash,
		GasUsed:  gasPrice.Mul(decimal.NewFromInt(int64(c.cfg.MaxGasAmount))),
		GasPrice: gasPrice,
	}, nil
}
