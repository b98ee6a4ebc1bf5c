package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

// Key is the private key the fake chain accepts for address.
func Key(address string) string {
	return "key:" + address
}

func addressOf(key string) (string, error) {
	if !strings.HasPrefix(key, "key:") {
		return "", errors.New("invalid private key")
	}

	return strings.TrimPrefix(key, "key:"), nil
}

// Chain is an in-memory ledger of one network. Every transaction charges Gas to the sender.
type Chain struct {
	network core.NetworkType
	gas     decimal.Decimal

	mux      sync.Mutex
	balances map[string]map[string]decimal.Decimal
	owners   map[string]string
	receipts map[string]*core.Receipt
	calls    map[string]int
	seq      int

	SendErr     error
	Revert      bool
	Unconfirmed bool
	Mintable    bool
}

func NewChain(network core.NetworkType, gas decimal.Decimal) *Chain {
	return &Chain{
		network:  network,
		gas:      gas,
		balances: map[string]map[string]decimal.Decimal{},
		owners:   map[string]string{},
		receipts: map[string]*core.Receipt{},
		calls:    map[string]int{},
		Mintable: network.IsEVM(),
	}
}

func (c *Chain) SetBalance(address, symbol string, amount decimal.Decimal) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.setBalance(address, symbol, amount)
}

func (c *Chain) setBalance(address, symbol string, amount decimal.Decimal) {
	if c.balances[address] == nil {
		c.balances[address] = map[string]decimal.Decimal{}
	}

	c.balances[address][symbol] = amount
}

func (c *Chain) Balance(address, symbol string) decimal.Decimal {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.balances[address][symbol]
}

func (c *Chain) SetOwner(tokenID, address string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.owners[tokenID] = address
}

func (c *Chain) Owner(tokenID string) string {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.owners[tokenID]
}

// Calls returns how many times method was invoked.
func (c *Chain) Calls(method string) int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.calls[method]
}

func (c *Chain) call(method string) {
	c.calls[method]++
}

func (c *Chain) Network() core.NetworkType {
	return c.network
}

func (c *Chain) CoinBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return c.TokenBalance(ctx, address, string(c.network))
}

func (c *Chain) TokenBalance(_ context.Context, address, symbol string) (decimal.Decimal, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.call("TokenBalance")
	return c.balances[address][symbol], nil
}

func (c *Chain) SendCoin(ctx context.Context, key, to string, amount decimal.Decimal) (*core.Submission, error) {
	return c.SendToken(ctx, key, to, string(c.network), amount)
}

func (c *Chain) SendToken(_ context.Context, key, to, symbol string, amount decimal.Decimal) (*core.Submission, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.call("Send")

	from, err := c.begin("send", key)
	if err != nil {
		return nil, err
	}

	coin := string(c.network)
	need := map[string]decimal.Decimal{coin: c.gas}
	need[symbol] = need[symbol].Add(amount)
	for s, v := range need {
		if c.balances[from][s].LessThan(v) {
			return nil, &core.ChainError{Network: c.network, Op: "send", Err: fmt.Errorf("insufficient %s", s)}
		}
	}

	c.setBalance(from, coin, c.balances[from][coin].Sub(c.gas))
	if !c.Revert {
		c.setBalance(from, symbol, c.balances[from][symbol].Sub(amount))
		c.setBalance(to, symbol, c.balances[to][symbol].Add(amount))
	}

	return c.submit(), nil
}

func (c *Chain) TransferNFT(_ context.Context, key, to, tokenID string) (*core.Submission, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.call("TransferNFT")

	from, err := c.begin("transfer nft", key)
	if err != nil {
		return nil, err
	}

	if c.owners[tokenID] != from {
		return nil, &core.ChainError{Network: c.network, Op: "transfer nft", Err: errors.New("not owner")}
	}

	coin := string(c.network)
	c.setBalance(from, coin, c.balances[from][coin].Sub(c.gas))
	if !c.Revert {
		c.owners[tokenID] = to
	}

	return c.submit(), nil
}

func (c *Chain) CanMint() bool {
	return c.Mintable
}

func (c *Chain) MintNFT(_ context.Context, to, tokenID string) (*core.Submission, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.call("MintNFT")

	if !c.Mintable {
		return nil, core.ErrMintUnsupported
	}

	if c.SendErr != nil {
		return nil, &core.ChainError{Network: c.network, Op: "mint nft", Err: c.SendErr}
	}

	if _, ok := c.owners[tokenID]; ok {
		return nil, &core.ChainError{Network: c.network, Op: "mint nft", Err: errors.New("token exists")}
	}

	if !c.Revert {
		c.owners[tokenID] = to
	}

	return c.submit(), nil
}

func (c *Chain) begin(op, key string) (string, error) {
	if c.SendErr != nil {
		return "", &core.ChainError{Network: c.network, Op: op, Err: c.SendErr}
	}

	from, err := addressOf(key)
	if err != nil {
		return "", &core.ChainError{Network: c.network, Op: op, Err: err}
	}

	return from, nil
}

func (c *Chain) submit() *core.Submission {
	c.seq++
	hash := fmt.Sprintf("0x%s%04d", c.network, c.seq)
	c.receipts[hash] = &core.Receipt{
		Hash:        hash,
		Success:     !c.Revert,
		GasUsed:     c.gas,
		BlockNumber: uint64(c.seq),
	}

	return &core.Submission{Hash: hash, GasUsed: c.gas}
}

func (c *Chain) WaitForConfirmation(_ context.Context, hash string, _ time.Duration) (*core.Receipt, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.call("WaitForConfirmation")

	if c.Unconfirmed {
		return nil, fmt.Errorf("%s %s: %w", c.network, hash, core.ErrUnconfirmed)
	}

	r, ok := c.receipts[hash]
	if !ok {
		return nil, &core.ChainError{Network: c.network, Op: "receipt", Err: errors.New("unknown transaction")}
	}

	return r, nil
}

func (c *Chain) ListNFTs(_ context.Context, address string) ([]string, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	var ids []string
	for id, owner := range c.owners {
		if owner == address {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)
	return ids, nil
}
