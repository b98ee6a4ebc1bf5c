package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pandodao/sac-wallet/core"
)

func (c *Chain) nftContract() (common.Address, error) {
	if !common.IsHexAddress(c.cfg.NftContract) {
		return common.Address{}, &core.ConfigurationError{Network: c.network, Field: "nft_contract"}
	}

	return common.HexToAddress(c.cfg.NftContract), nil
}

func parseTokenID(tokenID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id %q", tokenID)
	}

	return id, nil
}

func (c *Chain) TransferNFT(ctx context.Context, key, to, tokenID string) (*core.Submission, error) {
	contract, err := c.nftContract()
	if err != nil {
		return nil, err
	}

	id, err := parseTokenID(tokenID)
	if err != nil {
		return nil, c.chainErr("transfer nft", err)
	}

	if !common.IsHexAddress(to) {
		return nil, c.chainErr("transfer nft", fmt.Errorf("invalid address %q", to))
	}

	_, from, err := parseKey(key)
	if err != nil {
		return nil, c.chainErr("transfer nft", err)
	}

	data, err := erc721ABI.Pack("transferFrom", from, common.HexToAddress(to), id)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "transfer nft", key, contract, big.NewInt(0), data)
}

func (c *Chain) CanMint() bool {
	return c.cfg.MinterKey != "" && c.cfg.NftContract != ""
}

func (c *Chain) MintNFT(ctx context.Context, to, tokenID string) (*core.Submission, error) {
	if c.cfg.MinterKey == "" {
		return nil, fmt.Errorf("%s: %w", c.network, core.ErrMintUnsupported)
	}

	contract, err := c.nftContract()
	if err != nil {
		return nil, err
	}

	id, err := parseTokenID(tokenID)
	if err != nil {
		return nil, c.chainErr("mint nft", err)
	}

	if !common.IsHexAddress(to) {
		return nil, c.chainErr("mint nft", fmt.Errorf("invalid address %q", to))
	}

	data, err := erc721ABI.Pack("mint", common.HexToAddress(to), id)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "mint nft", c.cfg.MinterKey, contract, big.NewInt(0), data)
}

func (c *Chain) ListNFTs(ctx context.Context, address string) ([]string, error) {
	if c.cfg.NftContract == "" {
		return nil, nil
	}

	contract, err := c.nftContract()
	if err != nil {
		return nil, err
	}

	owner := common.HexToAddress(address)
	count, err := c.call721(ctx, contract, "balanceOf", owner)
	if err != nil {
		return nil, err
	}

	var ids []string
	for i := int64(0); i < count.Int64(); i++ {
		id, err := c.call721(ctx, contract, "tokenOfOwnerByIndex", owner, big.NewInt(i))
		if err != nil {
			return nil, err
		}

		ids = append(ids, id.String())
	}

	return ids, nil
}

func (c *Chain) call721(ctx context.Context, contract common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := erc721ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, c.chainErr(method, err)
	}

	var v *big.Int
	if err := erc721ABI.UnpackIntoInterface(&v, method, result); err != nil {
		return nil, c.chainErr(method, err)
	}

	if v == nil {
		v = big.NewInt(0)
	}

	return v, nil
}
