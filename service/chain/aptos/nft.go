package aptos

import (
	"context"
	"fmt"

	"github.com/pandodao/sac-wallet/core"
)

func (c *Chain) TransferNFT(ctx context.Context, key, to, tokenID string) (*core.Submission, error) {
	return c.submit(ctx, "transfer nft", key, &entryPayload{
		Type:          "entry_function_payload",
		Function:      "0x1::object::transfer",
		TypeArguments: []string{"0x4::token::Token"},
		Arguments:     []any{tokenID, to},
	})
}

func (c *Chain) CanMint() bool {
	return false
}

// MintNFT is not available, Aptos tokens are minted by the collection owner off this service.
func (c *Chain) MintNFT(context.Context, string, string) (*core.Submission, error) {
	return nil, fmt.Errorf("%s: %w", core.NetworkApt, core.ErrMintUnsupported)
}

const ownedTokensQuery = `query OwnedTokens($owner: String!, $collection: String!) {
  current_token_ownerships_v2(
    where: {owner_address: {_eq: $owner}, amount: {_gt: 0}, current_token_data: {collection_id: {_eq: $collection}}}
  ) {
    token_data_id
  }
}`

type graphqlError struct {
	Message string `json:"message"`
}

func (c *Chain) ListNFTs(ctx context.Context, address string) ([]string, error) {
	if c.cfg.IndexerURL == "" || c.cfg.Collection == "" {
		return nil, nil
	}

	var out struct {
		Data struct {
			Ownerships []struct {
				TokenDataID string `json:"token_data_id"`
			} `json:"current_token_ownerships_v2"`
		} `json:"data"`
		Errors []graphqlError `json:"errors"`
	}

	resp, err := c.indexer.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"query": ownedTokensQuery,
			"variables": map[string]string{
				"owner":      address,
				"collection": c.cfg.Collection,
			},
		}).
		SetResult(&out).
		Post(c.cfg.IndexerURL)

	if err := c.do("list nfts", resp, err); err != nil {
		return nil, err
	}

	if len(out.Errors) > 0 {
		return nil, c.chainErr("list nfts", fmt.Errorf("indexer: %s", out.Errors[0].Message))
	}

	ids := make([]string, 0, len(out.Data.Ownerships))
	for _, o := range out.Data.Ownerships {
		ids = append(ids, o.TokenDataID)
	}

	return ids, nil
}
