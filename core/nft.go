package core

import "context"

// NftOwnership is the chain truth of who holds a token on a network.
type NftOwnership struct {
	Address string      `json:"address"`
	Network NetworkType `json:"network"`
	TokenID string      `json:"token_id"`
}

type NftStore interface {
	ListOwned(ctx context.Context, address string) ([]*NftOwnership, error)
	FindOwned(ctx context.Context, address string, network NetworkType, tokenID string) (*NftOwnership, error)
	// Replace sets the tokens held by address on network to exactly tokenIDs.
	Replace(ctx context.Context, address string, network NetworkType, tokenIDs []string) error
}

// UserNft is a custody record of an NFT kept off the user's wallet. Empty network and address
// mean the token was never minted.
type UserNft struct {
	UserID  int64       `json:"user_id"`
	TokenID string      `json:"token_id"`
	Network NetworkType `json:"network,omitempty"`
	Address string      `json:"address,omitempty"`
}

func (n *UserNft) Minted() bool {
	return n.Address != ""
}

type UserNftStore interface {
	ListToken(ctx context.Context, tokenID string) ([]*UserNft, error)
	Save(ctx context.Context, nft *UserNft) error
	Delete(ctx context.Context, userID int64, tokenID string) error
}
