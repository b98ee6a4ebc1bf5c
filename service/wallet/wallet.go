package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/service/chain/aptos"
)

type service struct {
	wallets core.WalletStore
}

func New(wallets core.WalletStore) core.WalletService {
	return &service{wallets: wallets}
}

func (s *service) Create(ctx context.Context, userID int64) (*core.Wallet, error) {
	wallet, err := generate(userID)
	if err != nil {
		return nil, err
	}

	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}

	return wallet, nil
}

// generate makes one secp256k1 account shared by the evm networks and one ed25519 account for aptos.
func generate(userID int64) (*core.Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate evm key: %w", err)
	}

	evm := &core.Account{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}

	pub, pk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate aptos key: %w", err)
	}

	return &core.Wallet{
		UserID:    userID,
		CreatedAt: time.Now(),
		Accounts: map[core.NetworkType]*core.Account{
			core.NetworkEth: evm,
			core.NetworkBfc: {Address: evm.Address, PrivateKey: evm.PrivateKey},
			core.NetworkApt: {Address: aptos.Address(pub), PrivateKey: aptos.EncodeKey(pk)},
		},
	}, nil
}
