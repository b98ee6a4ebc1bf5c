package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pandodao/sac-wallet/core"
	"github.com/pandodao/sac-wallet/store"
	"github.com/tsenart/nap"
)

func New(db *nap.DB, key []byte) core.WalletStore {
	wallets, err := lru.New[int64, *core.Wallet](256)
	if err != nil {
		panic(err)
	}

	return &walletStore{
		db:      db,
		key:     key,
		wallets: wallets,
	}
}

type walletStore struct {
	db      *nap.DB
	key     []byte
	wallets *lru.Cache[int64, *core.Wallet]
}

var columns = []string{"user_id", "created_at", "encrypted_data"}

func (s *walletStore) Create(ctx context.Context, wallet *core.Wallet) error {
	if err := wallet.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(wallet.Accounts)
	if err != nil {
		return err
	}

	encrypted, err := encrypt(s.key, string(data))
	if err != nil {
		return fmt.Errorf("encrypt wallet: %w", err)
	}

	b := sq.Insert("wallets").
		Columns("user_id", "created_at", "eth_address", "apt_address", "encrypted_data").
		Values(wallet.UserID, wallet.CreatedAt, wallet.Accounts[core.NetworkEth].Address, wallet.Accounts[core.NetworkApt].Address, encrypted)

	_, err = b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *walletStore) Find(ctx context.Context, userID int64) (*core.Wallet, error) {
	if w, ok := s.wallets.Get(userID); ok {
		return w, nil
	}

	w, err := s.find(ctx, userID)
	if err != nil {
		if store.IsErrNotFound(err) {
			return nil, fmt.Errorf("user %d: %w", userID, core.ErrWalletNotFound)
		}

		return nil, err
	}

	s.wallets.Add(userID, w)
	return w, nil
}

func (s *walletStore) find(ctx context.Context, userID int64) (*core.Wallet, error) {
	b := sq.Select(columns...).From("wallets").Where(sq.Eq{"user_id": userID})
	row := b.RunWith(s.db).QueryRowContext(ctx)
	return s.scan(row)
}

func (s *walletStore) List(ctx context.Context) ([]*core.Wallet, error) {
	b := sq.Select(columns...).From("wallets").OrderBy("user_id")
	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var wallets []*core.Wallet
	for rows.Next() {
		w, err := s.scan(rows)
		if err != nil {
			return nil, err
		}

		wallets = append(wallets, w)
	}

	return wallets, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *walletStore) scan(row scanner) (*core.Wallet, error) {
	var (
		wallet    core.Wallet
		encrypted string
	)

	if err := row.Scan(&wallet.UserID, &wallet.CreatedAt, &encrypted); err != nil {
		return nil, err
	}

	data, err := decrypt(s.key, encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet %d: %w", wallet.UserID, err)
	}

	if err := json.Unmarshal([]byte(data), &wallet.Accounts); err != nil {
		return nil, fmt.Errorf("decode wallet %d: %w", wallet.UserID, err)
	}

	if err := wallet.Validate(); err != nil {
		return nil, err
	}

	return &wallet, nil
}
