package nft

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/sac-wallet/core"
	"github.com/tsenart/nap"
)

func New(db *nap.DB) core.NftStore {
	return &nftStore{db: db}
}

type nftStore struct {
	db *nap.DB
}

var ownerColumns = []string{"address", "network", "token_id"}

func (s *nftStore) ListOwned(ctx context.Context, address string) ([]*core.NftOwnership, error) {
	b := sq.Select(ownerColumns...).
		From("nft_owners").
		Where("address = ?", address).
		OrderBy("network", "token_id")

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var owned []*core.NftOwnership
	for rows.Next() {
		var o core.NftOwnership
		if err := rows.Scan(&o.Address, &o.Network, &o.TokenID); err != nil {
			return nil, err
		}

		owned = append(owned, &o)
	}

	return owned, rows.Err()
}

func (s *nftStore) FindOwned(ctx context.Context, address string, network core.NetworkType, tokenID string) (*core.NftOwnership, error) {
	b := sq.Select(ownerColumns...).
		From("nft_owners").
		Where(sq.Eq{"address": address, "network": network, "token_id": tokenID})

	var o core.NftOwnership
	if err := b.RunWith(s.db).QueryRowContext(ctx).Scan(&o.Address, &o.Network, &o.TokenID); err != nil {
		return nil, err
	}

	return &o, nil
}

func (s *nftStore) Replace(ctx context.Context, address string, network core.NetworkType, tokenIDs []string) error {
	tx, err := s.db.Master().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	del := sq.Delete("nft_owners").Where(sq.Eq{"address": address, "network": network})
	if _, err := del.RunWith(tx).ExecContext(ctx); err != nil {
		return err
	}

	if err := insertOwners(ctx, tx, address, network, tokenIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func insertOwners(ctx context.Context, tx *sql.Tx, address string, network core.NetworkType, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	b := sq.Insert("nft_owners").Options("IGNORE").Columns(ownerColumns...)
	for _, id := range tokenIDs {
		b = b.Values(address, network, id)
	}

	_, err := b.RunWith(tx).ExecContext(ctx)
	return err
}
