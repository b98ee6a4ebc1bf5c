package nft

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/sac-wallet/core"
	"github.com/tsenart/nap"
)

func NewUserNfts(db *nap.DB) core.UserNftStore {
	return &userNftStore{db: db}
}

type userNftStore struct {
	db *nap.DB
}

func (s *userNftStore) ListToken(ctx context.Context, tokenID string) ([]*core.UserNft, error) {
	b := sq.Select("user_id", "token_id", "network", "address").
		From("user_nfts").
		Where("token_id = ?", tokenID).
		OrderBy("user_id")

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var nfts []*core.UserNft
	for rows.Next() {
		var (
			n                core.UserNft
			network, address sql.NullString
		)

		if err := rows.Scan(&n.UserID, &n.TokenID, &network, &address); err != nil {
			return nil, err
		}

		n.Network = core.NetworkType(network.String)
		n.Address = address.String
		nfts = append(nfts, &n)
	}

	return nfts, rows.Err()
}

func (s *userNftStore) Save(ctx context.Context, n *core.UserNft) error {
	b := sq.Insert("user_nfts").
		Columns("user_id", "token_id", "network", "address").
		Values(n.UserID, n.TokenID, nullable(string(n.Network)), nullable(n.Address)).
		Suffix("ON DUPLICATE KEY UPDATE network = VALUES(network), address = VALUES(address)")

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *userNftStore) Delete(ctx context.Context, userID int64, tokenID string) error {
	b := sq.Delete("user_nfts").Where(sq.Eq{"user_id": userID, "token_id": tokenID})
	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
