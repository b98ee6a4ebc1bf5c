package main

import (
	"crypto/sha256"
	"errors"

	"github.com/google/wire"
	"github.com/pandodao/sac-wallet/store/db"
	"github.com/pandodao/sac-wallet/store/intent"
	"github.com/pandodao/sac-wallet/store/nft"
	"github.com/pandodao/sac-wallet/store/property"
	"github.com/pandodao/sac-wallet/store/spending"
	"github.com/pandodao/sac-wallet/store/wallet"
	"github.com/pandodao/sac-wallet/store/withdrawal"
	"github.com/spf13/viper"
	"github.com/tsenart/nap"

	_ "github.com/go-sql-driver/mysql"
)

var storeSet = wire.NewSet(
	provideDB,
	provideEncryptKey,
	wallet.New,
	spending.New,
	withdrawal.New,
	nft.New,
	nft.NewUserNfts,
	intent.New,
	property.New,
)

// provideEncryptKey derives the wallet encryption key from wallet.secret.
func provideEncryptKey(v *viper.Viper) ([]byte, error) {
	secret := v.GetString("wallet.secret")
	if secret == "" {
		return nil, errors.New("wallet.secret is required")
	}

	key := sha256.Sum256([]byte(secret))
	return key[:], nil
}

func provideDB(v *viper.Viper) (*nap.DB, func(), error) {
	v.SetDefault("db.driver", "mysql")

	driver := v.GetString("db.driver")
	dsn := v.GetString("db.dsn")
	conn, err := nap.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Migrate(conn.Master(), db.MigrateData{Charset: v.GetString("db.charset")}); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return conn, func() { _ = conn.Close() }, nil
}
