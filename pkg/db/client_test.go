package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tidemarkdata/clickstream-engine/pkg/config"
)

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	require.Error(t, err)
}

func TestNewSQLiteAndTx(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:    "file::memory:?cache=shared",
		Driver: "sqlite",
	}, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Exec("CREATE TABLE tx_probe (id INTEGER PRIMARY KEY)").Error
	})
	require.NoError(t, err)

	sentinel := errors.New("rollback please")
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO tx_probe (id) VALUES (1)").Error; err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, client.DB().Raw("SELECT COUNT(*) FROM tx_probe").Scan(&count).Error)
	require.Zero(t, count, "rolled-back insert must not be visible")
}
