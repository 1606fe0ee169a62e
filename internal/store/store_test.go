package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ProxyRoute{},
		&models.AuthStep{},
		&models.Condition{},
		&models.ClientIdentity{},
		&models.SolvedRecord{},
		&models.ChallengeStateEntry{},
		&models.Operator{},
		&models.Setting{},
	)
	require.NoError(t, err)

	return db
}
