// Package testutil provides an in-memory database with the recordings schema
// for package tests.
package testutil

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"praxis-recording/entities"
	"testing"
	"time"
)

// NewDB opens a private in-memory sqlite database and migrates the entities
// into it. The single connection keeps every query on the same database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entities.Account{},
		&entities.Session{},
		&entities.Recording{},
		&entities.RecordingChunk{},
	))
	return db
}

// SeedAccount creates a personal account and returns its owner's user id.
func SeedAccount(t *testing.T, db *gorm.DB) (uuid.UUID, *entities.Account) {
	t.Helper()

	userId := uuid.New()
	account := &entities.Account{
		ID:                 uuid.New(),
		PrimaryOwnerUserId: userId,
		IsPersonalAccount:  true,
		Name:               "Personal",
		CreatedAt:          time.Now().UTC(),
	}
	require.NoError(t, db.Create(account).Error)
	return userId, account
}
