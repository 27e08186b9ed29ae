// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"startupconnect/internal/dbmysql"
)

// Open returns a migrated sqlite database private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbmysql.Migrate(db))
	return db
}

// SeedUsers inserts active users with the given handles and returns their ids.
func SeedUsers(t testing.TB, db *gorm.DB, handles ...string) []uint64 {
	t.Helper()

	ids := make([]uint64, 0, len(handles))
	for _, h := range handles {
		u := &dbmysql.User{Handle: h, PasswordHash: "x", Role: "startup", Status: "active"}
		require.NoError(t, db.Create(u).Error)
		ids = append(ids, u.UserID)
	}
	return ids
}
