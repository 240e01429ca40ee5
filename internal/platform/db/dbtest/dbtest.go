// Package dbtest opens an isolated in-memory sqlite database migrated with the
// production models, for service tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/platform/db"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
)

// New returns a fresh database per call. A single connection keeps every
// query on the same in-memory database, so code under test must use the
// transaction handle inside db.Transaction closures.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	log := zap.NewNop().Sugar()
	cfg := &config.Config{Database: config.DBConfig{LogLevel: "silent"}}

	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig(log, cfg))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(log, gdb))
	return gdb
}

// Logger is a no-op logger for services under test.
func Logger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
