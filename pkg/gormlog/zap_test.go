package gormlog

import (
	"testing"

	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestShortCaller(t *testing.T) {
	require.Equal(t, "internal/platform/db/postgres.go:38", shortCaller("/home/ci/jobdesk/internal/platform/db/postgres.go:38"))
	require.Equal(t, "a/b/c.go:1", shortCaller("/x/a/b/c.go:1"))
	require.Equal(t, "", shortCaller(""))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, gormlogger.Silent, ParseLevel("silent"))
	require.Equal(t, gormlogger.Info, ParseLevel("INFO"))
	require.Equal(t, gormlogger.Warn, ParseLevel(""))
}
