package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSequenceDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	counters := `
CREATE TABLE IF NOT EXISTS counters (
  name TEXT PRIMARY KEY,
  value INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(counters).Error)
	return conn
}

func TestAllocateOrderNumber_SequentialWithinDay(t *testing.T) {
	conn := setupSequenceDB(t)
	now := time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)

	first, err := AllocateOrderNumber(conn, now)
	require.NoError(t, err)
	require.Equal(t, "ORD-20250131-000001", first)

	second, err := AllocateOrderNumber(conn, now)
	require.NoError(t, err)
	require.Equal(t, "ORD-20250131-000002", second)
}

func TestAllocateOrderNumber_ResetsPerDay(t *testing.T) {
	conn := setupSequenceDB(t)

	jan := time.Date(2025, time.January, 31, 23, 0, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 1, 0, 30, 0, 0, time.UTC)

	_, err := AllocateOrderNumber(conn, jan)
	require.NoError(t, err)

	got, err := AllocateOrderNumber(conn, feb)
	require.NoError(t, err)
	require.Equal(t, "ORD-20250201-000001", got)
}
