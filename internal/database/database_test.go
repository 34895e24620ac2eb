package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/config"
	"github.com/wfunc/holdem-server/internal/models"
)

func TestInitAndMigrate(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.DatabaseConfig{
		Driver:          "sqlite",
		DSN:             filepath.Join(dir, "nested", "holdem.db"),
		MaxIdleConns:    2,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Minute,
		LogLevel:        "silent",
	}
	require.NoError(t, Init(cfg))
	t.Cleanup(func() { _ = Close() })
	assert.True(t, IsConnected())

	require.NoError(t, AutoMigrate())
	for _, model := range models.All() {
		assert.True(t, GetDB().Migrator().HasTable(model), "%T", model)
	}

	t.Run("重复迁移", func(t *testing.T) {
		require.NoError(t, AutoMigrate())
	})
}

func TestInitRejectsUnknownDriver(t *testing.T) {
	err := Init(&config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestEnsureSQLiteDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ensureSQLiteDir("file:"+filepath.Join(dir, "a", "b.db")+"?cache=shared"))
	assert.DirExists(t, filepath.Join(dir, "a"))
	assert.NoError(t, ensureSQLiteDir(":memory:"))
	assert.NoError(t, ensureSQLiteDir("file::memory:?cache=shared"))
}

func TestMigrationLock(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "holdem.db")

	t.Run("释放后可以再次获取", func(t *testing.T) {
		lock, err := acquireMigrationLock(ctx, dbPath)
		require.NoError(t, err)
		assert.FileExists(t, dbPath+".migration.lock")
		lock.release()
		assert.NoFileExists(t, dbPath+".migration.lock")

		lock, err = acquireMigrationLock(ctx, dbPath)
		require.NoError(t, err)
		lock.release()
	})

	t.Run("被占用时等待到ctx取消", func(t *testing.T) {
		lock, err := acquireMigrationLock(ctx, dbPath)
		require.NoError(t, err)
		defer lock.release()

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = acquireMigrationLock(waitCtx, dbPath)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("过期的锁被清理", func(t *testing.T) {
		lockPath := dbPath + ".migration.lock"
		require.NoError(t, os.WriteFile(lockPath, []byte("1\n"), 0644))
		old := time.Now().Add(-2 * lockStaleAfter)
		require.NoError(t, os.Chtimes(lockPath, old, old))

		lock, err := acquireMigrationLock(ctx, dbPath)
		require.NoError(t, err)
		lock.release()
	})
}

func TestSQLiteFilePath(t *testing.T) {
	assert.Equal(t, "./data/holdem.db", sqliteFilePath("./data/holdem.db"))
	assert.Equal(t, "/tmp/x.db", sqliteFilePath("file:/tmp/x.db?cache=shared"))
	assert.Empty(t, sqliteFilePath(":memory:"))
	assert.Empty(t, sqliteFilePath("file::memory:?cache=shared"))
}
