package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建迁移好的内存数据库，测试结束时关闭
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存数据库每个连接各自独立，只保留一个连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	// 关闭数据库连接
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestPokerGame 创建测试牌局
func CreateTestPokerGame(t *testing.T, db *gorm.DB, sessionID, tableID string) *models.PokerGame {
	t.Helper()
	game := &models.PokerGame{
		SessionID:  sessionID,
		TableID:    tableID,
		SmallBlind: 5,
		BigBlind:   10,
		Status:     models.GameStatusPlaying,
		Players:    []byte(`[{"player_id":"alice","seat":0,"chips":500},{"player_id":"bob","seat":1,"chips":500}]`),
	}
	require.NoError(t, NewPokerGameRepository(db).Create(context.Background(), game))
	return game
}

// AssertPokerGame 验证牌局
func AssertPokerGame(t *testing.T, expected, actual *models.PokerGame) {
	assert.Equal(t, expected.SessionID, actual.SessionID)
	assert.Equal(t, expected.TableID, actual.TableID)
	assert.Equal(t, expected.Status, actual.Status)
	assert.Equal(t, expected.HandsPlayed, actual.HandsPlayed)
}
