package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/wfunc/holdem-server/internal/logger"
	"github.com/wfunc/holdem-server/internal/models"
	"go.uber.org/zap"
)

// 迁移后补充的组合索引
var compositeIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_hand_records_session_hand ON hand_records(session_id, hand_number)",
	"CREATE INDEX IF NOT EXISTS idx_hand_player_results_player_cancelled ON hand_player_results(player_id, cancelled)",
	"CREATE INDEX IF NOT EXISTS idx_poker_games_table_started ON poker_games(table_id, started_at)",
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	if sqlitePath != "" {
		lock, err := acquireMigrationLock(context.Background(), sqlitePath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer lock.release()
	}

	logger.Info("开始数据库迁移...")

	for _, model := range models.All() {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes()

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建组合索引，失败只记录警告
func createIndexes() {
	for _, idx := range compositeIndexes {
		if err := DB.Exec(idx).Error; err != nil {
			// 忽略索引已存在的错误
			if !strings.Contains(err.Error(), "already exists") {
				logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
			}
		}
	}
}
