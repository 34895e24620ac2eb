package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wfunc/holdem-server/internal/logger"
	"go.uber.org/zap"
)

const (
	lockRetryInterval = 200 * time.Millisecond
	lockWaitTimeout   = 30 * time.Second
	lockStaleAfter    = 5 * time.Minute
)

// migrationLock 同一个SQLite文件同时只允许一个进程迁移，锁是文件旁边的 .migration.lock
type migrationLock struct {
	path string
	file *os.File
}

// sqliteFilePath 从DSN中取出文件路径，内存数据库返回空串
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}

// acquireMigrationLock 获取迁移锁，超过 lockStaleAfter 的锁视为上次进程遗留并删除
func acquireMigrationLock(ctx context.Context, dbPath string) (*migrationLock, error) {
	lockPath := dbPath + ".migration.lock"
	deadline := time.Now().Add(lockWaitTimeout)

	for attempt := 1; ; attempt++ {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			fmt.Fprintf(file, "%d\n", os.Getpid())
			logger.Debug("获取迁移锁成功", zap.String("lock", lockPath))
			return &migrationLock{path: lockPath, file: file}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("创建迁移锁失败: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			logger.Warn("迁移锁已过期，删除后重试", zap.String("lock", lockPath))
			_ = os.Remove(lockPath)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("等待迁移锁超时，可能有其他进程正在迁移: %s", lockPath)
		}
		logger.Debug("等待迁移锁...", zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// release 释放迁移锁
func (l *migrationLock) release() {
	if l == nil {
		return
	}
	_ = l.file.Close()
	_ = os.Remove(l.path)
	logger.Debug("释放迁移锁", zap.String("lock", l.path))
}
