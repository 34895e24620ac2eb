package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	pokerGameOnce sync.Once
	pokerGame     PokerGameRepository

	handOnce sync.Once
	hand     HandRepository

	recorderOnce sync.Once
	recorder     *GameRecorder
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// PokerGame 获取牌局仓储
func (m *Manager) PokerGame() PokerGameRepository {
	m.pokerGameOnce.Do(func() {
		m.pokerGame = NewPokerGameRepository(m.db)
	})
	return m.pokerGame
}

// Hand 获取手牌记录仓储
func (m *Manager) Hand() HandRepository {
	m.handOnce.Do(func() {
		m.hand = NewHandRepository(m.db)
	})
	return m.hand
}

// Recorder 获取牌局记录器，交给会话管理器保存牌局
func (m *Manager) Recorder() *GameRecorder {
	m.recorderOnce.Do(func() {
		m.recorder = NewGameRecorder(m.db)
	})
	return m.recorder
}

// Transaction 在事务中执行，fn收到绑定到事务的管理器
func (m *Manager) Transaction(ctx context.Context, fn func(tx *Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewManager(tx))
	})
}
