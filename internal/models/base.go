package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 公共字段
type BaseModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 牌局状态
const (
	GameStatusPlaying = "playing"
	GameStatusEnded   = "ended"
)

// All 需要自动迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&PokerGame{},
		&HandRecord{},
		&HandPlayerResult{},
	}
}
