package models

import (
	"time"

	"gorm.io/datatypes"
)

// PokerGame 牌局表，每局游戏一行
type PokerGame struct {
	BaseModel
	SessionID   string         `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	TableID     string         `gorm:"index;size:64;not null" json:"table_id"`
	SmallBlind  int64          `gorm:"not null" json:"small_blind"`
	BigBlind    int64          `gorm:"not null" json:"big_blind"`
	Status      string         `gorm:"size:20;index;default:'playing'" json:"status"` // playing, ended
	Players     datatypes.JSON `gorm:"type:json" json:"players"`                      // 入座玩家和筹码
	HandsPlayed int            `gorm:"default:0" json:"hands_played"`
	EndReason   string         `gorm:"size:255" json:"end_reason"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     *time.Time     `json:"ended_at,omitempty"`
}

// TableName 指定表名
func (PokerGame) TableName() string {
	return "poker_games"
}

// HandRecord 手牌记录表
type HandRecord struct {
	BaseModel
	HandID          string         `gorm:"uniqueIndex;size:64;not null" json:"hand_id"`
	SessionID       string         `gorm:"index;size:64;not null" json:"session_id"`
	TableID         string         `gorm:"index;size:64" json:"table_id"`
	HandNumber      int            `gorm:"not null" json:"hand_number"`
	DealerIndex     int            `json:"dealer_index"`
	SmallBlindIndex int            `json:"small_blind_index"`
	BigBlindIndex   int            `json:"big_blind_index"`
	Pot             int64          `json:"pot"`
	Board           datatypes.JSON `gorm:"type:json" json:"board"`   // 各阶段发出的公共牌
	Moves           datatypes.JSON `gorm:"type:json" json:"moves"`   // 按顺序的全部动作
	Shown           datatypes.JSON `gorm:"type:json" json:"shown"`   // 摊牌时亮出的手牌
	Winners         datatypes.JSON `gorm:"type:json" json:"winners"` // 赢家玩家ID
	Payouts         datatypes.JSON `gorm:"type:json" json:"payouts"`
	Cancelled       bool           `gorm:"default:false" json:"cancelled"`
	CancelReason    string         `gorm:"size:255" json:"cancel_reason,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`

	// 关联
	Results []HandPlayerResult `gorm:"foreignKey:HandRecordID" json:"results,omitempty"`
}

// TableName 指定表名
func (HandRecord) TableName() string {
	return "hand_records"
}

// HandPlayerResult 每名玩家在一手牌中的输赢，用于统计
type HandPlayerResult struct {
	BaseModel
	HandRecordID uint   `gorm:"not null;index" json:"hand_record_id"`
	SessionID    string `gorm:"index;size:64;not null" json:"session_id"`
	PlayerID     string `gorm:"index;size:64;not null" json:"player_id"`
	Seat         int    `json:"seat"`
	StartChips   int64  `json:"start_chips"`
	Committed    int64  `json:"committed"` // 本手投入
	Won          int64  `json:"won"`       // 本手分得
	Net          int64  `json:"net"`
	Folded       bool   `json:"folded"`
	Showdown     bool   `json:"showdown"`
	Winner       bool   `json:"winner"`
	Cancelled    bool   `json:"cancelled"`
}

// TableName 指定表名
func (HandPlayerResult) TableName() string {
	return "hand_player_results"
}
