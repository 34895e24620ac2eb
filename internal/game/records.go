package game

import (
	"context"
	"time"

	"github.com/wfunc/holdem-server/internal/game/holdem"
)

// GameStatus 整局游戏状态
type GameStatus string

const (
	GameStatusPlaying GameStatus = "playing"
	GameStatusEnded   GameStatus = "ended"
)

// PlayerStack 玩家及其筹码
type PlayerStack struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
	Chips    int64  `json:"chips"`
}

// GameRecord 一局游戏的摘要，开始和结束时各保存一次
type GameRecord struct {
	SessionID   string        `json:"session_id"`
	TableID     string        `json:"table_id"`
	SmallBlind  int64         `json:"small_blind"`
	BigBlind    int64         `json:"big_blind"`
	Status      GameStatus    `json:"status"`
	Players     []PlayerStack `json:"players"`
	HandsPlayed int           `json:"hands_played"`
	EndReason   string        `json:"end_reason,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
}

// HandRecord 一手牌的完整记录，足以回放
type HandRecord struct {
	HandID          string                         `json:"hand_id"`
	SessionID       string                         `json:"session_id"`
	TableID         string                         `json:"table_id"`
	HandNumber      int                            `json:"hand_number"`
	DealerIndex     int                            `json:"dealer_index"`
	SmallBlindIndex int                            `json:"small_blind_index"`
	BigBlindIndex   int                            `json:"big_blind_index"`
	Players         []PlayerStack                  `json:"players"`
	Board           map[holdem.Stage][]holdem.Card `json:"board"`
	Moves           []holdem.Move                  `json:"moves"`
	Shown           []holdem.ShowdownResult        `json:"shown,omitempty"`
	Winners         []string                       `json:"winners,omitempty"`
	Payouts         map[string]int64               `json:"payouts"`
	Pot             int64                          `json:"pot"`
	Cancelled       bool                           `json:"cancelled"`
	CancelReason    string                         `json:"cancel_reason,omitempty"`
	StartedAt       time.Time                      `json:"started_at"`
	FinishedAt      time.Time                      `json:"finished_at"`
}

// Repository 牌局持久化接口。保存失败只记录日志，不会回滚内存中的牌局
type Repository interface {
	SaveGame(ctx context.Context, record *GameRecord) error
	SaveHand(ctx context.Context, record *HandRecord) error
}

type nopRepository struct{}

func (nopRepository) SaveGame(context.Context, *GameRecord) error { return nil }
func (nopRepository) SaveHand(context.Context, *HandRecord) error { return nil }

// NopRepository 不保存任何记录
var NopRepository Repository = nopRepository{}

// HandResult 一手牌的结果，随 ROUND_RESULT 事件广播
type HandResult struct {
	HandNumber int                     `json:"hand_number"`
	Pot        int64                   `json:"pot"`
	Winners    []string                `json:"winners"`
	Payouts    map[string]int64        `json:"payouts"`
	Board      []holdem.Card           `json:"board"`
	Shown      []holdem.ShowdownResult `json:"shown,omitempty"`
	Showdown   bool                    `json:"showdown"`
}
