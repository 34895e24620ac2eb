package game

import (
	"time"

	"github.com/wfunc/holdem-server/internal/game/holdem"
)

// PlayerSeat 开局时的玩家和初始筹码，按座位顺序排列
type PlayerSeat struct {
	PlayerID string `json:"player_id" binding:"required"`
	Chips    int64  `json:"chips" binding:"required,min=1"`
}

// StartGameRequest 开始游戏请求。盲注为0时使用默认配置
type StartGameRequest struct {
	TableID     string       `json:"table_id"`
	Players     []PlayerSeat `json:"players" binding:"required,min=2,dive"`
	SmallBlind  int64        `json:"small_blind" binding:"min=0"`
	BigBlind    int64        `json:"big_blind" binding:"min=0"`
	DealerIndex int          `json:"dealer_index" binding:"min=0"`
}

// ActionRequest 玩家动作请求
type ActionRequest struct {
	Action string `json:"action" binding:"required"`
	Amount int64  `json:"amount" binding:"min=0"`
}

// SeatView 快照中的一个座位
type SeatView struct {
	Index     int               `json:"index"`
	PlayerID  string            `json:"player_id"`
	Chips     int64             `json:"chips"`
	Status    holdem.SeatStatus `json:"status"`
	AllIn     bool              `json:"all_in"`
	Bet       int64             `json:"bet"`
	Committed int64             `json:"committed"`
	Hole      []holdem.Card     `json:"hole,omitempty"`
}

// Snapshot 某个观察者看到的牌局状态
type Snapshot struct {
	SessionID       string            `json:"session_id"`
	TableID         string            `json:"table_id"`
	HandNumber      int               `json:"hand_number"`
	Stage           GameStage         `json:"stage"`
	Pot             int64             `json:"pot"`
	CurrentBet      int64             `json:"current_bet"`
	SmallBlind      int64             `json:"small_blind"`
	BigBlind        int64             `json:"big_blind"`
	CommunityCards  []holdem.Card     `json:"community_cards"`
	Seats           []SeatView        `json:"seats"`
	DealerIndex     int               `json:"dealer_index"`
	SmallBlindIndex int               `json:"small_blind_index"`
	BigBlindIndex   int               `json:"big_blind_index"`
	ToActIndex      int               `json:"to_act_index"`
	ToAct           string            `json:"to_act,omitempty"`
	TurnDeadline    *time.Time        `json:"turn_deadline,omitempty"`
	Paused          bool              `json:"paused"`
	LegalActions    []holdem.MoveType `json:"legal_actions,omitempty"`
	ToCall          int64             `json:"to_call,omitempty"`
	MinRaiseTo      int64             `json:"min_raise_to,omitempty"`
	LastResult      *HandResult       `json:"last_result,omitempty"`
}

// TotalChips 座位筹码与底池之和
func (s *Snapshot) TotalChips() int64 {
	total := s.Pot
	for _, seat := range s.Seats {
		total += seat.Chips
	}
	return total
}

// Seat 根据玩家ID查找座位，找不到返回nil
func (s *Snapshot) Seat(playerID string) *SeatView {
	for i := range s.Seats {
		if s.Seats[i].PlayerID == playerID {
			return &s.Seats[i]
		}
	}
	return nil
}

// SessionInfo 会话摘要
type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	TableID    string    `json:"table_id"`
	Players    []string  `json:"players"`
	SmallBlind int64     `json:"small_blind"`
	BigBlind   int64     `json:"big_blind"`
	StartedAt  time.Time `json:"started_at"`
}
