package game

import (
	"context"
	"time"
)

// EventType 牌局事件类型
type EventType string

const (
	EventGameStarted   EventType = "GAME_STARTED"
	EventHandStarted   EventType = "HAND_STARTED"
	EventStageChanged  EventType = "STAGE_CHANGED"
	EventPlayerAction  EventType = "PLAYER_ACTION"
	EventPlayerTimeout EventType = "PLAYER_TIMEOUT"
	EventRoundResult   EventType = "ROUND_RESULT"
	EventHandCancelled EventType = "HAND_CANCELLED"
	EventGamePaused    EventType = "GAME_PAUSED"
	EventGameResumed   EventType = "GAME_RESUMED"
	EventGameEnded     EventType = "GAME_ENDED"
)

// Event 牌局状态发生变化时广播的事件。Snapshot 是公开视角，不含任何人的底牌
type Event struct {
	Type       EventType   `json:"type"`
	SessionID  string      `json:"session_id"`
	TableID    string      `json:"table_id"`
	HandNumber int         `json:"hand_number"`
	PlayerID   string      `json:"player_id,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Snapshot   *Snapshot   `json:"snapshot,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Notifier 事件投递接口，由传输层实现。返回的错误只会被记录
type Notifier interface {
	Broadcast(ctx context.Context, sessionID string, event Event) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, sessionID string, event Event) error

// Broadcast 实现 Notifier
func (f NotifierFunc) Broadcast(ctx context.Context, sessionID string, event Event) error {
	return f(ctx, sessionID, event)
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(context.Context, string, Event) error { return nil }

// NopNotifier 丢弃所有事件
var NopNotifier Notifier = nopNotifier{}
