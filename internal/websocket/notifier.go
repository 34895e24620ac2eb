package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/logger"
	"go.uber.org/zap"
)

// HubNotifier 把牌局事件推送给订阅该牌局的WebSocket客户端。
// 事件只带公开快照，玩家需要底牌时自己发送 snapshot 请求
type HubNotifier struct {
	hub *Hub
}

var _ game.Notifier = (*HubNotifier)(nil)

// NewHubNotifier 创建Hub通知器
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Broadcast 实现 game.Notifier，没有订阅者不算错误
func (n *HubNotifier) Broadcast(_ context.Context, sessionID string, event game.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrMessageFormat, string(event.Type))
	}

	msg := &Message{
		Type:      MessageTypeEvent,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	err = n.hub.SendToSession(sessionID, msg)
	if stderrors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		err = errors.Wrap(err, errors.ErrWebSocketSend, sessionID)
	}
	logger.LogWebSocketMessage("out", string(event.Type), sessionID, zap.Int("hand", event.HandNumber))
	return err
}
