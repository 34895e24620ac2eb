package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"go.uber.org/zap"
)

// GameService 消息处理器依赖的牌局操作，*game.SessionManager 实现了它
type GameService interface {
	SubmitAction(ctx context.Context, sessionID, playerID string, action holdem.MoveType, amount int64) (*game.Snapshot, error)
	GetSnapshot(ctx context.Context, sessionID, viewerID string) (*game.Snapshot, error)
}

var _ GameService = (*game.SessionManager)(nil)

// GameMessageHandler WebSocket牌局消息处理器
type GameMessageHandler struct {
	service GameService
	timeout time.Duration
	logger  *zap.Logger
}

// NewGameMessageHandler 创建牌局消息处理器
func NewGameMessageHandler(service GameService, logger *zap.Logger) *GameMessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameMessageHandler{
		service: service,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// HandleClientMessage 处理客户端消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("解析消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		client.sendError(int(errors.ErrMessageFormat), "消息格式错误")
		return
	}

	h.logger.Debug("收到WebSocket消息",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type),
		zap.String("player_id", client.PlayerID))

	switch msg.Type {
	case MessageTypePing:
		client.SendMessage(MessageTypePong, nil)

	case MessageTypePong:
		// 客户端响应心跳

	case MessageTypeSnapshot:
		h.handleSnapshot(client)

	case MessageTypeAction:
		h.handleAction(client, msg.Data)

	default:
		h.logger.Warn("收到不支持的消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		client.sendError(int(errors.ErrMessageFormat), "不支持的消息类型: "+msg.Type)
	}
}

// handleSnapshot 返回客户端玩家视角的快照，匿名客户端只能看到公开信息
func (h *GameMessageHandler) handleSnapshot(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	snap, err := h.service.GetSnapshot(ctx, client.SessionID, client.PlayerID)
	if err != nil {
		h.replyError(client, err)
		return
	}
	client.SendMessage(MessageTypeSnapshot, snap)
}

// handleAction 提交下注动作
func (h *GameMessageHandler) handleAction(client *Client, data json.RawMessage) {
	if client.PlayerID == "" {
		client.sendError(int(errors.ErrPermissionDenied), "观众不能下注")
		return
	}

	var req game.ActionRequest
	if len(data) == 0 || json.Unmarshal(data, &req) != nil {
		client.sendError(int(errors.ErrMessageFormat), "动作格式错误")
		return
	}
	action, err := holdem.ParseMoveType(req.Action)
	if err != nil {
		h.replyError(client, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	snap, err := h.service.SubmitAction(ctx, client.SessionID, client.PlayerID, action, req.Amount)
	if err != nil {
		h.logger.Info("动作被拒绝",
			zap.String("session_id", client.SessionID),
			zap.String("player_id", client.PlayerID),
			zap.String("action", string(action)),
			zap.Error(err))
		h.replyError(client, err)
		return
	}
	client.SendMessage(MessageTypeActionResult, snap)
}

// replyError 把应用错误转换为错误消息
func (h *GameMessageHandler) replyError(client *Client, err error) {
	code := errors.GetCode(err)
	message := err.Error()
	if appErr, ok := errors.As(err); ok {
		message = appErr.Message
		if appErr.Details != "" {
			message += ": " + appErr.Details
		}
	}
	client.sendError(int(code), message)
}
