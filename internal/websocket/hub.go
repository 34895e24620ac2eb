package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MessageHandler 处理客户端发来的消息
type MessageHandler interface {
	HandleClientMessage(client *Client, data []byte)
}

// Hub WebSocket连接管理中心
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 玩家ID到客户端的映射
	playerClients map[string][]*Client
	playerMu      sync.RWMutex

	// 消息广播通道
	broadcast chan *Message

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	messageHandler MessageHandler
	heartbeat      time.Duration
	done           chan struct{}

	// 日志
	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"` // 消息类型
	PlayerID  string          `json:"player_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"` // 消息数据
	Timestamp int64           `json:"timestamp"`      // 时间戳
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 牌局消息
	MessageTypeEvent        = "event"         // 服务端推送的牌局事件
	MessageTypeSnapshot     = "snapshot"      // 请求/返回当前玩家视角的快照
	MessageTypeAction       = "action"        // 玩家下注动作
	MessageTypeActionResult = "action_result" // 动作成功后的快照
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:       make(map[string]*Client),
		playerClients: make(map[string][]*Client),
		broadcast:     make(chan *Message, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		heartbeat:     30 * time.Second,
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// SetMessageHandler 设置客户端消息处理器，需在 Run 之前调用
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub，ctx取消后关闭全部连接并返回
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer func() {
		ticker.Stop()
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ticker.C:
			h.broadcastMessage(&Message{
				Type:      MessageTypePing,
				Timestamp: time.Now().Unix(),
			})
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	// 添加到玩家客户端映射
	if client.PlayerID != "" {
		h.playerMu.Lock()
		h.playerClients[client.PlayerID] = append(h.playerClients[client.PlayerID], client)
		h.playerMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("player_id", client.PlayerID),
		zap.String("session_id", client.SessionID))

	// 发送连接成功消息
	msg := &Message{
		Type:      MessageTypeConnected,
		SessionID: client.SessionID,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	}
	_ = h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	// 从玩家客户端映射中移除
	if client.PlayerID != "" {
		h.playerMu.Lock()
		clients := h.playerClients[client.PlayerID]
		for i, c := range clients {
			if c.ID == client.ID {
				h.playerClients[client.PlayerID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.playerClients[client.PlayerID]) == 0 {
			delete(h.playerClients, client.PlayerID)
		}
		h.playerMu.Unlock()
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("player_id", client.PlayerID))
}

// closeAll Hub退出时关闭全部发送通道，WritePump随之关闭连接
func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for id, client := range h.clients {
		close(client.Send)
		delete(h.clients, id)
	}
	h.clientsMu.Unlock()

	h.playerMu.Lock()
	h.playerClients = make(map[string][]*Client)
	h.playerMu.Unlock()
}

// broadcastMessage 广播消息
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
	h.clientsMu.RUnlock()
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToPlayer 发送消息给指定玩家的所有客户端
func (h *Hub) SendToPlayer(playerID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.playerMu.RLock()
	clients := append([]*Client(nil), h.playerClients[playerID]...)
	h.playerMu.RUnlock()

	if len(clients) == 0 {
		return ErrPlayerNotConnected
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range clients {
		if _, ok := h.clients[client.ID]; !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("玩家客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("player_id", playerID))
		}
	}
	return nil
}

// SendToSession 发送消息给订阅了指定牌局的所有客户端
func (h *Hub) SendToSession(sessionID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	found := false
	for _, client := range h.clients {
		if client.SessionID != sessionID {
			continue
		}
		found = true
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("会话客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("session_id", sessionID))
		}
	}

	if !found {
		return ErrSessionNotFound
	}
	return nil
}

// GetOnlinePlayers 获取在线玩家列表
func (h *Hub) GetOnlinePlayers() []string {
	h.playerMu.RLock()
	defer h.playerMu.RUnlock()

	players := make([]string, 0, len(h.playerClients))
	for playerID := range h.playerClients {
		players = append(players, playerID)
	}
	return players
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Broadcast 广播消息给全部客户端
func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
