package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrClientNotFound     = errors.New("客户端未找到")
	ErrPlayerNotConnected = errors.New("玩家未连接")
	ErrSessionNotFound    = errors.New("会话没有订阅者")
	ErrSendBufferFull     = errors.New("发送缓冲区已满")
)

// WebSocket配置
const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// ping发送周期（必须小于pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 默认最大消息大小
	defaultMaxMessageSize = 64 * 1024
)

// Conn 客户端使用的连接接口，*websocket.Conn 实现了它
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client WebSocket客户端，一个连接只订阅一个牌局
type Client struct {
	ID        string
	PlayerID  string // 空表示匿名观众
	SessionID string
	Hub       *Hub
	Conn      Conn
	Send      chan []byte

	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	closeOnce      sync.Once
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn Conn, playerID, sessionID string) *Client {
	return &Client{
		ID:             uuid.New().String(),
		PlayerID:       playerID,
		SessionID:      sessionID,
		Hub:            hub,
		Conn:           conn,
		Send:           make(chan []byte, 256),
		maxMessageSize: defaultMaxMessageSize,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
	}
}

// SetMaxMessageSize 设置单条消息大小上限
func (c *Client) SetMaxMessageSize(n int64) {
	if n > 0 {
		c.maxMessageSize = n
	}
}

// SetTimeouts 设置心跳和写超时，非正数保留默认值。ping周期不小于pong超时时按pong超时的9/10计算
func (c *Client) SetTimeouts(ping, pong, write time.Duration) {
	if write > 0 {
		c.writeWait = write
	}
	if pong > 0 {
		c.pongWait = pong
	}
	if ping > 0 {
		c.pingPeriod = ping
	}
	if c.pingPeriod >= c.pongWait {
		c.pingPeriod = (c.pongWait * 9) / 10
	}
}

// ReadPump 读取消息，客户端消息的处理都在这个goroutine中完成
func (c *Client) ReadPump() {
	defer func() {
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// 每条消息单独一帧，客户端按帧解析JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(data []byte) {
	if c.Hub.messageHandler != nil {
		c.Hub.messageHandler.HandleClientMessage(c, data)
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(0, "消息格式错误")
		return
	}
	if msg.Type == MessageTypePing {
		c.SendMessage(MessageTypePong, nil)
	}
}

// sendError 发送错误消息
func (c *Client) sendError(code int, message string) {
	c.SendMessage(MessageTypeError, ErrorData{Code: code, Error: message})
}

// ErrorData 错误消息内容
type ErrorData struct {
	Code  int    `json:"code,omitempty"`
	Error string `json:"error"`
}

// SendMessage 发送消息给客户端
func (c *Client) SendMessage(msgType string, data interface{}) error {
	var raw json.RawMessage
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = jsonData
	}

	msg := &Message{
		Type:      msgType,
		PlayerID:  c.PlayerID,
		SessionID: c.SessionID,
		Data:      raw,
		Timestamp: time.Now().Unix(),
	}

	return c.Hub.SendToClient(c.ID, msg)
}

// Close 从Hub注销客户端，可重复调用
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.Hub.Unregister(c)
	})
}
