package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/holdem-server/internal/config"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/middleware"
	ws "github.com/wfunc/holdem-server/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	sessions *game.SessionManager
	upgrader websocket.Upgrader
	cfg      config.WebSocketConfig
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, sessions *game.SessionManager, cfg config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				// 令牌校验已在中间件完成
				return true
			},
		},
		logger: logger,
	}
}

// routePrefix WebSocket路由前缀，未配置时为 /ws
func (h *WebSocketHandler) routePrefix() string {
	path := strings.TrimRight(h.cfg.Path, "/")
	if path == "" {
		return "/ws"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// GameWebSocket 订阅一局游戏的事件，不带令牌时以匿名观众身份连接
// @Summary 牌局WebSocket
// @Tags Games
// @Param id path string true "会话ID"
// @Param token query string false "访问令牌"
// @Router /ws/games/{id} [get]
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.sessions.GetSession(sessionID); err != nil {
		respondError(c, err)
		return
	}

	playerID, _ := middleware.GetPlayerID(c)

	// 升级为WebSocket连接
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("player_id", playerID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, playerID, sessionID)
	client.SetMaxMessageSize(h.cfg.MaxMessageSize)
	client.SetTimeouts(h.cfg.PingInterval, h.cfg.PongTimeout, h.cfg.WriteTimeout)

	// 注册客户端
	h.hub.Register(client)

	// 启动读写协程
	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("player_id", playerID),
		zap.String("session_id", sessionID))
}

// GetOnlineCount 获取在线连接数
// @Summary 在线连接数
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/online [get]
func (h *WebSocketHandler) GetOnlineCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_count":   h.hub.GetOnlineCount(),
		"online_players": h.hub.GetOnlinePlayers(),
	})
}
