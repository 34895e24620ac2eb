package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/holdem-server/internal/config"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/logger"
	"github.com/wfunc/holdem-server/internal/middleware"
	"github.com/wfunc/holdem-server/internal/repository"
	"github.com/wfunc/holdem-server/internal/utils"
	ws "github.com/wfunc/holdem-server/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies 路由依赖，DB 和 Repos 为空时不提供历史查询
type Dependencies struct {
	DB          *gorm.DB
	Repos       *repository.Manager
	Sessions    *game.SessionManager
	Hub         *ws.Hub
	JWT         *utils.JWTManager
	Credentials utils.Credentials
	WebSocket   config.WebSocketConfig
	Logger      *zap.Logger
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	deps           Dependencies
	authMiddleware *middleware.AuthMiddleware
	authHandler    *AuthHandler
	gameHandler    *GameHandler
	historyHandler *HistoryHandler
	wsHandler      *WebSocketHandler
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.LogPanic(recovered, debug.Stack(), zap.String("path", c.Request.URL.Path))
		respondError(c, errors.Newf(errors.ErrUnknown, "panic: %v", recovered))
	}))
	engine.Use(requestLogger())

	router := &Router{
		engine:         engine,
		deps:           deps,
		authMiddleware: middleware.NewAuthMiddleware(deps.JWT),
		authHandler:    NewAuthHandler(deps.JWT, deps.Credentials, deps.Logger),
		gameHandler:    NewGameHandler(deps.Sessions, deps.Logger),
		wsHandler:      NewWebSocketHandler(deps.Hub, deps.Sessions, deps.WebSocket, deps.Logger),
		log:            deps.Logger,
	}
	if deps.Repos != nil {
		router.historyHandler = NewHistoryHandler(deps.Repos)
	}

	router.setupRoutes()
	return router
}

// requestLogger 请求日志中间件
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)
		}

		v1.GET("/online", r.wsHandler.GetOnlineCount)

		games := v1.Group("/games")
		{
			games.GET("", r.gameHandler.ListGames)
			games.GET("/:id", r.authMiddleware.OptionalAuth(), r.gameHandler.GetGame)

			// 玩家路由
			player := games.Group("/:id")
			player.Use(r.authMiddleware.RequireAuth())
			{
				player.POST("/actions", r.gameHandler.SubmitAction)
				player.POST("/spectators", r.gameHandler.JoinAsSpectator)
				player.DELETE("/spectators", r.gameHandler.LeaveSpectator)
			}

			// 操作员路由
			operator := games.Group("")
			operator.Use(r.authMiddleware.RequireRole(utils.RoleOperator))
			{
				operator.POST("", r.gameHandler.StartGame)
				operator.POST("/:id/pause", r.gameHandler.PauseGame)
				operator.POST("/:id/resume", r.gameHandler.ResumeGame)
				operator.DELETE("/:id", r.gameHandler.StopGame)
			}

			if r.historyHandler != nil {
				games.GET("/:id/hands", r.historyHandler.ListHands)
			}
		}

		if r.historyHandler != nil {
			v1.GET("/hands/:hand_id", r.historyHandler.GetHand)
			v1.GET("/tables/:table_id/games", r.historyHandler.ListTableGames)
			v1.GET("/players/:id/stats", r.historyHandler.PlayerStats)
		}
	}

	// WebSocket路由，可带 ?token= 以玩家身份连接
	r.engine.GET(r.wsHandler.routePrefix()+"/games/:id", r.authMiddleware.OptionalAuth(), r.wsHandler.GameWebSocket)

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	status := gin.H{
		"status":          "healthy",
		"active_sessions": r.deps.Sessions.GetActiveSessions(),
		"online":          r.deps.Hub.GetOnlineCount(),
	}

	if r.deps.DB != nil {
		sqlDB, err := r.deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			r.log.Warn("健康检查数据库失败", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "数据库不可用",
			})
			return
		}
	}

	c.JSON(http.StatusOK, status)
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
