package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"github.com/wfunc/holdem-server/internal/middleware"
	"github.com/wfunc/holdem-server/internal/repository"
	"go.uber.org/zap"
)

// GameHandler 牌局处理器
type GameHandler struct {
	sessions *game.SessionManager
	logger   *zap.Logger
}

// NewGameHandler 创建牌局处理器
func NewGameHandler(sessions *game.SessionManager, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// StartGameResponse 开局响应
type StartGameResponse struct {
	Session  game.SessionInfo `json:"session"`
	Snapshot *game.Snapshot   `json:"snapshot"`
}

// StartGame 开始一局游戏
// @Summary 开始游戏
// @Description 按座位顺序传入玩家和初始筹码，盲注为0时使用服务器默认值
// @Tags Games
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body game.StartGameRequest true "开局参数"
// @Success 201 {object} StartGameResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games [post]
func (h *GameHandler) StartGame(c *gin.Context) {
	var req game.StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.sessions.StartGame(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	snap, err := session.Snapshot(c.Request.Context(), "")
	if err != nil {
		respondError(c, err)
		return
	}

	operator, _ := middleware.GetPlayerID(c)
	h.logger.Info("开始游戏",
		zap.String("session_id", session.ID()),
		zap.String("table_id", session.TableID()),
		zap.String("operator", operator))

	c.JSON(http.StatusCreated, StartGameResponse{
		Session:  session.Info(),
		Snapshot: snap,
	})
}

// ListGames 列出进行中的牌局
// @Summary 进行中的牌局
// @Tags Games
// @Produce json
// @Success 200 {array} game.SessionInfo
// @Router /api/v1/games [get]
func (h *GameHandler) ListGames(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.ListSessions())
}

// GetGame 获取牌局快照，带令牌时包含自己的底牌
// @Summary 牌局快照
// @Tags Games
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} game.Snapshot
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id} [get]
func (h *GameHandler) GetGame(c *gin.Context) {
	viewer, _ := middleware.GetPlayerID(c)
	snap, err := h.sessions.GetSnapshot(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SubmitAction 提交下注动作，玩家由令牌确定
// @Summary 提交动作
// @Description action 取值 CHECK/CALL/RAISE/FOLD/ALL_IN，RAISE 的 amount 是加注到的总额
// @Tags Games
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body game.ActionRequest true "动作"
// @Success 200 {object} game.Snapshot
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/games/{id}/actions [post]
func (h *GameHandler) SubmitAction(c *gin.Context) {
	playerID, _ := middleware.GetPlayerID(c)

	var req game.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	action, err := holdem.ParseMoveType(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	snap, err := h.sessions.SubmitAction(c.Request.Context(), c.Param("id"), playerID, action, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PauseGame 暂停牌局
// @Summary 暂停牌局
// @Tags Games
// @Security Bearer
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/games/{id}/pause [post]
func (h *GameHandler) PauseGame(c *gin.Context) {
	if err := h.sessions.Pause(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "牌局已暂停"})
}

// ResumeGame 恢复牌局
// @Summary 恢复牌局
// @Tags Games
// @Security Bearer
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/games/{id}/resume [post]
func (h *GameHandler) ResumeGame(c *gin.Context) {
	if err := h.sessions.Resume(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "牌局已恢复"})
}

// StopGame 停止牌局，进行中的手牌退还筹码
// @Summary 停止牌局
// @Tags Games
// @Security Bearer
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/games/{id} [delete]
func (h *GameHandler) StopGame(c *gin.Context) {
	if err := h.sessions.StopGame(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "牌局已停止"})
}

// JoinAsSpectator 以观战者身份加入
// @Summary 观战
// @Tags Games
// @Security Bearer
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/games/{id}/spectators [post]
func (h *GameHandler) JoinAsSpectator(c *gin.Context) {
	playerID, _ := middleware.GetPlayerID(c)
	if err := h.sessions.AddSpectator(c.Request.Context(), c.Param("id"), playerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "已加入观战"})
}

// LeaveSpectator 离开观战
// @Summary 离开观战
// @Tags Games
// @Security Bearer
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/games/{id}/spectators [delete]
func (h *GameHandler) LeaveSpectator(c *gin.Context) {
	playerID, _ := middleware.GetPlayerID(c)
	if err := h.sessions.RemoveSpectator(c.Request.Context(), c.Param("id"), playerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "已离开观战"})
}

// HistoryHandler 牌局历史处理器
type HistoryHandler struct {
	repos *repository.Manager
}

// NewHistoryHandler 创建历史处理器
func NewHistoryHandler(repos *repository.Manager) *HistoryHandler {
	return &HistoryHandler{repos: repos}
}

// PageResponse 分页响应
type PageResponse struct {
	Items    interface{} `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int64       `json:"total"`
}

func pagination(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return repository.NewPagination(page, size)
}

// ListHands 分页查询一局游戏的手牌记录，最新的在前
// @Summary 手牌记录
// @Tags History
// @Produce json
// @Param id path string true "会话ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} PageResponse
// @Router /api/v1/games/{id}/hands [get]
func (h *HistoryHandler) ListHands(c *gin.Context) {
	p := pagination(c)
	hands, err := h.repos.Hand().FindBySessionID(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PageResponse{Items: hands, Page: p.Page, PageSize: p.PageSize, Total: p.Total})
}

// GetHand 查询单手牌记录
// @Summary 单手牌记录
// @Tags History
// @Produce json
// @Param hand_id path string true "手牌ID"
// @Success 200 {object} models.HandRecord
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/hands/{hand_id} [get]
func (h *HistoryHandler) GetHand(c *gin.Context) {
	hand, err := h.repos.Hand().FindByHandID(c.Request.Context(), c.Param("hand_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hand)
}

// ListTableGames 查询牌桌的历史牌局
// @Summary 牌桌历史
// @Tags History
// @Produce json
// @Param table_id path string true "牌桌ID"
// @Success 200 {object} PageResponse
// @Router /api/v1/tables/{table_id}/games [get]
func (h *HistoryHandler) ListTableGames(c *gin.Context) {
	p := pagination(c)
	games, err := h.repos.PokerGame().FindByTableID(c.Request.Context(), c.Param("table_id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PageResponse{Items: games, Page: p.Page, PageSize: p.PageSize, Total: p.Total})
}

// PlayerStats 玩家统计
// @Summary 玩家统计
// @Tags History
// @Produce json
// @Param id path string true "玩家ID"
// @Success 200 {object} repository.PlayerStatistics
// @Router /api/v1/players/{id}/stats [get]
func (h *HistoryHandler) PlayerStats(c *gin.Context) {
	playerID := c.Param("id")
	if playerID == "" {
		respondError(c, errors.New(errors.ErrInvalidParam, "玩家ID"))
		return
	}
	stats, err := h.repos.Hand().GetPlayerStatistics(c.Request.Context(), playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
