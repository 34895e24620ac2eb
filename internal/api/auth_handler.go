package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/utils"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器。玩家令牌由外部账号系统用同一密钥签发，
// 这里只负责操作员登录和令牌刷新
type AuthHandler struct {
	jwt         *utils.JWTManager
	credentials utils.Credentials
	logger      *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwt *utils.JWTManager, credentials utils.Credentials, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwt:         jwt,
		credentials: credentials,
		logger:      logger,
	}
}

// LoginRequest 操作员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse 令牌响应
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login 操作员登录
// @Summary 操作员登录
// @Description 使用配置中的操作员账号换取带 operator 角色的令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if !h.credentials.Authenticate(req.Username, req.Password) {
		h.logger.Warn("操作员登录失败",
			zap.String("username", req.Username),
			zap.String("ip", c.ClientIP()))
		respondError(c, errors.New(errors.ErrAuthentication, "用户名或密码错误"))
		return
	}

	access, err := h.jwt.GenerateAccessToken(req.Username, utils.RoleOperator)
	if err != nil {
		respondError(c, err)
		return
	}
	refresh, err := h.jwt.GenerateRefreshToken(req.Username, utils.RoleOperator)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("操作员登录", zap.String("username", req.Username))
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.jwt.GetTokenExpiry(utils.TokenTypeAccess).Seconds()),
	})
}

// RefreshToken 刷新访问令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新令牌"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	access, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		code := errors.ErrTokenInvalid
		if err == utils.ErrExpiredToken {
			code = errors.ErrTokenExpired
		}
		respondError(c, errors.Wrap(err, code))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.GetTokenExpiry(utils.TokenTypeAccess).Seconds()),
	})
}
