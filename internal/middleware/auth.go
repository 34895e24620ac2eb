package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/utils"
)

// 上下文键
const (
	ContextPlayerID = "playerID"
	ContextRole     = "role"
	ContextToken    = "token"
)

// TokenValidator 令牌校验接口，*utils.JWTManager 实现了它
type TokenValidator interface {
	ValidateToken(token string) (*utils.JWTClaims, error)
}

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
	}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选认证的中间件，令牌无效时按匿名处理
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if claims, err := m.validator.ValidateToken(token); err == nil && claims.TokenType == utils.TokenTypeAccess {
				setClaims(c, claims, token)
			}
		}
		c.Next()
	}
}

// RequireRole 需要特定角色的中间件
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.authenticate(c); !ok {
			return
		}

		for _, role := range roles {
			if HasRole(c, role) {
				c.Next()
				return
			}
		}

		abort(c, http.StatusForbidden, errors.New(errors.ErrPermissionDenied, "需要角色: "+strings.Join(roles, ",")))
	}
}

// authenticate 校验访问令牌并写入上下文，失败时已中止请求
func (m *AuthMiddleware) authenticate(c *gin.Context) (*utils.JWTClaims, bool) {
	token := extractToken(c)
	if token == "" {
		abort(c, http.StatusUnauthorized, errors.New(errors.ErrAuthentication, "缺少认证令牌"))
		return nil, false
	}

	claims, err := m.validator.ValidateToken(token)
	if err != nil {
		abort(c, http.StatusUnauthorized, errors.Wrap(err, errors.ErrTokenInvalid))
		return nil, false
	}
	if claims.TokenType != utils.TokenTypeAccess {
		abort(c, http.StatusUnauthorized, errors.New(errors.ErrTokenInvalid, "需要访问令牌"))
		return nil, false
	}

	setClaims(c, claims, token)
	return claims, true
}

func setClaims(c *gin.Context, claims *utils.JWTClaims, token string) {
	c.Set(ContextPlayerID, claims.PlayerID)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextToken, token)
}

func abort(c *gin.Context, status int, err *errors.AppError) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// extractToken 从请求中提取令牌
func extractToken(c *gin.Context) string {
	// 1. 从Authorization Header获取 (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. 从X-Access-Token Header获取
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. 从Query参数获取，浏览器的WebSocket无法设置Header
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetPlayerID 从上下文获取玩家ID
func GetPlayerID(c *gin.Context) (string, bool) {
	if playerID, exists := c.Get(ContextPlayerID); exists {
		if id, ok := playerID.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) (string, bool) {
	if role, exists := c.Get(ContextRole); exists {
		if r, ok := role.(string); ok {
			return r, true
		}
	}
	return "", false
}

// HasRole 检查是否有特定角色
func HasRole(c *gin.Context, role string) bool {
	userRole, exists := GetRole(c)
	return exists && userRole == role
}
