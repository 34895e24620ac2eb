package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/utils"
)

func newTestEngine(t *testing.T) (*gin.Engine, *utils.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtManager := utils.NewJWTManager("secret", time.Hour, 24*time.Hour)
	m := NewAuthMiddleware(jwtManager)

	whoami := func(c *gin.Context) {
		id, _ := GetPlayerID(c)
		role, _ := GetRole(c)
		c.JSON(http.StatusOK, gin.H{"player_id": id, "role": role})
	}

	engine := gin.New()
	engine.GET("/auth", m.RequireAuth(), whoami)
	engine.GET("/optional", m.OptionalAuth(), whoami)
	engine.GET("/operator", m.RequireRole(utils.RoleOperator), whoami)
	return engine, jwtManager
}

func do(engine *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	engine, jwtManager := newTestEngine(t)
	player, err := jwtManager.GenerateAccessToken("alice", utils.RolePlayer)
	require.NoError(t, err)
	operator, err := jwtManager.GenerateAccessToken("dealer", utils.RoleOperator)
	require.NoError(t, err)
	refresh, err := jwtManager.GenerateRefreshToken("alice", utils.RolePlayer)
	require.NoError(t, err)

	t.Run("Bearer令牌", func(t *testing.T) {
		w := do(engine, "/auth", map[string]string{"Authorization": "Bearer " + player})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"player_id":"alice","role":"player"}`, w.Body.String())
	})

	t.Run("X-Access-Token和查询参数", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(engine, "/auth", map[string]string{"X-Access-Token": player}).Code)
		assert.Equal(t, http.StatusOK, do(engine, "/auth?token="+player, nil).Code)
	})

	t.Run("缺少或无效令牌", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(engine, "/auth", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, do(engine, "/auth", map[string]string{"Authorization": "Bearer bad"}).Code)
	})

	t.Run("刷新令牌不能当访问令牌", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(engine, "/auth?token="+refresh, nil).Code)
	})

	t.Run("角色检查", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do(engine, "/operator?token="+player, nil).Code)
		assert.Equal(t, http.StatusOK, do(engine, "/operator?token="+operator, nil).Code)
	})

	t.Run("可选认证", func(t *testing.T) {
		w := do(engine, "/optional", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"player_id":"","role":""}`, w.Body.String())

		w = do(engine, "/optional?token=bad", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = do(engine, "/optional?token="+player, nil)
		assert.JSONEq(t, `{"player_id":"alice","role":"player"}`, w.Body.String())
	})
}
