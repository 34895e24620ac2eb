package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitAndSetLevel(t *testing.T) {
	dir := t.TempDir()
	err := Init(&config.LogConfig{
		Level:  "info",
		Format: "console",
		Output: "file",
		File: config.LogFileConfig{
			Path:       dir,
			Filename:   "holdem-test.log",
			MaxSize:    1,
			MaxAge:     1,
			MaxBackups: 1,
		},
	})
	require.NoError(t, err)

	core := GetLogger().Core()
	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))

	t.Run("运行时调整日志级别", func(t *testing.T) {
		SetLevel("debug")
		assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))

		SetLevel("error")
		assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
		assert.True(t, GetLogger().Core().Enabled(zapcore.ErrorLevel))

		SetLevel("info")
	})

	t.Run("牌局日志写入文件", func(t *testing.T) {
		LogHandEvent("hand_started", "s-1", 1, zap.Int("players", 3))
		LogPlayerAction("s-1", "alice", "RAISE", 40, false)
		LogError(assert.AnError, "测试错误")
		LogPanic("boom", []byte("goroutine 1"), zap.String("session_id", "s-1"))
		SetLevel("debug")
		LogWebSocketMessage("out", "PLAYER_ACTION", "s-9")
		SetLevel("info")
		_ = Sync()

		data, err := os.ReadFile(filepath.Join(dir, "holdem-test.log"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "player_action")
		assert.Contains(t, string(data), "alice")
		assert.Contains(t, string(data), "ws_message")
		assert.Contains(t, string(data), "s-9")

		errData, err := os.ReadFile(filepath.Join(dir, "error.log"))
		require.NoError(t, err)
		assert.Contains(t, string(errData), "测试错误")
		assert.Contains(t, string(errData), "panic recovered")
		assert.Contains(t, string(errData), "boom")
	})

	t.Run("未配置的模块返回默认日志器", func(t *testing.T) {
		assert.Equal(t, GetLogger(), GetModuleLogger("unknown"))
	})
}
