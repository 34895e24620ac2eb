package notifier

import (
	"context"

	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"github.com/wfunc/holdem-server/internal/logger"
	"go.uber.org/zap"
)

// Log 把牌局事件写入 table 模块日志
type Log struct{}

// Broadcast 实现 game.Notifier
func (Log) Broadcast(_ context.Context, sessionID string, event game.Event) error {
	switch event.Type {
	case game.EventPlayerAction, game.EventPlayerTimeout:
		move, _ := event.Data.(holdem.Move)
		logger.LogPlayerAction(sessionID, event.PlayerID, string(move.Type), move.Amount,
			event.Type == game.EventPlayerTimeout)
	default:
		fields := []zap.Field{zap.String("table_id", event.TableID)}
		if event.Message != "" {
			fields = append(fields, zap.String("message", event.Message))
		}
		if event.Snapshot != nil {
			fields = append(fields, zap.Int64("pot", event.Snapshot.Pot))
		}
		logger.LogHandEvent(string(event.Type), sessionID, event.HandNumber, fields...)
	}
	return nil
}
