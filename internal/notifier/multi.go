package notifier

import (
	"context"

	"github.com/wfunc/holdem-server/internal/game"
	"go.uber.org/multierr"
)

// Multi 依次投递给多个 Notifier，某一个失败不影响其余的
type Multi []game.Notifier

// Broadcast 实现 game.Notifier，返回所有失败合并后的错误
func (m Multi) Broadcast(ctx context.Context, sessionID string, event game.Event) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Broadcast(ctx, sessionID, event))
	}
	return err
}
