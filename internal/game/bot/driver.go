package bot

import (
	"context"
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"go.uber.org/zap"
)

const defaultPollInterval = 5 * time.Millisecond

// Driver 让同一个策略替牌桌上所有入座玩家行动
type Driver struct {
	Session      *game.Session
	Policy       Policy
	Logger       *zap.Logger
	PollInterval time.Duration // 无人可行动时的轮询间隔
}

// Stats 驱动结束时的统计
type Stats struct {
	Actions   int
	Rejected  int
	LastHand  int
	GameEnded bool
}

// Run 持续替行动者决策，直到打完 maxHands 手牌、游戏结束或ctx取消。
// maxHands<=0 表示不限手数
func (d *Driver) Run(ctx context.Context, maxHands int) (Stats, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poll := d.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	var stats Stats
	for {
		public, err := d.Session.Snapshot(ctx, "")
		if err != nil {
			if errors.Is(err, errors.ErrSessionStopped) {
				stats.GameEnded = true
				return stats, nil
			}
			return stats, err
		}
		stats.LastHand = public.HandNumber
		if public.Stage == game.StageEnded {
			stats.GameEnded = true
			return stats, nil
		}
		if maxHands > 0 && public.HandNumber > maxHands {
			return stats, nil
		}

		if public.ToAct == "" || public.Paused {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-d.Session.Done():
			case <-time.After(poll):
			}
			continue
		}

		if err := d.act(ctx, public.ToAct, &stats); err != nil {
			if errors.Is(err, errors.ErrSessionStopped) {
				stats.GameEnded = true
				return stats, nil
			}
			return stats, err
		}
	}
}

// act 为一名玩家决策并提交，非法动作时退回过牌或弃牌
func (d *Driver) act(ctx context.Context, playerID string, stats *Stats) error {
	view, err := d.Session.Snapshot(ctx, playerID)
	if err != nil {
		return err
	}
	situation, ok := FromSnapshot(view, playerID)
	if !ok {
		// 快照之间行动权已经转移
		return nil
	}

	decision := d.Policy.Decide(situation)
	_, err = d.Session.Submit(ctx, playerID, decision.Action, decision.Amount)
	switch {
	case err == nil:
		stats.Actions++
		return nil
	case errors.Is(err, errors.ErrNotYourTurn), errors.Is(err, errors.ErrBettingClosed):
		return nil
	case errors.IsInvalidMove(err):
		stats.Rejected++
		if d.Logger != nil {
			d.Logger.Debug("机器人动作被拒绝",
				zap.String("player_id", playerID),
				zap.String("action", string(decision.Action)),
				zap.Int64("amount", decision.Amount),
				zap.Error(err))
		}
		fallback := holdem.MoveFold
		if situation.Can(holdem.MoveCheck) {
			fallback = holdem.MoveCheck
		}
		if _, err := d.Session.Submit(ctx, playerID, fallback, 0); err != nil && !errors.IsInvalidMove(err) {
			return err
		}
		stats.Actions++
		return nil
	default:
		return err
	}
}
