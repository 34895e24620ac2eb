// Package notifier 提供 game.Notifier 的几种实现：Redis 发布、日志以及组合广播
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/logger"
)

// DefaultChannelPrefix 每个会话一个频道：<prefix><sessionID>
const DefaultChannelPrefix = "holdem:session:"

// publishAttempts 可重试的发布错误最多尝试的次数
const publishAttempts = 2

// Publisher Redis 发布接口，*redis.Client 和 *redis.ClusterClient 都满足
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier 把牌局事件发布到 Redis，供其他节点订阅
type RedisNotifier struct {
	client  Publisher
	prefix  string
	timeout time.Duration
}

// NewRedisNotifier 创建 Redis 事件发布器，prefix 为空时使用默认前缀
func NewRedisNotifier(client Publisher, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisNotifier{client: client, prefix: prefix}
}

// SetPublishTimeout 设置单次发布的超时，0 表示只受调用方 ctx 约束
func (n *RedisNotifier) SetPublishTimeout(d time.Duration) *RedisNotifier {
	n.timeout = d
	return n
}

// Channel 会话对应的频道名
func (n *RedisNotifier) Channel(sessionID string) string {
	return n.prefix + sessionID
}

// Broadcast 实现 game.Notifier
func (n *RedisNotifier) Broadcast(ctx context.Context, sessionID string, event game.Event) error {
	channel := n.Channel(sessionID)
	payload, err := json.Marshal(event)
	if err != nil {
		err = errors.Wrap(err, errors.ErrMessageFormat, string(event.Type))
		logger.LogEventPublish(channel, string(event.Type), err)
		return err
	}

	var appErr *errors.AppError
	for attempt := 0; attempt < publishAttempts; attempt++ {
		err := n.publish(ctx, channel, payload)
		if err == nil {
			logger.LogEventPublish(channel, string(event.Type), nil)
			return nil
		}
		appErr = errors.Wrap(err, errors.ErrPublish, channel)
		if !errors.IsRetryable(appErr) || ctx.Err() != nil {
			break
		}
	}
	logger.LogEventPublish(channel, string(event.Type), appErr)
	return appErr
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, payload []byte) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	return n.client.Publish(ctx, channel, payload).Err()
}

// DecodeEvent 解析从频道收到的消息
func DecodeEvent(payload string) (*game.Event, error) {
	var event game.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, errors.Wrap(err, errors.ErrMessageFormat, "解析牌局事件")
	}
	return &event, nil
}

// NewRedisClient 根据配置创建 Redis 客户端并检查连接
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrPublish, "连接Redis "+addr)
	}
	return client, nil
}
