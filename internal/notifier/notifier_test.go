package notifier

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"go.uber.org/multierr"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu          sync.Mutex
	sent        []published
	err         error
	calls       int
	hadDeadline bool
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, f.hadDeadline = ctx.Deadline()
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.sent = append(f.sent, published{channel: channel, payload: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

func sampleEvent() game.Event {
	return game.Event{
		Type:       game.EventPlayerAction,
		SessionID:  "s1",
		TableID:    "t1",
		HandNumber: 3,
		PlayerID:   "alice",
		Data:       holdem.Move{Type: holdem.MoveRaise, Amount: 40, PlayerID: "alice", Stage: holdem.StageFlop},
		Snapshot: &game.Snapshot{
			SessionID:      "s1",
			Stage:          game.StageFlop,
			Pot:            70,
			CommunityCards: holdem.MustParseCards("Ad 7d 9h"),
		},
		Timestamp: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
	}
}

func TestRedisNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("按会话发布到独立频道", func(t *testing.T) {
		pub := &fakePublisher{}
		n := NewRedisNotifier(pub, "")
		require.NoError(t, n.Broadcast(ctx, "s1", sampleEvent()))

		require.Len(t, pub.sent, 1)
		assert.Equal(t, "holdem:session:s1", pub.sent[0].channel)

		event, err := DecodeEvent(string(pub.sent[0].payload))
		require.NoError(t, err)
		assert.Equal(t, game.EventPlayerAction, event.Type)
		assert.Equal(t, 3, event.HandNumber)
		require.NotNil(t, event.Snapshot)
		assert.Equal(t, holdem.MustParseCards("Ad 7d 9h"), event.Snapshot.CommunityCards)
	})

	t.Run("自定义前缀", func(t *testing.T) {
		n := NewRedisNotifier(&fakePublisher{}, "poker:")
		assert.Equal(t, "poker:abc", n.Channel("abc"))
	})

	t.Run("发布失败返回错误", func(t *testing.T) {
		pub := &fakePublisher{err: stderrors.New("connection refused")}
		err := NewRedisNotifier(pub, "").Broadcast(ctx, "s1", sampleEvent())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPublish))
		assert.Equal(t, 2, pub.calls, "发布失败可重试一次")
	})

	t.Run("发布超时作用于每次发布", func(t *testing.T) {
		pub := &fakePublisher{}
		n := NewRedisNotifier(pub, "").SetPublishTimeout(time.Second)
		require.NoError(t, n.Broadcast(ctx, "s1", sampleEvent()))
		assert.True(t, pub.hadDeadline)

		plain := &fakePublisher{}
		require.NoError(t, NewRedisNotifier(plain, "").Broadcast(ctx, "s1", sampleEvent()))
		assert.False(t, plain.hadDeadline)
	})

	t.Run("无法解析的消息", func(t *testing.T) {
		_, err := DecodeEvent("{")
		assert.True(t, errors.Is(err, errors.ErrMessageFormat))
	})
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	var got []string
	ok := game.NotifierFunc(func(_ context.Context, sessionID string, e game.Event) error {
		got = append(got, sessionID+":"+string(e.Type))
		return nil
	})
	failing := game.NotifierFunc(func(context.Context, string, game.Event) error {
		return errors.New(errors.ErrWebSocketSend)
	})

	m := Multi{failing, nil, ok, failing}
	err := m.Broadcast(ctx, "s1", sampleEvent())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []string{"s1:PLAYER_ACTION"}, got, "失败不影响后面的通知")

	assert.NoError(t, Multi{ok}.Broadcast(ctx, "s2", sampleEvent()))
	assert.NoError(t, Multi{}.Broadcast(ctx, "s3", sampleEvent()))
}

func TestLog(t *testing.T) {
	ctx := context.Background()
	for _, typ := range []game.EventType{game.EventPlayerAction, game.EventPlayerTimeout, game.EventRoundResult, game.EventGameEnded} {
		e := sampleEvent()
		e.Type = typ
		e.Message = "alice 赢得 70"
		assert.NoError(t, Log{}.Broadcast(ctx, "s1", e))
	}
}
