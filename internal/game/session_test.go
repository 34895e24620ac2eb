package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game/holdem"
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntil(n int)
}

// recorder 同时实现 Notifier 和 Repository，记录所有调用
type recorder struct {
	mu       sync.Mutex
	events   []Event
	games    []GameRecord
	hands    []HandRecord
	failSave bool
}

func (r *recorder) Broadcast(_ context.Context, _ string, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) SaveGame(_ context.Context, g *GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New(errors.ErrDatabaseInsert)
	}
	r.games = append(r.games, *g)
	return nil
}

func (r *recorder) SaveHand(_ context.Context, h *HandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New(errors.ErrDatabaseInsert)
	}
	r.hands = append(r.hands, *h)
	return nil
}

func (r *recorder) eventsOf(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) handRecords() []HandRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HandRecord(nil), r.hands...)
}

func (r *recorder) gameRecords() []GameRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GameRecord(nil), r.games...)
}

// stackedDeck 按给定顺序发牌，剩余的牌按固定顺序补齐
func stackedDeck(t *testing.T, top string) func() *holdem.Deck {
	t.Helper()
	cards := holdem.MustParseCards(top)
	used := make(map[holdem.Card]bool, len(cards))
	for _, c := range cards {
		used[c] = true
	}
	for _, suit := range holdem.Suits {
		for r := holdem.Two; r <= holdem.Ace; r++ {
			c := holdem.Card{Rank: r, Suit: suit}
			if !used[c] {
				cards = append(cards, c)
			}
		}
	}
	_, err := holdem.NewOrderedDeck(cards)
	require.NoError(t, err)
	return func() *holdem.Deck {
		d, _ := holdem.NewOrderedDeck(cards)
		return d
	}
}

type testTable struct {
	t     *testing.T
	s     *Session
	clock fakeClock
	rec   *recorder
}

func newTestTable(t *testing.T, deck func() *holdem.Deck, interval time.Duration, chips ...int64) *testTable {
	t.Helper()
	players := make([]PlayerSeat, len(chips))
	for i, c := range chips {
		players[i] = PlayerSeat{PlayerID: fmt.Sprintf("p%d", i), Chips: c}
	}
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	s, err := NewSession("s1", StartGameRequest{
		TableID:    "t1",
		Players:    players,
		SmallBlind: 5,
		BigBlind:   10,
	}, SessionConfig{
		TurnTimeout:  30 * time.Second,
		HandInterval: interval,
		Clock:        clock,
		Notifier:     rec,
		Repository:   rec,
		DeckFactory:  deck,
	})
	require.NoError(t, err)
	s.Start()
	t.Cleanup(s.Stop)
	return &testTable{t: t, s: s, clock: clock, rec: rec}
}

func (tb *testTable) act(player string, action holdem.MoveType, amount int64) *Snapshot {
	tb.t.Helper()
	snap, err := tb.s.Submit(context.Background(), player, action, amount)
	require.NoError(tb.t, err, "%s %s %d", player, action, amount)
	return snap
}

func (tb *testTable) snap(viewer string) *Snapshot {
	tb.t.Helper()
	snap, err := tb.s.Snapshot(context.Background(), viewer)
	require.NoError(tb.t, err)
	return snap
}

func (tb *testTable) waitDone() {
	tb.t.Helper()
	select {
	case <-tb.s.Done():
	case <-time.After(2 * time.Second):
		tb.t.Fatal("会话没有结束")
	}
}

// 两人对局，p0是庄家和小盲，p1是大盲。发牌从p1开始：p1 p0 p1 p0，
// 然后 烧牌+翻牌3张 烧牌+转牌 烧牌+河牌
const flushVsTwoPair = "Ad Qh 7d 9h 3c Ah 7h 2h 4c 5c 8d Js"

func TestSessionHeadsUpPositions(t *testing.T) {
	tb := newTestTable(t, nil, time.Hour, 1000, 1000)

	snap := tb.snap("p0")
	assert.Equal(t, StagePreflop, snap.Stage)
	assert.Equal(t, 1, snap.HandNumber)
	assert.Equal(t, 0, snap.DealerIndex)
	assert.Equal(t, 0, snap.SmallBlindIndex, "两人对局庄家下小盲")
	assert.Equal(t, 1, snap.BigBlindIndex)
	assert.Equal(t, "p0", snap.ToAct)
	assert.Equal(t, int64(15), snap.Pot)
	assert.Equal(t, int64(10), snap.CurrentBet)
	assert.Equal(t, int64(5), snap.Seats[0].Bet)
	assert.Equal(t, int64(995), snap.Seats[0].Chips)
	assert.Empty(t, snap.CommunityCards)

	assert.ElementsMatch(t, []holdem.MoveType{holdem.MoveFold, holdem.MoveCall, holdem.MoveRaise, holdem.MoveAllIn}, snap.LegalActions)
	assert.Equal(t, int64(5), snap.ToCall)
	assert.Equal(t, int64(20), snap.MinRaiseTo)
	require.NotNil(t, snap.TurnDeadline)
	assert.Equal(t, tb.clock.Now().Add(30*time.Second), *snap.TurnDeadline)

	assert.Len(t, tb.rec.eventsOf(EventGameStarted), 1)
	assert.Len(t, tb.rec.eventsOf(EventHandStarted), 1)
}

func TestSessionThreePlayerRotation(t *testing.T) {
	tb := newTestTable(t, nil, time.Minute, 1000, 1000, 1000)

	snap := tb.snap("")
	assert.Equal(t, 0, snap.DealerIndex)
	assert.Equal(t, 1, snap.SmallBlindIndex)
	assert.Equal(t, 2, snap.BigBlindIndex)
	assert.Equal(t, "p0", snap.ToAct)

	tb.act("p0", holdem.MoveFold, 0)
	snap = tb.act("p1", holdem.MoveFold, 0)

	assert.Equal(t, StageNotStarted, snap.Stage)
	require.NotNil(t, snap.LastResult)
	assert.Equal(t, []string{"p2"}, snap.LastResult.Winners)
	assert.Equal(t, int64(1005), snap.Seats[2].Chips)
	assert.Equal(t, int64(995), snap.Seats[1].Chips)

	tb.clock.BlockUntil(1)
	tb.clock.Advance(time.Minute)

	assert.Eventually(t, func() bool {
		return tb.snap("").HandNumber == 2
	}, time.Second, 10*time.Millisecond)

	snap = tb.snap("")
	assert.Equal(t, 1, snap.DealerIndex, "庄家轮换到下一位")
	assert.Equal(t, 2, snap.SmallBlindIndex)
	assert.Equal(t, 0, snap.BigBlindIndex)
	assert.Equal(t, "p1", snap.ToAct)
}

func TestSessionFlushBeatsTwoPair(t *testing.T) {
	tb := newTestTable(t, stackedDeck(t, flushVsTwoPair), time.Hour, 1000, 1000)

	tb.act("p0", holdem.MoveCall, 0)
	snap := tb.act("p1", holdem.MoveCheck, 0)
	assert.Equal(t, StageFlop, snap.Stage)
	assert.Equal(t, "Ah 7h 2h", holdem.FormatCards(snap.CommunityCards))
	assert.Equal(t, "p1", snap.ToAct, "翻牌后从庄家左手边开始")

	for _, stage := range []GameStage{StageTurn, StageRiver} {
		tb.act("p1", holdem.MoveCheck, 0)
		snap = tb.act("p0", holdem.MoveCheck, 0)
		assert.Equal(t, stage, snap.Stage)
	}
	tb.act("p1", holdem.MoveCheck, 0)
	snap = tb.act("p0", holdem.MoveCheck, 0)

	assert.Equal(t, StageNotStarted, snap.Stage)
	require.NotNil(t, snap.LastResult)
	assert.True(t, snap.LastResult.Showdown)
	assert.Equal(t, []string{"p0"}, snap.LastResult.Winners)
	assert.Equal(t, map[string]int64{"p0": 20}, snap.LastResult.Payouts)
	assert.Equal(t, int64(1010), snap.Seats[0].Chips)
	assert.Equal(t, int64(990), snap.Seats[1].Chips)
	assert.Equal(t, int64(2000), snap.TotalChips())

	public := tb.snap("")
	assert.Equal(t, "Qh 9h", holdem.FormatCards(public.Seats[0].Hole), "摊牌后底牌公开")
	assert.Equal(t, "Ad 7d", holdem.FormatCards(public.Seats[1].Hole))

	hands := tb.rec.handRecords()
	require.Len(t, hands, 1)
	h := hands[0]
	assert.False(t, h.Cancelled)
	assert.Equal(t, int64(20), h.Pot)
	assert.Equal(t, "Ah 7h 2h", holdem.FormatCards(h.Board[holdem.StageFlop]))
	assert.Equal(t, "5c", holdem.FormatCards(h.Board[holdem.StageTurn]))
	assert.Equal(t, "Js", holdem.FormatCards(h.Board[holdem.StageRiver]))
	require.Len(t, h.Shown, 2)
	assert.Equal(t, holdem.Flush, h.Shown[1].Rank.Category)
	assert.Equal(t, holdem.TwoPair, h.Shown[0].Rank.Category)

	var paid int64
	for _, m := range h.Moves {
		paid += m.Amount
	}
	assert.Equal(t, h.Pot, paid, "动作金额之和等于底池")

	results := tb.rec.eventsOf(EventRoundResult)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "Flush")
}

func TestSessionFoldToOne(t *testing.T) {
	tb := newTestTable(t, nil, time.Hour, 1000, 1000)

	tb.act("p0", holdem.MoveRaise, 30)
	snap := tb.act("p1", holdem.MoveFold, 0)

	require.NotNil(t, snap.LastResult)
	assert.False(t, snap.LastResult.Showdown)
	assert.Equal(t, []string{"p0"}, snap.LastResult.Winners)
	assert.Equal(t, int64(40), snap.LastResult.Pot)
	assert.Empty(t, snap.CommunityCards, "没有发公共牌")
	assert.Equal(t, int64(1010), snap.Seats[0].Chips)
	assert.Equal(t, int64(990), snap.Seats[1].Chips)

	public := tb.snap("")
	assert.Empty(t, public.Seats[0].Hole, "无人摊牌时不公开底牌")
	assert.Empty(t, public.Seats[1].Hole)

	hands := tb.rec.handRecords()
	require.Len(t, hands, 1)
	assert.Empty(t, hands[0].Board)
	assert.Empty(t, hands[0].Shown)
	assert.Empty(t, tb.rec.eventsOf(EventStageChanged))
}

func TestSessionTurnTimeout(t *testing.T) {
	t.Run("没有下注时自动过牌", func(t *testing.T) {
		tb := newTestTable(t, nil, time.Hour, 1000, 1000)
		tb.act("p0", holdem.MoveCall, 0)
		snap := tb.act("p1", holdem.MoveCheck, 0)
		require.Equal(t, StageFlop, snap.Stage)
		require.Equal(t, "p1", snap.ToAct)

		tb.clock.BlockUntil(1)
		tb.clock.Advance(30 * time.Second)

		assert.Eventually(t, func() bool {
			return tb.snap("").ToAct == "p0"
		}, time.Second, 10*time.Millisecond)

		snap = tb.snap("")
		assert.Equal(t, StageFlop, snap.Stage)
		assert.Equal(t, holdem.SeatActive, snap.Seats[1].Status)

		timeouts := tb.rec.eventsOf(EventPlayerTimeout)
		require.Len(t, timeouts, 1)
		assert.Equal(t, "p1", timeouts[0].PlayerID)
		move, ok := timeouts[0].Data.(holdem.Move)
		require.True(t, ok)
		assert.Equal(t, holdem.MoveCheck, move.Type)
	})

	t.Run("面对下注时自动弃牌", func(t *testing.T) {
		tb := newTestTable(t, nil, time.Hour, 1000, 1000)
		tb.act("p0", holdem.MoveRaise, 50)

		tb.clock.BlockUntil(1)
		tb.clock.Advance(30 * time.Second)

		assert.Eventually(t, func() bool {
			s := tb.snap("")
			return s.LastResult != nil && s.Stage == StageNotStarted
		}, time.Second, 10*time.Millisecond)

		snap := tb.snap("")
		assert.Equal(t, []string{"p0"}, snap.LastResult.Winners)
		assert.Equal(t, int64(1010), snap.Seats[0].Chips)
	})
}

func TestSessionPauseResume(t *testing.T) {
	tb := newTestTable(t, nil, time.Hour, 1000, 1000)
	ctx := context.Background()

	require.NoError(t, tb.s.Pause(ctx))
	require.NoError(t, tb.s.Pause(ctx), "重复暂停没有效果")

	_, err := tb.s.Submit(ctx, "p0", holdem.MoveCall, 0)
	assert.True(t, errors.Is(err, errors.ErrSessionPaused))

	snap := tb.snap("")
	assert.True(t, snap.Paused)
	assert.Nil(t, snap.TurnDeadline)

	tb.clock.Advance(time.Minute)
	assert.Equal(t, "p0", tb.snap("").ToAct, "暂停期间不会超时")

	require.NoError(t, tb.s.Resume(ctx))
	snap = tb.snap("")
	assert.False(t, snap.Paused)
	require.NotNil(t, snap.TurnDeadline)
	assert.Equal(t, tb.clock.Now().Add(30*time.Second), *snap.TurnDeadline)

	tb.act("p0", holdem.MoveCall, 0)
	assert.Len(t, tb.rec.eventsOf(EventGamePaused), 1)
	assert.Len(t, tb.rec.eventsOf(EventGameResumed), 1)
}

func TestSessionRejectsInvalidInput(t *testing.T) {
	tb := newTestTable(t, nil, time.Hour, 1000, 1000)
	ctx := context.Background()

	_, err := tb.s.Submit(ctx, "p1", holdem.MoveCheck, 0)
	assert.True(t, errors.Is(err, errors.ErrNotYourTurn))
	assert.True(t, errors.IsInvalidMove(err))

	_, err = tb.s.Submit(ctx, "p0", holdem.MoveRaise, 12)
	assert.True(t, errors.Is(err, errors.ErrRaiseTooSmall))

	_, err = tb.s.Submit(ctx, "ghost", holdem.MoveCall, 0)
	assert.True(t, errors.Is(err, errors.ErrNotMember))

	snap := tb.snap("")
	assert.Equal(t, int64(15), snap.Pot)
	assert.Equal(t, "p0", snap.ToAct)
}

func TestSessionSnapshotVisibility(t *testing.T) {
	tb := newTestTable(t, nil, time.Hour, 1000, 1000)
	ctx := context.Background()

	own := tb.snap("p0")
	assert.Len(t, own.Seats[0].Hole, 2)
	assert.Empty(t, own.Seats[1].Hole)

	public := tb.snap("")
	assert.Empty(t, public.Seats[0].Hole)
	assert.Empty(t, public.LegalActions)

	stranger, err := tb.s.Snapshot(ctx, "stranger")
	require.NoError(t, err)
	assert.Equal(t, public, stranger)

	require.NoError(t, tb.s.AddSpectator(ctx, "watcher"))
	err = tb.s.AddSpectator(ctx, "watcher")
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))

	watched := tb.snap("watcher")
	assert.Empty(t, watched.Seats[0].Hole)
	assert.Empty(t, watched.Seats[1].Hole)

	_, err = tb.s.Submit(ctx, "watcher", holdem.MoveCall, 0)
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))

	err = tb.s.RemoveSpectator(ctx, "p0")
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
	require.NoError(t, tb.s.RemoveSpectator(ctx, "watcher"))
	left, err := tb.s.Snapshot(ctx, "watcher")
	require.NoError(t, err)
	assert.Empty(t, left.Seats[0].Hole)
	assert.Empty(t, left.Seats[1].Hole)
}

func TestSessionAllInRunOut(t *testing.T) {
	tb := newTestTable(t, stackedDeck(t, flushVsTwoPair), time.Hour, 1000, 1000)

	tb.act("p0", holdem.MoveAllIn, 0)
	tb.act("p1", holdem.MoveCall, 0)

	tb.waitDone()

	hands := tb.rec.handRecords()
	require.Len(t, hands, 1)
	assert.Len(t, hands[0].Board, 3, "全下后发完所有公共牌")
	assert.Equal(t, []string{"p0"}, hands[0].Winners)
	assert.Equal(t, int64(2000), hands[0].Payouts["p0"])

	games := tb.rec.gameRecords()
	require.Len(t, games, 2)
	final := games[1]
	assert.Equal(t, GameStatusEnded, final.Status)
	assert.NotNil(t, final.EndedAt)
	assert.Equal(t, int64(2000), final.Players[0].Chips)
	assert.Equal(t, int64(0), final.Players[1].Chips)
	assert.Len(t, tb.rec.eventsOf(EventGameEnded), 1)

	_, err := tb.s.Snapshot(context.Background(), "p0")
	assert.True(t, errors.Is(err, errors.ErrSessionStopped))
}

func TestSessionStopRefundsHand(t *testing.T) {
	tb := newTestTable(t, nil, time.Hour, 1000, 1000)
	tb.act("p0", holdem.MoveRaise, 100)

	tb.s.Stop()

	_, err := tb.s.Submit(context.Background(), "p1", holdem.MoveCall, 0)
	assert.True(t, errors.Is(err, errors.ErrSessionStopped))

	hands := tb.rec.handRecords()
	require.Len(t, hands, 1)
	assert.True(t, hands[0].Cancelled)
	assert.Equal(t, map[string]int64{"p0": 100, "p1": 10}, hands[0].Payouts)

	games := tb.rec.gameRecords()
	final := games[len(games)-1]
	assert.Equal(t, "stopped", final.EndReason)
	for _, p := range final.Players {
		assert.Equal(t, int64(1000), p.Chips, "取消的手牌退还筹码")
	}
	assert.Len(t, tb.rec.eventsOf(EventHandCancelled), 1)

	tb.s.Stop()
}

func TestSessionAbortsOnEngineError(t *testing.T) {
	short := func() *holdem.Deck {
		d, _ := holdem.NewOrderedDeck(holdem.MustParseCards("As Ks Qs"))
		return d
	}
	tb := newTestTable(t, short, 0, 1000, 1000)
	tb.waitDone()

	hands := tb.rec.handRecords()
	require.Len(t, hands, defaultMaxAborts)
	for _, h := range hands {
		assert.True(t, h.Cancelled)
		assert.Contains(t, h.CancelReason, "牌堆")
	}
	assert.Len(t, tb.rec.eventsOf(EventHandCancelled), defaultMaxAborts)

	games := tb.rec.gameRecords()
	final := games[len(games)-1]
	assert.Equal(t, GameStatusEnded, final.Status)
	assert.Equal(t, int64(1000), final.Players[0].Chips)
	assert.Equal(t, int64(1000), final.Players[1].Chips)
}

func TestSessionPersistenceFailureIsNotFatal(t *testing.T) {
	tb := newTestTable(t, nil, time.Hour, 1000, 1000)
	tb.rec.mu.Lock()
	tb.rec.failSave = true
	tb.rec.mu.Unlock()

	tb.act("p0", holdem.MoveRaise, 30)
	snap := tb.act("p1", holdem.MoveFold, 0)

	require.NotNil(t, snap.LastResult)
	assert.Equal(t, int64(1010), snap.Seats[0].Chips)
	assert.Empty(t, tb.rec.handRecords())
}

func TestNewSessionValidation(t *testing.T) {
	players := []PlayerSeat{{PlayerID: "a", Chips: 100}, {PlayerID: "b", Chips: 100}}
	tests := []struct {
		name string
		req  StartGameRequest
		code errors.ErrorCode
	}{
		{"玩家不足", StartGameRequest{Players: players[:1], SmallBlind: 5, BigBlind: 10}, errors.ErrNotEnoughPlayers},
		{"筹码为0", StartGameRequest{Players: []PlayerSeat{{"a", 100}, {"b", 0}}, SmallBlind: 5, BigBlind: 10}, errors.ErrNotEnoughPlayers},
		{"重复玩家", StartGameRequest{Players: []PlayerSeat{{"a", 100}, {"a", 100}}, SmallBlind: 5, BigBlind: 10}, errors.ErrInvalidParam},
		{"小盲为0", StartGameRequest{Players: players, SmallBlind: 0, BigBlind: 10}, errors.ErrInvalidBlinds},
		{"大盲小于小盲", StartGameRequest{Players: players, SmallBlind: 10, BigBlind: 5}, errors.ErrInvalidBlinds},
		{"庄家越界", StartGameRequest{Players: players, SmallBlind: 5, BigBlind: 10, DealerIndex: 2}, errors.ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession("", tt.req, SessionConfig{})
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}
