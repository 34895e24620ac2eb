package game

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"github.com/wfunc/holdem-server/internal/logger"
	"go.uber.org/zap"
)

// MaxPlayers 一副牌最多支持的玩家数：5张公共牌加每人2张底牌
const MaxPlayers = 22

const (
	defaultTurnTimeout = 30 * time.Second
	defaultMaxAborts   = 3
	persistTimeout     = 5 * time.Second
)

type timerKind int

const (
	timerNone timerKind = iota
	timerTurn
	timerNextHand
)

// SessionConfig 单个牌局的运行参数
type SessionConfig struct {
	TurnTimeout  time.Duration
	HandInterval time.Duration // 两手牌之间的间隔，<=0 表示立即开始下一手
	MaxAborts    int           // 连续取消多少手牌后结束游戏
	Clock        clockwork.Clock
	Logger       *zap.Logger
	Notifier     Notifier
	Repository   Repository
	DeckFactory  func() *holdem.Deck
}

func (c *SessionConfig) setDefaults() {
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = defaultTurnTimeout
	}
	if c.MaxAborts <= 0 {
		c.MaxAborts = defaultMaxAborts
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Notifier == nil {
		c.Notifier = NopNotifier
	}
	if c.Repository == nil {
		c.Repository = NopRepository
	}
	if c.DeckFactory == nil {
		c.DeckFactory = holdem.NewDeck
	}
}

// Session 一张牌桌上正在进行的游戏。
//
// 所有可变状态只由会话自己的goroutine访问：外部请求被包装成闭包投递到
// mailbox，由该goroutine逐个执行；回合超时和下一手牌的延迟共用一个计时器。
type Session struct {
	id         string
	tableID    string
	smallBlind int64
	bigBlind   int64
	players    []PlayerSeat
	startedAt  time.Time
	cfg        SessionConfig
	clock      clockwork.Clock
	logger     *zap.Logger
	onFinished func(*Session)

	ctx       context.Context
	cancel    context.CancelFunc
	mailbox   chan func()
	done      chan struct{}
	startOnce sync.Once

	// 以下字段只在会话goroutine中读写
	stages       *StageMachine
	seats        []*holdem.Seat
	members      map[string]*Membership
	dealer       int
	sbIndex      int
	bbIndex      int
	handNumber   int
	deck         *holdem.Deck
	round        *holdem.GameRound
	betting      *holdem.BettingRound
	record       *HandRecord
	shown        []holdem.ShowdownResult
	lastResult   *HandResult
	paused       bool
	timer        clockwork.Timer
	timerKind    timerKind
	deadline     time.Time
	startPending bool
	aborts       int
	ended        bool
	endReason    string
}

// NewSession 创建牌局，调用 Start 后开始发牌
func NewSession(id string, req StartGameRequest, cfg SessionConfig) (*Session, error) {
	if err := validateStart(&req); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if id == "" {
		id = uuid.NewString()
	}
	if req.TableID == "" {
		req.TableID = id
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		tableID:    req.TableID,
		smallBlind: req.SmallBlind,
		bigBlind:   req.BigBlind,
		players:    append([]PlayerSeat(nil), req.Players...),
		startedAt:  cfg.Clock.Now(),
		cfg:        cfg,
		clock:      cfg.Clock,
		logger: cfg.Logger.With(
			zap.String("session_id", id),
			zap.String("table_id", req.TableID)),
		ctx:     ctx,
		cancel:  cancel,
		mailbox: make(chan func()),
		done:    make(chan struct{}),
		members: make(map[string]*Membership, len(req.Players)),
		dealer:  req.DealerIndex,
	}
	s.stages = NewStageMachine(s.logger)

	for i, p := range req.Players {
		s.seats = append(s.seats, &holdem.Seat{
			Index:    i,
			PlayerID: p.PlayerID,
			Chips:    p.Chips,
			Status:   holdem.SeatActive,
		})
		s.members[p.PlayerID] = NewPlayerMembership(p.PlayerID, s.startedAt)
	}
	return s, nil
}

// validateStart 校验开局参数
func validateStart(req *StartGameRequest) error {
	if len(req.Players) < 2 {
		return errors.Newf(errors.ErrNotEnoughPlayers, "至少需要2名玩家，当前 %d", len(req.Players))
	}
	if len(req.Players) > MaxPlayers {
		return errors.Newf(errors.ErrTableFull, "最多 %d 名玩家", MaxPlayers)
	}
	seen := make(map[string]bool, len(req.Players))
	for _, p := range req.Players {
		if strings.TrimSpace(p.PlayerID) == "" {
			return errors.New(errors.ErrInvalidParam, "玩家ID不能为空")
		}
		if seen[p.PlayerID] {
			return errors.Newf(errors.ErrInvalidParam, "重复的玩家: %s", p.PlayerID)
		}
		seen[p.PlayerID] = true
		if p.Chips <= 0 {
			return errors.Newf(errors.ErrNotEnoughPlayers, "玩家 %s 的筹码必须大于0", p.PlayerID)
		}
	}
	if req.SmallBlind <= 0 || req.BigBlind < req.SmallBlind {
		return errors.Newf(errors.ErrInvalidBlinds, "小盲 %d 大盲 %d", req.SmallBlind, req.BigBlind)
	}
	if req.DealerIndex < 0 || req.DealerIndex >= len(req.Players) {
		return errors.Newf(errors.ErrInvalidParam, "庄家位置 %d 超出范围", req.DealerIndex)
	}
	return nil
}

// ID 会话ID
func (s *Session) ID() string { return s.id }

// TableID 牌桌ID
func (s *Session) TableID() string { return s.tableID }

// Done 会话goroutine退出后关闭
func (s *Session) Done() <-chan struct{} { return s.done }

// Info 会话摘要，只包含创建后不变的字段
func (s *Session) Info() SessionInfo {
	ids := make([]string, len(s.players))
	for i, p := range s.players {
		ids[i] = p.PlayerID
	}
	return SessionInfo{
		SessionID:  s.id,
		TableID:    s.tableID,
		Players:    ids,
		SmallBlind: s.smallBlind,
		BigBlind:   s.bigBlind,
		StartedAt:  s.startedAt,
	}
}

// Start 启动会话goroutine并开始第一手牌
func (s *Session) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop 停止会话并等待goroutine退出。进行中的一手牌会被取消并退还筹码
func (s *Session) Stop() {
	s.cancel()
	s.startOnce.Do(func() {
		close(s.done)
	})
	<-s.done
}

// Submit 提交玩家动作，成功后返回该玩家视角的快照
func (s *Session) Submit(ctx context.Context, playerID string, action holdem.MoveType, amount int64) (*Snapshot, error) {
	var snap *Snapshot
	var err error
	if e := s.do(ctx, func() {
		snap, err = s.applyAction(playerID, action, amount)
	}); e != nil {
		return nil, e
	}
	return snap, err
}

// Snapshot 获取viewerID视角的快照，viewerID为空或不是成员时返回公开视角
func (s *Session) Snapshot(ctx context.Context, viewerID string) (*Snapshot, error) {
	var snap *Snapshot
	if err := s.do(ctx, func() {
		if !s.members[viewerID].Can(CanView) {
			viewerID = ""
		}
		snap = s.snapshot(viewerID)
	}); err != nil {
		return nil, err
	}
	return snap, nil
}

// Pause 暂停：停止计时，拒绝玩家动作
func (s *Session) Pause(ctx context.Context) error {
	return s.do(ctx, func() {
		if s.paused {
			return
		}
		s.paused = true
		s.startPending = false
		s.stopTimer()
		s.logger.Info("牌局暂停")
		s.notify(EventGamePaused, "", "", nil)
	})
}

// Resume 恢复：重新开始完整的回合计时
func (s *Session) Resume(ctx context.Context) error {
	return s.do(ctx, func() {
		if !s.paused {
			return
		}
		s.paused = false
		if s.betting != nil && s.betting.ToAct() >= 0 {
			s.armTurnTimer()
		} else if s.stages.Stage() == StageNotStarted {
			s.scheduleStart()
		}
		s.logger.Info("牌局恢复")
		s.notify(EventGameResumed, "", "", nil)
	})
}

// AddSpectator 添加观战者
func (s *Session) AddSpectator(ctx context.Context, playerID string) error {
	var err error
	if e := s.do(ctx, func() {
		if _, ok := s.members[playerID]; ok {
			err = errors.Newf(errors.ErrAlreadyExists, "玩家 %s 已在牌桌", playerID)
			return
		}
		s.members[playerID] = NewSpectatorMembership(playerID, s.clock.Now())
	}); e != nil {
		return e
	}
	return err
}

// RemoveSpectator 移除观战者，入座玩家不能被移除
func (s *Session) RemoveSpectator(ctx context.Context, playerID string) error {
	var err error
	if e := s.do(ctx, func() {
		m, ok := s.members[playerID]
		switch {
		case !ok:
			err = errors.Newf(errors.ErrNotMember, "玩家 %s", playerID)
		case m.Can(CanAct):
			err = errors.Newf(errors.ErrPermissionDenied, "玩家 %s 已入座", playerID)
		default:
			delete(s.members, playerID)
		}
	}); e != nil {
		return e
	}
	return err
}

// do 把fn交给会话goroutine执行并等待完成
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.mailbox <- task:
	case <-s.done:
		return errors.Newf(errors.ErrSessionStopped, "会话 %s", s.id)
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrTimeout)
	}
	<-finished
	return nil
}

func (s *Session) run() {
	defer func() {
		s.shutdown()
		close(s.done)
		if s.onFinished != nil {
			s.onFinished(s)
		}
	}()

	s.exec(s.begin)
	for !s.ended {
		if s.startPending {
			s.startPending = false
			s.exec(s.startHand)
			continue
		}
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.mailbox:
			s.exec(fn)
		case <-s.timerC():
			s.exec(s.onTimer)
		}
	}
}

// exec 执行一个任务，引擎panic时取消当前这手牌
func (s *Session) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, debug.Stack(),
				zap.String("session_id", s.id),
				zap.Int("hand", s.handNumber))
			s.abortHand(errors.Newf(errors.ErrEngineState, "panic: %v", r))
		}
	}()
	fn()
}

func (s *Session) begin() {
	s.logger.Info("牌局开始",
		zap.Int("players", len(s.seats)),
		zap.Int64("small_blind", s.smallBlind),
		zap.Int64("big_blind", s.bigBlind))
	s.saveGame(GameStatusPlaying)
	s.notify(EventGameStarted, "", "", s.playerStacks())
	s.startHand()
}

func hasChips(seat *holdem.Seat) bool { return seat.Chips > 0 }

func (s *Session) countWithChips() int {
	n := 0
	for _, seat := range s.seats {
		if seat.Chips > 0 {
			n++
		}
	}
	return n
}

func (s *Session) startHand() {
	if s.countWithChips() < 2 {
		s.finishGame("只剩一名玩家有筹码")
		return
	}

	s.handNumber++
	s.shown = nil
	s.lastResult = nil
	s.betting = nil
	for _, seat := range s.seats {
		seat.Hole = nil
		if seat.Chips > 0 {
			seat.Status = holdem.SeatActive
		} else {
			seat.Status = holdem.SeatSittingOut
		}
	}

	// 两人对局时庄家下小盲
	s.dealer = holdem.NextSeat(s.seats, s.dealer, hasChips)
	if s.countWithChips() == 2 {
		s.sbIndex = s.dealer
	} else {
		s.sbIndex = holdem.NextSeat(s.seats, s.dealer+1, hasChips)
	}
	s.bbIndex = holdem.NextSeat(s.seats, s.sbIndex+1, hasChips)

	s.round = holdem.NewGameRound(s.handNumber, s.seats, s.bigBlind, s.clock.Now)
	s.record = &HandRecord{
		HandID:          uuid.NewString(),
		SessionID:       s.id,
		TableID:         s.tableID,
		HandNumber:      s.handNumber,
		DealerIndex:     s.dealer,
		SmallBlindIndex: s.sbIndex,
		BigBlindIndex:   s.bbIndex,
		Players:         s.playerStacks(),
		Board:           make(map[holdem.Stage][]holdem.Card),
		Payouts:         make(map[string]int64),
		StartedAt:       s.clock.Now(),
	}
	if err := s.stages.Trigger(eventStartHand); err != nil {
		s.abortHand(err)
		return
	}

	s.deck = s.cfg.DeckFactory()
	if s.deck == nil {
		s.abortHand(errors.New(errors.ErrEngineState, "没有可用的牌"))
		return
	}
	if err := s.dealHoleCards(); err != nil {
		s.abortHand(err)
		return
	}

	s.betting = s.round.StartBettingRound(holdem.StagePreflop)
	if _, err := s.betting.PostBlind(s.sbIndex, holdem.MoveSmallBlind, s.smallBlind); err != nil {
		s.abortHand(err)
		return
	}
	if _, err := s.betting.PostBlind(s.bbIndex, holdem.MoveBigBlind, s.bigBlind); err != nil {
		s.abortHand(err)
		return
	}
	s.betting.Begin(s.bbIndex + 1)

	s.logger.Info("新的一手牌",
		zap.Int("hand", s.handNumber),
		zap.Int("dealer", s.dealer),
		zap.Int("small_blind", s.sbIndex),
		zap.Int("big_blind", s.bbIndex))
	s.notify(EventHandStarted, "", "", nil)
	s.progress()
}

// dealHoleCards 从庄家左手边开始，每人一张发两轮
func (s *Session) dealHoleCards() error {
	order := holdem.SeatOrder(len(s.seats), s.dealer+1)
	for pass := 0; pass < 2; pass++ {
		for _, idx := range order {
			seat := s.seats[idx]
			if !seat.InHand() {
				continue
			}
			c, err := s.deck.Draw()
			if err != nil {
				return err
			}
			seat.Hole = append(seat.Hole, c)
		}
	}
	return nil
}

// progress 一个动作之后推进牌局，直到需要等待玩家或这手牌结束
func (s *Session) progress() {
	for {
		switch inHand := len(s.round.InHand()); {
		case inHand == 0:
			s.abortHand(errors.New(errors.ErrNoActivePlayers))
			return
		case inHand == 1:
			s.awardUncontested()
			return
		}
		if !s.betting.IsComplete() {
			s.armTurnTimer()
			return
		}
		if s.betting.Stage() == holdem.StageRiver {
			s.showdown()
			return
		}
		if err := s.dealNextStage(); err != nil {
			s.abortHand(err)
			return
		}
	}
}

func nextStage(stage holdem.Stage) (holdem.Stage, int) {
	switch stage {
	case holdem.StagePreflop:
		return holdem.StageFlop, 3
	case holdem.StageFlop:
		return holdem.StageTurn, 1
	default:
		return holdem.StageRiver, 1
	}
}

// dealNextStage 烧一张牌后发公共牌，开始新的下注轮
func (s *Session) dealNextStage() error {
	next, n := nextStage(s.betting.Stage())
	if err := s.deck.Burn(); err != nil {
		return err
	}
	cards, err := s.deck.DrawN(n)
	if err != nil {
		return err
	}
	if err := s.round.AddCommunityCards(cards...); err != nil {
		return err
	}
	if err := s.stages.Trigger(eventNextStage); err != nil {
		return err
	}
	s.record.Board[next] = cards

	s.betting = s.round.StartBettingRound(next)
	s.betting.Begin(s.dealer + 1)

	s.logger.Debug("发公共牌",
		zap.Int("hand", s.handNumber),
		zap.String("stage", string(next)),
		zap.String("cards", holdem.FormatCards(cards)))
	s.notify(EventStageChanged, "", string(next), cards)
	return nil
}

// awardUncontested 只剩一名玩家时直接赢得底池，不再发牌
func (s *Session) awardUncontested() {
	winner := s.round.InHand()[0]
	s.settle(map[int]int64{winner.Index: s.round.Pot()}, []int{winner.Index}, false)
}

func (s *Session) showdown() {
	if err := s.stages.Trigger(eventShowdown); err != nil {
		s.abortHand(err)
		return
	}
	order := holdem.SeatOrder(len(s.seats), s.dealer+1)
	results, winners, err := holdem.Showdown(s.seats, order, s.round.CommunityCards())
	if err != nil {
		s.abortHand(err)
		return
	}
	s.shown = results
	s.settle(holdem.SplitPot(s.round.Pot(), winners), winners, true)
}

// settle 派奖、保存记录、轮换庄家并安排下一手牌
func (s *Session) settle(payouts map[int]int64, winners []int, showdown bool) {
	s.stopTimer()
	pot := s.round.Pot()
	if err := s.round.Settle(payouts); err != nil {
		s.abortHand(err)
		return
	}
	if err := s.stages.Trigger(eventAward); err != nil {
		s.logger.Error("阶段转换失败", zap.Error(err))
	}
	s.aborts = 0

	result := &HandResult{
		HandNumber: s.handNumber,
		Pot:        pot,
		Payouts:    make(map[string]int64, len(payouts)),
		Board:      s.round.CommunityCards(),
		Shown:      s.shown,
		Showdown:   showdown,
	}
	for _, idx := range winners {
		result.Winners = append(result.Winners, s.seats[idx].PlayerID)
	}
	for idx, amount := range payouts {
		result.Payouts[s.seats[idx].PlayerID] = amount
	}
	s.lastResult = result

	s.record.Moves = s.round.Moves()
	s.record.Shown = s.shown
	s.record.Winners = result.Winners
	s.record.Payouts = result.Payouts
	s.record.Pot = pot
	s.record.FinishedAt = s.clock.Now()
	s.saveHand(s.record)

	s.logger.Info("本手牌结束",
		zap.Int("hand", s.handNumber),
		zap.Int64("pot", pot),
		zap.Strings("winners", result.Winners),
		zap.Bool("showdown", showdown))
	s.betting = nil
	s.notify(EventRoundResult, "", s.describeResult(result), result)

	s.dealer = holdem.NextSeat(s.seats, s.dealer+1, hasChips)
	s.scheduleNextHand()
}

func (s *Session) describeResult(r *HandResult) string {
	if len(s.shown) == 0 {
		return fmt.Sprintf("%s 赢得 %d", strings.Join(r.Winners, ","), r.Pot)
	}
	var best string
	for _, res := range s.shown {
		if res.PlayerID == r.Winners[0] {
			best = res.Rank.Description
		}
	}
	return fmt.Sprintf("%s 以 %s 赢得 %d", strings.Join(r.Winners, ","), best, r.Pot)
}

// scheduleNextHand 至少两人有筹码时安排下一手牌，否则结束游戏
func (s *Session) scheduleNextHand() {
	if s.countWithChips() < 2 {
		s.finishGame("只剩一名玩家有筹码")
		return
	}
	if s.stages.Stage() == StageFinished {
		if err := s.stages.Trigger(eventReset); err != nil {
			s.logger.Error("阶段转换失败", zap.Error(err))
		}
	}
	if s.paused {
		return
	}
	s.scheduleStart()
}

func (s *Session) scheduleStart() {
	if s.cfg.HandInterval <= 0 {
		s.startPending = true
		return
	}
	s.armTimer(timerNextHand, s.cfg.HandInterval)
}

// abortHand 引擎错误：取消本手牌并退还筹码，连续取消过多时结束游戏
func (s *Session) abortHand(cause error) {
	s.logger.Error("取消本手牌",
		zap.Int("hand", s.handNumber),
		zap.Error(cause))
	s.cancelHand(cause)
	s.aborts++
	if s.aborts >= s.cfg.MaxAborts {
		s.finishGame(fmt.Sprintf("连续 %d 手牌被取消", s.aborts))
		return
	}
	s.scheduleNextHand()
}

func (s *Session) cancelHand(cause error) {
	s.stopTimer()
	s.betting = nil
	s.shown = nil
	if s.round != nil && !s.round.Settled() {
		refunds := s.round.Refund()
		byPlayer := make(map[string]int64, len(refunds))
		var total int64
		for idx, amount := range refunds {
			byPlayer[s.seats[idx].PlayerID] = amount
			total += amount
		}
		if s.record != nil {
			s.record.Moves = s.round.Moves()
			s.record.Payouts = byPlayer
			s.record.Pot = total
			s.record.Cancelled = true
			s.record.CancelReason = cause.Error()
			s.record.FinishedAt = s.clock.Now()
			s.saveHand(s.record)
		}
		for _, seat := range s.seats {
			seat.Hole = nil
		}
		if err := s.stages.Trigger(eventCancel); err != nil {
			s.logger.Error("阶段转换失败", zap.Error(err))
		}
		s.notify(EventHandCancelled, "", cause.Error(), byPlayer)
		return
	}
	if s.stages.Stage() != StageNotStarted && s.stages.CanTrigger(eventCancel) {
		_ = s.stages.Trigger(eventCancel)
	}
}

// finishGame 结束整局游戏，会话goroutine随后退出
func (s *Session) finishGame(reason string) {
	if s.ended {
		return
	}
	s.stopTimer()
	s.startPending = false
	if err := s.stages.Trigger(eventEnd); err != nil {
		s.logger.Error("阶段转换失败", zap.Error(err))
	}
	s.ended = true
	s.endReason = reason
	s.logger.Info("牌局结束",
		zap.String("reason", reason),
		zap.Int("hands", s.handNumber))
	s.saveGame(GameStatusEnded)
	s.notify(EventGameEnded, "", reason, s.playerStacks())
}

// shutdown 会话goroutine退出前调用。被外部停止时退还进行中的这手牌
func (s *Session) shutdown() {
	s.stopTimer()
	if s.ended {
		return
	}
	s.cancelHand(errors.New(errors.ErrSessionStopped))
	s.finishGame("stopped")
}

func (s *Session) armTurnTimer() {
	if s.paused || s.betting == nil || s.betting.ToAct() < 0 {
		return
	}
	s.armTimer(timerTurn, s.cfg.TurnTimeout)
}

func (s *Session) armTimer(kind timerKind, d time.Duration) {
	s.stopTimer()
	s.timer = s.clock.NewTimer(d)
	s.timerKind = kind
	if kind == timerTurn {
		s.deadline = s.clock.Now().Add(d)
	}
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerKind = timerNone
	s.deadline = time.Time{}
}

// timerC 没有计时器时返回nil，select永远不会选中
func (s *Session) timerC() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.Chan()
}

func (s *Session) onTimer() {
	kind := s.timerKind
	s.timer = nil
	s.timerKind = timerNone
	s.deadline = time.Time{}

	switch kind {
	case timerTurn:
		s.handleTimeout()
	case timerNextHand:
		s.startHand()
	}
}

// handleTimeout 回合超时：能过牌就过牌，否则弃牌
func (s *Session) handleTimeout() {
	if s.betting == nil || s.betting.ToAct() < 0 {
		return
	}
	idx := s.betting.ToAct()
	seat := s.seats[idx]
	action := holdem.MoveFold
	if s.betting.CanCheck(idx) {
		action = holdem.MoveCheck
	}
	move, err := s.betting.Apply(seat.PlayerID, action, 0)
	if err != nil {
		s.abortHand(err)
		return
	}
	s.logger.Info("玩家超时",
		zap.String("player_id", seat.PlayerID),
		zap.String("forced", string(action)))
	s.notify(EventPlayerTimeout, seat.PlayerID, string(action), move)
	s.progress()
}

func (s *Session) applyAction(playerID string, action holdem.MoveType, amount int64) (*Snapshot, error) {
	m := s.members[playerID]
	if m == nil {
		return nil, errors.Newf(errors.ErrNotMember, "玩家 %s", playerID)
	}
	if !m.Can(CanAct) {
		return nil, errors.Newf(errors.ErrPermissionDenied, "观战者 %s 不能下注", playerID)
	}
	if s.paused {
		return nil, errors.New(errors.ErrSessionPaused)
	}
	if s.betting == nil || s.betting.ToAct() < 0 {
		return nil, errors.Newf(errors.ErrBettingClosed, "当前阶段 %s", s.stages.Stage())
	}

	move, err := s.betting.Apply(playerID, action, amount)
	if err != nil {
		s.logger.Debug("拒绝玩家动作",
			zap.String("player_id", playerID),
			zap.String("action", string(action)),
			zap.Int64("amount", amount),
			zap.Error(err))
		return nil, err
	}
	s.stopTimer()
	s.logger.Debug("玩家动作",
		zap.String("player_id", playerID),
		zap.String("action", string(move.Type)),
		zap.Int64("amount", move.Amount))
	s.notify(EventPlayerAction, playerID, "", move)
	s.progress()
	return s.snapshot(playerID), nil
}

func (s *Session) playerStacks() []PlayerStack {
	out := make([]PlayerStack, len(s.seats))
	for i, seat := range s.seats {
		out[i] = PlayerStack{PlayerID: seat.PlayerID, Seat: i, Chips: seat.Chips}
	}
	return out
}

// detached 不随会话取消的短超时context，用于通知和持久化
func (s *Session) detached() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(s.ctx), persistTimeout)
}

func (s *Session) notify(typ EventType, playerID, message string, data interface{}) {
	event := Event{
		Type:       typ,
		SessionID:  s.id,
		TableID:    s.tableID,
		HandNumber: s.handNumber,
		PlayerID:   playerID,
		Message:    message,
		Data:       data,
		Snapshot:   s.snapshot(""),
		Timestamp:  s.clock.Now(),
	}
	ctx, cancel := s.detached()
	defer cancel()
	if err := s.cfg.Notifier.Broadcast(ctx, s.id, event); err != nil {
		s.logger.Warn("事件广播失败",
			zap.String("event", string(typ)),
			zap.Error(err))
	}
}

func (s *Session) saveHand(record *HandRecord) {
	ctx, cancel := s.detached()
	defer cancel()
	if err := s.cfg.Repository.SaveHand(ctx, record); err != nil {
		s.logger.Error("保存手牌记录失败",
			zap.Int("hand", record.HandNumber),
			zap.Error(err))
	}
}

func (s *Session) saveGame(status GameStatus) {
	record := &GameRecord{
		SessionID:   s.id,
		TableID:     s.tableID,
		SmallBlind:  s.smallBlind,
		BigBlind:    s.bigBlind,
		Status:      status,
		Players:     s.playerStacks(),
		HandsPlayed: s.handNumber,
		EndReason:   s.endReason,
		StartedAt:   s.startedAt,
	}
	if status == GameStatusEnded {
		t := s.clock.Now()
		record.EndedAt = &t
	}
	ctx, cancel := s.detached()
	defer cancel()
	if err := s.cfg.Repository.SaveGame(ctx, record); err != nil {
		s.logger.Error("保存牌局记录失败", zap.Error(err))
	}
}
