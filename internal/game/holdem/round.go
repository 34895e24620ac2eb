package holdem

import (
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
)

// Stage 下注阶段
type Stage string

const (
	StagePreflop Stage = "PREFLOP"
	StageFlop    Stage = "FLOP"
	StageTurn    Stage = "TURN"
	StageRiver   Stage = "RIVER"
)

// MaxCommunityCards 公共牌上限
const MaxCommunityCards = 5

// GameRound 一手牌：底池、公共牌以及按顺序进行的下注轮
type GameRound struct {
	number    int
	bigBlind  int64
	seats     []*Seat
	pot       int64
	committed []int64
	community []Card
	rounds    []*BettingRound
	current   *BettingRound
	settled   bool
	now       func() time.Time
}

// NewGameRound 创建一手牌。seats 是整张牌桌的座位，下标即座位号
func NewGameRound(number int, seats []*Seat, bigBlind int64, now func() time.Time) *GameRound {
	if now == nil {
		now = time.Now
	}
	return &GameRound{
		number:    number,
		bigBlind:  bigBlind,
		seats:     seats,
		committed: make([]int64, len(seats)),
		now:       now,
	}
}

// Number 手牌编号
func (g *GameRound) Number() int { return g.number }

// Pot 本手牌投入的筹码总数
func (g *GameRound) Pot() int64 { return g.pot }

// BigBlind 大盲金额，同时也是最小加注增量
func (g *GameRound) BigBlind() int64 { return g.bigBlind }

// Seats 牌桌座位
func (g *GameRound) Seats() []*Seat { return g.seats }

// Settled 底池是否已经分配
func (g *GameRound) Settled() bool { return g.settled }

// CommunityCards 当前公共牌（副本）
func (g *GameRound) CommunityCards() []Card {
	return append([]Card(nil), g.community...)
}

// AddCommunityCards 追加公共牌
func (g *GameRound) AddCommunityCards(cards ...Card) error {
	if len(g.community)+len(cards) > MaxCommunityCards {
		return errors.Newf(errors.ErrEngineState, "公共牌超过%d张", MaxCommunityCards)
	}
	g.community = append(g.community, cards...)
	return nil
}

// StartBettingRound 开始新的下注轮，当前轮被关闭
func (g *GameRound) StartBettingRound(stage Stage) *BettingRound {
	br := &BettingRound{
		stage:         stage,
		round:         g,
		contributions: make([]int64, len(g.seats)),
		acted:         make([]bool, len(g.seats)),
		toAct:         -1,
	}
	g.rounds = append(g.rounds, br)
	g.current = br
	return br
}

// Current 当前下注轮
func (g *GameRound) Current() *BettingRound { return g.current }

// BettingRounds 全部下注轮
func (g *GameRound) BettingRounds() []*BettingRound {
	return append([]*BettingRound(nil), g.rounds...)
}

// Committed 座位在本手牌中投入的筹码
func (g *GameRound) Committed(seat int) int64 {
	if seat < 0 || seat >= len(g.committed) {
		return 0
	}
	return g.committed[seat]
}

// InHand 仍在争夺底池的座位
func (g *GameRound) InHand() []*Seat {
	var out []*Seat
	for _, s := range g.seats {
		if s.InHand() {
			out = append(out, s)
		}
	}
	return out
}

// Moves 本手牌的全部动作，按发生顺序
func (g *GameRound) Moves() []Move {
	var out []Move
	for _, br := range g.rounds {
		out = append(out, br.moves...)
	}
	return out
}

// SeatOf 根据玩家ID查找座位号
func (g *GameRound) SeatOf(playerID string) int {
	for i, s := range g.seats {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (g *GameRound) commit(seat int, amount int64) {
	if amount <= 0 {
		return
	}
	g.seats[seat].Chips -= amount
	g.committed[seat] += amount
	g.pot += amount
}

// Settle 按payouts分配底池，分配总额必须等于底池
func (g *GameRound) Settle(payouts map[int]int64) error {
	if g.settled {
		return errors.New(errors.ErrEngineState, "底池已分配")
	}
	var total int64
	for seat, amount := range payouts {
		if seat < 0 || seat >= len(g.seats) || amount < 0 {
			return errors.Newf(errors.ErrEngineState, "非法的分配: seat=%d amount=%d", seat, amount)
		}
		total += amount
	}
	if total != g.pot {
		return errors.Newf(errors.ErrDataIntegrity, "分配总额 %d 不等于底池 %d", total, g.pot)
	}
	for seat, amount := range payouts {
		g.seats[seat].Chips += amount
	}
	g.settled = true
	g.current = nil
	return nil
}

// Refund 取消本手牌，退还每个座位投入的筹码
func (g *GameRound) Refund() map[int]int64 {
	refunds := make(map[int]int64)
	if g.settled {
		return refunds
	}
	for seat, amount := range g.committed {
		if amount > 0 {
			g.seats[seat].Chips += amount
			refunds[seat] = amount
			g.committed[seat] = 0
		}
	}
	g.pot = 0
	g.settled = true
	g.current = nil
	return refunds
}
