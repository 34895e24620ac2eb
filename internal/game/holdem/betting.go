package holdem

import (
	"strings"
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
)

// MoveType 动作类型
type MoveType string

const (
	MoveSmallBlind MoveType = "SMALL_BLIND"
	MoveBigBlind   MoveType = "BIG_BLIND"
	MoveCheck      MoveType = "CHECK"
	MoveCall       MoveType = "CALL"
	MoveRaise      MoveType = "RAISE"
	MoveFold       MoveType = "FOLD"
	MoveAllIn      MoveType = "ALL_IN"
)

// IsAction 是否是玩家可以主动提交的动作（盲注由系统下）
func (m MoveType) IsAction() bool {
	switch m {
	case MoveCheck, MoveCall, MoveRaise, MoveFold, MoveAllIn:
		return true
	}
	return false
}

// ParseMoveType 解析动作类型，不区分大小写，接受 "all-in"/"allin"
func ParseMoveType(s string) (MoveType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "ALLIN" {
		normalized = string(MoveAllIn)
	}
	if normalized == "BET" {
		normalized = string(MoveRaise)
	}
	m := MoveType(normalized)
	if !m.IsAction() {
		return "", errors.Newf(errors.ErrInvalidAction, "未知动作: %q", s)
	}
	return m, nil
}

// Move 一次下注动作，创建后不再修改。Amount 是该动作实际投入的筹码，
// 所有动作的 Amount 之和等于底池
type Move struct {
	Type      MoveType  `json:"type"`
	Amount    int64     `json:"amount"`
	PlayerID  string    `json:"player_id"`
	Seat      int       `json:"seat"`
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// BettingRound 一个下注阶段
type BettingRound struct {
	stage         Stage
	round         *GameRound
	currentBet    int64
	contributions []int64
	acted         []bool
	moves         []Move
	toAct         int
}

// Stage 所属阶段
func (b *BettingRound) Stage() Stage { return b.stage }

// Round 所属的手牌
func (b *BettingRound) Round() *GameRound { return b.round }

// CurrentBet 本阶段任一玩家的最高投入
func (b *BettingRound) CurrentBet() int64 { return b.currentBet }

// ToAct 轮到行动的座位号，没有则为-1
func (b *BettingRound) ToAct() int { return b.toAct }

// Contribution 座位在本阶段的投入
func (b *BettingRound) Contribution(seat int) int64 {
	if seat < 0 || seat >= len(b.contributions) {
		return 0
	}
	return b.contributions[seat]
}

// Moves 本阶段的动作（副本）
func (b *BettingRound) Moves() []Move {
	return append([]Move(nil), b.moves...)
}

// ToCall 座位需要跟注的金额
func (b *BettingRound) ToCall(seat int) int64 {
	if d := b.currentBet - b.Contribution(seat); d > 0 {
		return d
	}
	return 0
}

// CanCheck 座位是否可以过牌
func (b *BettingRound) CanCheck(seat int) bool {
	return b.Contribution(seat) == b.currentBet
}

// MinRaiseTo 最小加注到的总额
func (b *BettingRound) MinRaiseTo() int64 {
	return b.currentBet + b.round.bigBlind
}

// LegalActions 座位当前可以做的动作，非行动者返回空
func (b *BettingRound) LegalActions(seat int) []MoveType {
	if seat < 0 || seat != b.toAct {
		return nil
	}
	s := b.round.seats[seat]
	actions := []MoveType{MoveFold}
	if b.CanCheck(seat) {
		actions = append(actions, MoveCheck)
	} else {
		actions = append(actions, MoveCall)
	}
	if s.Chips+b.Contribution(seat) >= b.MinRaiseTo() && s.Chips > b.ToCall(seat) {
		actions = append(actions, MoveRaise)
	}
	return append(actions, MoveAllIn)
}

// PostBlind 下盲注，金额不足时按剩余筹码全下
func (b *BettingRound) PostBlind(seat int, typ MoveType, amount int64) (Move, error) {
	if typ != MoveSmallBlind && typ != MoveBigBlind {
		return Move{}, errors.Newf(errors.ErrEngineState, "不是盲注: %s", typ)
	}
	if seat < 0 || seat >= len(b.round.seats) || !b.round.seats[seat].InHand() {
		return Move{}, errors.Newf(errors.ErrEngineState, "盲注座位无效: %d", seat)
	}
	s := b.round.seats[seat]
	pay := amount
	if pay > s.Chips {
		pay = s.Chips
	}
	b.pay(seat, pay)
	if b.contributions[seat] > b.currentBet {
		b.currentBet = b.contributions[seat]
	}
	if typ == MoveBigBlind && amount > b.currentBet {
		b.currentBet = amount
	}
	return b.record(seat, typ, pay), nil
}

// Begin 从from座位（含）开始寻找第一个需要行动的玩家
func (b *BettingRound) Begin(from int) {
	if b.IsComplete() {
		b.toAct = -1
		return
	}
	b.toAct = NextSeat(b.round.seats, from, b.needsAction)
}

// Apply 应用玩家动作。Raise 的 amount 表示本阶段加注到的总投入；
// 被拒绝的动作不修改任何状态
func (b *BettingRound) Apply(playerID string, action MoveType, amount int64) (Move, error) {
	idx := b.round.SeatOf(playerID)
	if idx < 0 || !b.round.seats[idx].InHand() {
		return Move{}, errors.Newf(errors.ErrPlayerNotSeated, "玩家 %s", playerID)
	}
	if b.toAct < 0 || b.round.settled {
		return Move{}, errors.New(errors.ErrBettingClosed)
	}
	if idx != b.toAct {
		return Move{}, errors.Newf(errors.ErrNotYourTurn, "当前应由 %s 行动", b.round.seats[b.toAct].PlayerID)
	}

	s := b.round.seats[idx]
	contrib := b.contributions[idx]
	moveType := action
	var pay int64
	reopen := false

	switch action {
	case MoveCheck:
		if contrib != b.currentBet {
			return Move{}, errors.Newf(errors.ErrIllegalCheck, "需要跟注 %d", b.currentBet-contrib)
		}
	case MoveCall:
		toCall := b.currentBet - contrib
		if toCall <= 0 {
			return Move{}, errors.New(errors.ErrNothingToCall)
		}
		pay = toCall
		if pay > s.Chips {
			pay = s.Chips
		}
	case MoveRaise:
		minTo := b.MinRaiseTo()
		if amount < minTo {
			return Move{}, errors.Newf(errors.ErrRaiseTooSmall, "最小加注到 %d，收到 %d", minTo, amount)
		}
		pay = amount - contrib
		if pay > s.Chips {
			return Move{}, errors.Newf(errors.ErrInsufficientChips, "需要 %d，剩余 %d", pay, s.Chips)
		}
		if pay == s.Chips {
			moveType = MoveAllIn
		}
		reopen = true
	case MoveFold:
		s.Status = SeatFolded
	case MoveAllIn:
		if s.Chips == 0 {
			return Move{}, errors.New(errors.ErrInsufficientChips, "没有可下注的筹码")
		}
		pay = s.Chips
		reopen = contrib+pay > b.currentBet
	default:
		return Move{}, errors.Newf(errors.ErrInvalidAction, "%s", action)
	}

	b.pay(idx, pay)
	if b.contributions[idx] > b.currentBet {
		b.currentBet = b.contributions[idx]
	}
	b.acted[idx] = true
	if reopen {
		for j := range b.acted {
			if j != idx {
				b.acted[j] = false
			}
		}
	}

	move := b.record(idx, moveType, pay)
	b.advance(idx)
	return move, nil
}

// IsComplete 本阶段下注是否结束
func (b *BettingRound) IsComplete() bool {
	inHand := 0
	var canAct []int
	for i, s := range b.round.seats {
		if !s.InHand() {
			continue
		}
		inHand++
		if s.CanAct() {
			canAct = append(canAct, i)
		}
	}
	if inHand <= 1 || len(canAct) == 0 {
		return true
	}
	// 只剩一个人能下注且已经跟平，没有对手可以继续下注
	if len(canAct) == 1 && b.contributions[canAct[0]] >= b.currentBet {
		return true
	}
	for _, i := range canAct {
		if !b.acted[i] || b.contributions[i] < b.currentBet {
			return false
		}
	}
	return true
}

func (b *BettingRound) needsAction(s *Seat) bool {
	return s.CanAct() && (!b.acted[s.Index] || b.contributions[s.Index] < b.currentBet)
}

func (b *BettingRound) advance(from int) {
	if b.IsComplete() {
		b.toAct = -1
		return
	}
	b.toAct = NextSeat(b.round.seats, from+1, b.needsAction)
}

func (b *BettingRound) pay(seat int, amount int64) {
	if amount <= 0 {
		return
	}
	b.contributions[seat] += amount
	b.round.commit(seat, amount)
}

func (b *BettingRound) record(seat int, typ MoveType, amount int64) Move {
	m := Move{
		Type:      typ,
		Amount:    amount,
		PlayerID:  b.round.seats[seat].PlayerID,
		Seat:      seat,
		Stage:     b.stage,
		Timestamp: b.round.now(),
	}
	b.moves = append(b.moves, m)
	return m
}
