// Package bot 提供模拟玩家，用于压力测试和命令行模拟
package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
)

// Situation 轮到行动时的决策输入
type Situation struct {
	Chips        int64
	Contribution int64
	ToCall       int64
	CurrentBet   int64
	MinRaiseTo   int64
	Legal        []holdem.MoveType
}

// FromSnapshot 从行动者视角的快照提取决策输入，不是该玩家行动时返回false
func FromSnapshot(snap *game.Snapshot, playerID string) (Situation, bool) {
	if snap == nil || snap.ToAct != playerID || len(snap.LegalActions) == 0 {
		return Situation{}, false
	}
	seat := snap.Seat(playerID)
	if seat == nil {
		return Situation{}, false
	}
	return Situation{
		Chips:        seat.Chips,
		Contribution: seat.Bet,
		ToCall:       snap.ToCall,
		CurrentBet:   snap.CurrentBet,
		MinRaiseTo:   snap.MinRaiseTo,
		Legal:        snap.LegalActions,
	}, true
}

// Can 某个动作是否合法
func (s Situation) Can(action holdem.MoveType) bool {
	for _, a := range s.Legal {
		if a == action {
			return true
		}
	}
	return false
}

// Decision 决策结果。Raise 的 Amount 是加注到的总额
type Decision struct {
	Action holdem.MoveType
	Amount int64
}

// Policy 决策策略
type Policy interface {
	Decide(s Situation) Decision
}

// Random 随机策略：
// 不需要跟注时过牌；跟注额超过一半筹码时30%全下、否则弃牌；
// 其余情况60%跟注、30%加注、10%弃牌
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom 创建随机策略，seed为0时使用当前时间
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) float() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *Random) int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int63n(n)
}

// Decide 实现 Policy
func (r *Random) Decide(s Situation) Decision {
	if s.ToCall == 0 && s.Can(holdem.MoveCheck) {
		return Decision{Action: holdem.MoveCheck}
	}

	if s.ToCall > s.Chips/2 {
		if r.float() < 0.3 {
			return Decision{Action: holdem.MoveAllIn}
		}
		return Decision{Action: holdem.MoveFold}
	}

	roll := r.float()
	switch {
	case roll < 0.6:
		return Decision{Action: holdem.MoveCall}
	case roll < 0.9:
		return r.raise(s)
	default:
		return Decision{Action: holdem.MoveFold}
	}
}

// raise 加注到最小加注额和一半筹码之间
func (r *Random) raise(s Situation) Decision {
	if !s.Can(holdem.MoveRaise) {
		return Decision{Action: holdem.MoveCall}
	}
	low := s.MinRaiseTo
	high := s.Contribution + s.Chips/2
	target := low
	if high > low {
		target = low + r.int63n(high-low+1)
	}
	if target-s.Contribution >= s.Chips {
		return Decision{Action: holdem.MoveAllIn}
	}
	return Decision{Action: holdem.MoveRaise, Amount: target}
}
