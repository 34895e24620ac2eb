package game

import (
	"fmt"

	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"go.uber.org/zap"
)

// GameStage 会话阶段，比下注阶段更粗，包含摊牌、结算和未开始
type GameStage string

const (
	StageNotStarted GameStage = "NOT_STARTED"
	StagePreflop    GameStage = GameStage(holdem.StagePreflop)
	StageFlop       GameStage = GameStage(holdem.StageFlop)
	StageTurn       GameStage = GameStage(holdem.StageTurn)
	StageRiver      GameStage = GameStage(holdem.StageRiver)
	StageShowdown   GameStage = "SHOWDOWN"
	StageFinished   GameStage = "FINISHED"
	StageEnded      GameStage = "ENDED" // 整局游戏结束
)

// 状态机事件
const (
	eventStartHand = "start_hand"
	eventNextStage = "next_stage"
	eventShowdown  = "showdown"
	eventAward     = "award"
	eventReset     = "reset"
	eventCancel    = "cancel"
	eventEnd       = "end"
)

// StageTransition 阶段转换定义
type StageTransition struct {
	From  GameStage
	Event string
	To    GameStage
}

// StageMachine 会话阶段状态机，只在会话自己的goroutine中使用
type StageMachine struct {
	current       GameStage
	transitions   map[string]StageTransition
	logger        *zap.Logger
	onStageChange func(from, to GameStage, event string)
}

// NewStageMachine 创建阶段状态机
func NewStageMachine(logger *zap.Logger) *StageMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &StageMachine{
		current:     StageNotStarted,
		transitions: make(map[string]StageTransition),
		logger:      logger,
	}
	sm.initTransitions()
	return sm
}

// initTransitions 初始化阶段转换规则
func (sm *StageMachine) initTransitions() {
	// 发手牌、下盲注
	sm.addTransition(StageTransition{From: StageNotStarted, Event: eventStartHand, To: StagePreflop})

	// 发公共牌
	sm.addTransition(StageTransition{From: StagePreflop, Event: eventNextStage, To: StageFlop})
	sm.addTransition(StageTransition{From: StageFlop, Event: eventNextStage, To: StageTurn})
	sm.addTransition(StageTransition{From: StageTurn, Event: eventNextStage, To: StageRiver})
	sm.addTransition(StageTransition{From: StageRiver, Event: eventShowdown, To: StageShowdown})

	// 派奖：只剩一人时可以从任意下注阶段直接结束
	for _, from := range []GameStage{StagePreflop, StageFlop, StageTurn, StageRiver, StageShowdown} {
		sm.addTransition(StageTransition{From: from, Event: eventAward, To: StageFinished})
	}

	sm.addTransition(StageTransition{From: StageFinished, Event: eventReset, To: StageNotStarted})

	// 引擎错误取消本手牌
	for _, from := range []GameStage{StageNotStarted, StagePreflop, StageFlop, StageTurn, StageRiver, StageShowdown, StageFinished} {
		sm.addTransition(StageTransition{From: from, Event: eventCancel, To: StageNotStarted})
		sm.addTransition(StageTransition{From: from, Event: eventEnd, To: StageEnded})
	}
}

// addTransition 添加阶段转换
func (sm *StageMachine) addTransition(t StageTransition) {
	sm.transitions[sm.transitionKey(t.From, t.Event)] = t
}

// transitionKey 生成转换键
func (sm *StageMachine) transitionKey(stage GameStage, event string) string {
	return fmt.Sprintf("%s:%s", stage, event)
}

// Trigger 触发事件
func (sm *StageMachine) Trigger(event string) error {
	t, ok := sm.transitions[sm.transitionKey(sm.current, event)]
	if !ok {
		return errors.Newf(errors.ErrEngineState, "无效的阶段转换: 阶段=%s, 事件=%s", sm.current, event)
	}

	from := sm.current
	sm.current = t.To

	if sm.onStageChange != nil {
		sm.onStageChange(from, t.To, event)
	}

	sm.logger.Debug("阶段转换",
		zap.String("from", string(from)),
		zap.String("to", string(t.To)),
		zap.String("event", event))
	return nil
}

// Stage 当前阶段
func (sm *StageMachine) Stage() GameStage {
	return sm.current
}

// CanTrigger 当前阶段是否接受该事件
func (sm *StageMachine) CanTrigger(event string) bool {
	_, ok := sm.transitions[sm.transitionKey(sm.current, event)]
	return ok
}

// OnStageChange 设置阶段变更回调
func (sm *StageMachine) OnStageChange(fn func(from, to GameStage, event string)) {
	sm.onStageChange = fn
}

// InHand 是否处于一手牌进行中
func (s GameStage) InHand() bool {
	switch s {
	case StagePreflop, StageFlop, StageTurn, StageRiver, StageShowdown:
		return true
	}
	return false
}
