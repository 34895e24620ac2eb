package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"go.uber.org/zap"
)

// SessionManager 牌局会话管理器，每张牌桌同时只有一局游戏
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byTable  map[string]string
	logger   *zap.Logger
	config   ManagerConfig
}

// ManagerConfig 会话管理器配置
type ManagerConfig struct {
	Logger       *zap.Logger
	Clock        clockwork.Clock
	Notifier     Notifier
	Repository   Repository
	DeckFactory  func() *holdem.Deck
	SmallBlind   int64 // 请求未指定盲注时使用
	BigBlind     int64
	TurnTimeout  time.Duration
	HandInterval time.Duration
	MaxSessions  int
	MaxSeats     int
	MaxAborts    int
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config ManagerConfig) *SessionManager {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.MaxSeats <= 0 || config.MaxSeats > MaxPlayers {
		config.MaxSeats = MaxPlayers
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		byTable:  make(map[string]string),
		logger:   config.Logger,
		config:   config,
	}
}

// StartGame 校验参数，创建并启动一局游戏
func (sm *SessionManager) StartGame(ctx context.Context, req StartGameRequest) (*Session, error) {
	if req.SmallBlind == 0 && req.BigBlind == 0 {
		req.SmallBlind = sm.config.SmallBlind
		req.BigBlind = sm.config.BigBlind
	}
	if len(req.Players) > sm.config.MaxSeats {
		return nil, errors.Newf(errors.ErrTableFull, "最多 %d 个座位，收到 %d 名玩家", sm.config.MaxSeats, len(req.Players))
	}

	id := uuid.NewString()
	session, err := NewSession(id, req, SessionConfig{
		TurnTimeout:  sm.config.TurnTimeout,
		HandInterval: sm.config.HandInterval,
		MaxAborts:    sm.config.MaxAborts,
		Clock:        sm.config.Clock,
		Logger:       sm.logger,
		Notifier:     sm.config.Notifier,
		Repository:   sm.config.Repository,
		DeckFactory:  sm.config.DeckFactory,
	})
	if err != nil {
		return nil, err
	}
	session.onFinished = sm.remove

	sm.mu.Lock()
	// 检查会话数量限制
	if sm.config.MaxSessions > 0 && len(sm.sessions) >= sm.config.MaxSessions {
		sm.mu.Unlock()
		return nil, errors.Newf(errors.ErrSessionLimit, "上限 %d", sm.config.MaxSessions)
	}
	if existing, ok := sm.byTable[session.TableID()]; ok {
		sm.mu.Unlock()
		return nil, errors.Newf(errors.ErrGameAlreadyStarted, "牌桌 %s 的游戏 %s", session.TableID(), existing)
	}
	sm.sessions[id] = session
	sm.byTable[session.TableID()] = id
	sm.mu.Unlock()

	session.Start()

	sm.logger.Info("创建牌局会话",
		zap.String("session_id", id),
		zap.String("table_id", session.TableID()),
		zap.Int("players", len(req.Players)))
	return session, nil
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, errors.Newf(errors.ErrSessionNotFound, "会话 %s", sessionID)
	}
	return session, nil
}

// GetSessionByTable 根据牌桌获取进行中的会话
func (sm *SessionManager) GetSessionByTable(tableID string) (*Session, error) {
	sm.mu.RLock()
	id, ok := sm.byTable[tableID]
	sm.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrSessionNotFound, "牌桌 %s", tableID)
	}
	return sm.GetSession(id)
}

// SubmitAction 提交玩家动作
func (sm *SessionManager) SubmitAction(ctx context.Context, sessionID, playerID string, action holdem.MoveType, amount int64) (*Snapshot, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Submit(ctx, playerID, action, amount)
}

// GetSnapshot 获取viewerID视角的快照
func (sm *SessionManager) GetSnapshot(ctx context.Context, sessionID, viewerID string) (*Snapshot, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(ctx, viewerID)
}

// Pause 暂停牌局
func (sm *SessionManager) Pause(ctx context.Context, sessionID string) error {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return err
	}
	return session.Pause(ctx)
}

// Resume 恢复牌局
func (sm *SessionManager) Resume(ctx context.Context, sessionID string) error {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return err
	}
	return session.Resume(ctx)
}

// AddSpectator 添加观战者
func (sm *SessionManager) AddSpectator(ctx context.Context, sessionID, playerID string) error {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return err
	}
	return session.AddSpectator(ctx, playerID)
}

// RemoveSpectator 移除观战者
func (sm *SessionManager) RemoveSpectator(ctx context.Context, sessionID, playerID string) error {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return err
	}
	return session.RemoveSpectator(ctx, playerID)
}

// StopGame 停止牌局并等待会话退出
func (sm *SessionManager) StopGame(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	if !exists {
		sm.mu.Unlock()
		return errors.Newf(errors.ErrSessionNotFound, "会话 %s", sessionID)
	}
	sm.unregister(session)
	sm.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		session.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrTimeout, "等待会话停止")
	}

	sm.logger.Info("停止牌局会话", zap.String("session_id", sessionID))
	return nil
}

// StopAll 停止全部会话，服务关闭时调用
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.sessions = make(map[string]*Session)
	sm.byTable = make(map[string]string)
	sm.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Stop()
		}(s)
	}
	wg.Wait()

	sm.logger.Info("已停止全部牌局会话", zap.Int("count", len(sessions)))
}

// GetActiveSessions 获取活跃会话数
func (sm *SessionManager) GetActiveSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ListSessions 列出全部会话摘要
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// remove 会话自行结束时从注册表移除
func (sm *SessionManager) remove(session *Session) {
	sm.mu.Lock()
	removed := sm.unregister(session)
	sm.mu.Unlock()

	if removed {
		sm.logger.Info("牌局会话结束", zap.String("session_id", session.ID()))
	}
}

// unregister 调用方需持有写锁
func (sm *SessionManager) unregister(session *Session) bool {
	if sm.sessions[session.ID()] != session {
		return false
	}
	delete(sm.sessions, session.ID())
	if sm.byTable[session.TableID()] == session.ID() {
		delete(sm.byTable, session.TableID())
	}
	return true
}
