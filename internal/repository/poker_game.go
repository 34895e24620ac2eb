package repository

import (
	"context"
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/models"
	"gorm.io/gorm"
)

// PokerGameRepository 牌局仓储接口
type PokerGameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.PokerGame) error
	Save(ctx context.Context, game *models.PokerGame) error
	EndGame(ctx context.Context, sessionID, reason string, endedAt time.Time) error
	IncrementHands(ctx context.Context, sessionID string) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.PokerGame, error)
	FindByTableID(ctx context.Context, tableID string, p *Pagination) ([]*models.PokerGame, error)
	EndInterrupted(ctx context.Context, reason string) (int64, error)
}

// pokerGameRepo 牌局仓储实现
type pokerGameRepo struct {
	*BaseRepo
}

// NewPokerGameRepository 创建牌局仓储
func NewPokerGameRepository(db *gorm.DB) PokerGameRepository {
	return &pokerGameRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建牌局
func (r *pokerGameRepo) Create(ctx context.Context, game *models.PokerGame) error {
	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "poker_games")
	}
	return nil
}

// Save 按会话ID插入或更新
func (r *pokerGameRepo) Save(ctx context.Context, game *models.PokerGame) error {
	var existing models.PokerGame
	err := r.db.WithContext(ctx).
		Where("session_id = ?", game.SessionID).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.Create(ctx, game)
	}
	if err != nil {
		return queryError(err, "poker_games")
	}

	game.ID = existing.ID
	game.CreatedAt = existing.CreatedAt
	err = r.db.WithContext(ctx).
		Model(&existing).
		Updates(map[string]interface{}{
			"status":       game.Status,
			"players":      game.Players,
			"hands_played": game.HandsPlayed,
			"end_reason":   game.EndReason,
			"ended_at":     game.EndedAt,
		}).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate, "poker_games")
	}
	return nil
}

// EndGame 标记牌局结束
func (r *pokerGameRepo) EndGame(ctx context.Context, sessionID, reason string, endedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.PokerGame{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":     models.GameStatusEnded,
			"end_reason": reason,
			"ended_at":   &endedAt,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrDatabaseUpdate, "poker_games")
	}
	if result.RowsAffected == 0 {
		return errors.Newf(errors.ErrNotFound, "牌局 %s", sessionID)
	}
	return nil
}

// IncrementHands 已打手数加一
func (r *pokerGameRepo) IncrementHands(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.PokerGame{}).
		Where("session_id = ?", sessionID).
		UpdateColumn("hands_played", gorm.Expr("hands_played + ?", 1)).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate, "poker_games")
	}
	return nil
}

// FindBySessionID 根据会话ID查找
func (r *pokerGameRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.PokerGame, error) {
	var game models.PokerGame
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&game).Error
	if err != nil {
		return nil, queryError(err, "牌局 "+sessionID)
	}
	return &game, nil
}

// FindByTableID 牌桌的历史牌局（分页，最新的在前）
func (r *pokerGameRepo) FindByTableID(ctx context.Context, tableID string, p *Pagination) ([]*models.PokerGame, error) {
	var games []*models.PokerGame

	// 查询总数
	r.db.WithContext(ctx).
		Model(&models.PokerGame{}).
		Where("table_id = ?", tableID).
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("started_at desc").
		Scopes(Paginate(p)).
		Find(&games).Error
	if err != nil {
		return nil, queryError(err, "poker_games")
	}
	return games, nil
}

// EndInterrupted 服务启动时把上次未正常结束的牌局标记为结束
func (r *pokerGameRepo) EndInterrupted(ctx context.Context, reason string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.PokerGame{}).
		Where("status = ?", models.GameStatusPlaying).
		Updates(map[string]interface{}{
			"status":     models.GameStatusEnded,
			"end_reason": reason,
			"ended_at":   &now,
		})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrDatabaseUpdate, "poker_games")
	}
	return result.RowsAffected, nil
}
