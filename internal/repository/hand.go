package repository

import (
	"context"

	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/models"
	"gorm.io/gorm"
)

// HandRepository 手牌记录仓储接口
type HandRepository interface {
	BaseRepository
	SaveHand(ctx context.Context, hand *models.HandRecord) error
	FindByHandID(ctx context.Context, handID string) (*models.HandRecord, error)
	FindBySessionID(ctx context.Context, sessionID string, p *Pagination) ([]*models.HandRecord, error)
	GetPlayerStatistics(ctx context.Context, playerID string) (*PlayerStatistics, error)
}

// PlayerStatistics 玩家统计，不含被取消的手牌
type PlayerStatistics struct {
	PlayerID       string  `json:"player_id"`
	HandsPlayed    int64   `json:"hands_played"`
	HandsWon       int64   `json:"hands_won"`
	ShowdownsSeen  int64   `json:"showdowns_seen"`
	TotalCommitted int64   `json:"total_committed"`
	TotalWon       int64   `json:"total_won"`
	Net            int64   `json:"net"`
	BiggestPot     int64   `json:"biggest_pot"`
	WinRate        float64 `json:"win_rate"`
}

// handRepo 手牌记录仓储实现
type handRepo struct {
	*BaseRepo
}

// NewHandRepository 创建手牌记录仓储
func NewHandRepository(db *gorm.DB) HandRepository {
	return &handRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// SaveHand 保存手牌及每名玩家的结果
func (r *handRepo) SaveHand(ctx context.Context, hand *models.HandRecord) error {
	if err := r.db.WithContext(ctx).Create(hand).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "hand_records")
	}
	return nil
}

// FindByHandID 根据手牌ID查找
func (r *handRepo) FindByHandID(ctx context.Context, handID string) (*models.HandRecord, error) {
	var hand models.HandRecord
	err := r.db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat asc")
		}).
		Where("hand_id = ?", handID).
		First(&hand).Error
	if err != nil {
		return nil, queryError(err, "手牌 "+handID)
	}
	return &hand, nil
}

// FindBySessionID 一局游戏的手牌记录（分页，最新的在前）
func (r *handRepo) FindBySessionID(ctx context.Context, sessionID string, p *Pagination) ([]*models.HandRecord, error) {
	var hands []*models.HandRecord

	// 查询总数
	r.db.WithContext(ctx).
		Model(&models.HandRecord{}).
		Where("session_id = ?", sessionID).
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Preload("Results").
		Where("session_id = ?", sessionID).
		Order("hand_number desc").
		Scopes(Paginate(p)).
		Find(&hands).Error
	if err != nil {
		return nil, queryError(err, "hand_records")
	}
	return hands, nil
}

// GetPlayerStatistics 获取玩家统计
func (r *handRepo) GetPlayerStatistics(ctx context.Context, playerID string) (*PlayerStatistics, error) {
	stats := PlayerStatistics{PlayerID: playerID}

	err := r.db.WithContext(ctx).
		Model(&models.HandPlayerResult{}).
		Where("player_id = ? AND cancelled = ?", playerID, false).
		Select(
			"COUNT(*) as hands_played",
			"COALESCE(SUM(CASE WHEN winner THEN 1 ELSE 0 END), 0) as hands_won",
			"COALESCE(SUM(CASE WHEN showdown THEN 1 ELSE 0 END), 0) as showdowns_seen",
			"COALESCE(SUM(committed), 0) as total_committed",
			"COALESCE(SUM(won), 0) as total_won",
			"COALESCE(MAX(won), 0) as biggest_pot",
		).
		Row().Scan(
			&stats.HandsPlayed,
			&stats.HandsWon,
			&stats.ShowdownsSeen,
			&stats.TotalCommitted,
			&stats.TotalWon,
			&stats.BiggestPot,
		)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "hand_player_results")
	}

	stats.Net = stats.TotalWon - stats.TotalCommitted
	if stats.HandsPlayed > 0 {
		stats.WinRate = float64(stats.HandsWon) / float64(stats.HandsPlayed) * 100
	}
	return &stats, nil
}
