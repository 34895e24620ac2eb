package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"github.com/wfunc/holdem-server/internal/logger"
	"github.com/wfunc/holdem-server/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GameRecorder 把牌局记录写入数据库，实现 game.Repository
type GameRecorder struct {
	db    *gorm.DB
	games PokerGameRepository
	hands HandRepository
}

// NewGameRecorder 创建牌局记录器
func NewGameRecorder(db *gorm.DB) *GameRecorder {
	return &GameRecorder{
		db:    db,
		games: NewPokerGameRepository(db),
		hands: NewHandRepository(db),
	}
}

var _ game.Repository = (*GameRecorder)(nil)

// SaveGame 开局和结束时各调用一次
func (r *GameRecorder) SaveGame(ctx context.Context, record *game.GameRecord) error {
	start := time.Now()
	players, err := toJSON(record.Players)
	if err != nil {
		return err
	}
	err = r.games.Save(ctx, &models.PokerGame{
		SessionID:   record.SessionID,
		TableID:     record.TableID,
		SmallBlind:  record.SmallBlind,
		BigBlind:    record.BigBlind,
		Status:      string(record.Status),
		Players:     players,
		HandsPlayed: record.HandsPlayed,
		EndReason:   record.EndReason,
		StartedAt:   record.StartedAt,
		EndedAt:     record.EndedAt,
	})
	logger.LogDatabaseOperation("save_game", "poker_games", time.Since(start), err)
	return err
}

// SaveHand 在一个事务中写入手牌、玩家结果并累加手数
func (r *GameRecorder) SaveHand(ctx context.Context, record *game.HandRecord) error {
	start := time.Now()
	hand, err := toHandModel(record)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewHandRepository(tx).SaveHand(ctx, hand); err != nil {
			return err
		}
		return NewPokerGameRepository(tx).IncrementHands(ctx, record.SessionID)
	})
	if err != nil {
		err = errors.Wrap(err, errors.ErrTransaction, "保存手牌")
	}
	logger.LogDatabaseOperation("save_hand", "hand_records", time.Since(start), err)
	return err
}

// Games 牌局仓储
func (r *GameRecorder) Games() PokerGameRepository { return r.games }

// Hands 手牌仓储
func (r *GameRecorder) Hands() HandRepository { return r.hands }

func toHandModel(record *game.HandRecord) (*models.HandRecord, error) {
	hand := &models.HandRecord{
		HandID:          record.HandID,
		SessionID:       record.SessionID,
		TableID:         record.TableID,
		HandNumber:      record.HandNumber,
		DealerIndex:     record.DealerIndex,
		SmallBlindIndex: record.SmallBlindIndex,
		BigBlindIndex:   record.BigBlindIndex,
		Pot:             record.Pot,
		Cancelled:       record.Cancelled,
		CancelReason:    record.CancelReason,
		StartedAt:       record.StartedAt,
		FinishedAt:      record.FinishedAt,
		Results:         playerResults(record),
	}

	var err error
	fields := []struct {
		dst *datatypes.JSON
		src interface{}
	}{
		{&hand.Board, record.Board},
		{&hand.Moves, record.Moves},
		{&hand.Shown, record.Shown},
		{&hand.Winners, record.Winners},
		{&hand.Payouts, record.Payouts},
	}
	for _, f := range fields {
		if *f.dst, err = toJSON(f.src); err != nil {
			return nil, err
		}
	}
	return hand, nil
}

// playerResults 根据动作和派彩计算每名玩家的输赢
func playerResults(record *game.HandRecord) []models.HandPlayerResult {
	committed := make(map[string]int64)
	folded := make(map[string]bool)
	for _, m := range record.Moves {
		committed[m.PlayerID] += m.Amount
		if m.Type == holdem.MoveFold {
			folded[m.PlayerID] = true
		}
	}
	shown := make(map[string]bool, len(record.Shown))
	for _, s := range record.Shown {
		shown[s.PlayerID] = true
	}
	winners := make(map[string]bool, len(record.Winners))
	for _, w := range record.Winners {
		winners[w] = true
	}

	results := make([]models.HandPlayerResult, 0, len(record.Players))
	for _, p := range record.Players {
		if p.Chips == 0 {
			// 没有筹码的玩家不参与这手牌
			continue
		}
		won := record.Payouts[p.PlayerID]
		results = append(results, models.HandPlayerResult{
			SessionID:  record.SessionID,
			PlayerID:   p.PlayerID,
			Seat:       p.Seat,
			StartChips: p.Chips,
			Committed:  committed[p.PlayerID],
			Won:        won,
			Net:        won - committed[p.PlayerID],
			Folded:     folded[p.PlayerID],
			Showdown:   shown[p.PlayerID],
			Winner:     winners[p.PlayerID] && !record.Cancelled,
			Cancelled:  record.Cancelled,
		})
	}
	return results
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMessageFormat, "序列化记录")
	}
	return datatypes.JSON(data), nil
}
