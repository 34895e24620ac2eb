package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/models"
)

func TestPokerGameRepository_CreateAndFind(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPokerGameRepository(db)
	ctx := context.Background()

	game := CreateTestPokerGame(t, db, "s1", "t1")
	assert.NotZero(t, game.ID)

	found, err := repo.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	AssertPokerGame(t, game, found)
	assert.JSONEq(t, string(game.Players), string(found.Players))

	_, err = repo.FindBySessionID(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPokerGameRepository_Save(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPokerGameRepository(db)
	ctx := context.Background()

	t.Run("不存在时创建", func(t *testing.T) {
		game := &models.PokerGame{SessionID: "s1", TableID: "t1", SmallBlind: 5, BigBlind: 10, Status: models.GameStatusPlaying, StartedAt: time.Now()}
		require.NoError(t, repo.Save(ctx, game))
		assert.NotZero(t, game.ID)
	})

	t.Run("存在时更新", func(t *testing.T) {
		ended := time.Now()
		game := &models.PokerGame{
			SessionID:   "s1",
			TableID:     "t1",
			Status:      models.GameStatusEnded,
			HandsPlayed: 12,
			EndReason:   "stopped",
			EndedAt:     &ended,
		}
		require.NoError(t, repo.Save(ctx, game))

		found, err := repo.FindBySessionID(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, game.ID, found.ID)
		assert.Equal(t, models.GameStatusEnded, found.Status)
		assert.Equal(t, 12, found.HandsPlayed)
		assert.Equal(t, "stopped", found.EndReason)
		assert.Equal(t, int64(10), found.BigBlind, "盲注不随更新改变")
		require.NotNil(t, found.EndedAt)
	})
}

func TestPokerGameRepository_EndGameAndIncrement(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPokerGameRepository(db)
	ctx := context.Background()
	CreateTestPokerGame(t, db, "s1", "t1")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementHands(ctx, "s1"))
	}
	require.NoError(t, repo.EndGame(ctx, "s1", "只剩一名玩家有筹码", time.Now()))

	found, err := repo.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, found.HandsPlayed)
	assert.Equal(t, models.GameStatusEnded, found.Status)

	err = repo.EndGame(ctx, "missing", "x", time.Now())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPokerGameRepository_FindByTableID(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPokerGameRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		CreateTestPokerGame(t, db, fmt.Sprintf("s%d", i), "t1")
	}
	CreateTestPokerGame(t, db, "other", "t2")

	p := NewPagination(1, 2)
	games, err := repo.FindByTableID(ctx, "t1", p)
	require.NoError(t, err)
	assert.Len(t, games, 2)
	assert.Equal(t, int64(5), p.Total)
}

func TestPokerGameRepository_EndInterrupted(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPokerGameRepository(db)
	ctx := context.Background()

	CreateTestPokerGame(t, db, "s1", "t1")
	CreateTestPokerGame(t, db, "s2", "t2")
	require.NoError(t, repo.EndGame(ctx, "s2", "stopped", time.Now()))

	n, err := repo.EndInterrupted(ctx, "服务重启")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusEnded, found.Status)
	assert.Equal(t, "服务重启", found.EndReason)

	found, err = repo.FindBySessionID(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "stopped", found.EndReason, "已结束的牌局不受影响")
}

func TestPagination(t *testing.T) {
	p := NewPagination(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 500)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 200, p.Offset())
}
