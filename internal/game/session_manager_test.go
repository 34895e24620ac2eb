package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game/holdem"
	"go.uber.org/zap"
)

type SessionManagerTestSuite struct {
	suite.Suite
	manager *SessionManager
	rec     *recorder
	ctx     context.Context
}

func (s *SessionManagerTestSuite) SetupTest() {
	s.rec = &recorder{}
	s.ctx = context.Background()
	s.manager = NewSessionManager(ManagerConfig{
		Logger:       zap.NewNop(),
		Clock:        clockwork.NewFakeClock(),
		Notifier:     s.rec,
		Repository:   s.rec,
		SmallBlind:   5,
		BigBlind:     10,
		TurnTimeout:  30 * time.Second,
		HandInterval: time.Hour,
		MaxSessions:  5,
		MaxSeats:     6,
	})
}

func (s *SessionManagerTestSuite) TearDownTest() {
	s.manager.StopAll()
}

func twoPlayers(table string) StartGameRequest {
	return StartGameRequest{
		TableID: table,
		Players: []PlayerSeat{{PlayerID: "alice", Chips: 500}, {PlayerID: "bob", Chips: 500}},
	}
}

func (s *SessionManagerTestSuite) TestStartGameUsesDefaultBlinds() {
	session, err := s.manager.StartGame(s.ctx, twoPlayers("t1"))
	s.Require().NoError(err)

	snap, err := s.manager.GetSnapshot(s.ctx, session.ID(), "alice")
	s.Require().NoError(err)
	s.Equal(int64(5), snap.SmallBlind)
	s.Equal(int64(10), snap.BigBlind)
	s.Equal("t1", snap.TableID)
	s.Equal(1, s.manager.GetActiveSessions())

	found, err := s.manager.GetSessionByTable("t1")
	s.Require().NoError(err)
	s.Equal(session.ID(), found.ID())
}

func (s *SessionManagerTestSuite) TestStartGameValidation() {
	req := twoPlayers("t1")
	req.Players = req.Players[:1]
	_, err := s.manager.StartGame(s.ctx, req)
	s.True(errors.Is(err, errors.ErrNotEnoughPlayers))

	req = twoPlayers("t1")
	req.SmallBlind, req.BigBlind = 20, 10
	_, err = s.manager.StartGame(s.ctx, req)
	s.True(errors.Is(err, errors.ErrInvalidBlinds))

	req = twoPlayers("t1")
	for i := 0; i < 5; i++ {
		req.Players = append(req.Players, PlayerSeat{PlayerID: fmt.Sprintf("x%d", i), Chips: 100})
	}
	_, err = s.manager.StartGame(s.ctx, req)
	s.True(errors.Is(err, errors.ErrTableFull))

	s.Equal(0, s.manager.GetActiveSessions())
}

func (s *SessionManagerTestSuite) TestOneGamePerTable() {
	_, err := s.manager.StartGame(s.ctx, twoPlayers("t1"))
	s.Require().NoError(err)

	_, err = s.manager.StartGame(s.ctx, twoPlayers("t1"))
	s.True(errors.Is(err, errors.ErrGameAlreadyStarted))
}

func (s *SessionManagerTestSuite) TestSessionLimit() {
	for i := 0; i < 5; i++ {
		_, err := s.manager.StartGame(s.ctx, twoPlayers(fmt.Sprintf("t%d", i)))
		s.Require().NoError(err)
	}
	_, err := s.manager.StartGame(s.ctx, twoPlayers("t-extra"))
	s.True(errors.Is(err, errors.ErrSessionLimit))
}

func (s *SessionManagerTestSuite) TestSubmitActionAndStop() {
	session, err := s.manager.StartGame(s.ctx, twoPlayers("t1"))
	s.Require().NoError(err)

	snap, err := s.manager.SubmitAction(s.ctx, session.ID(), "alice", holdem.MoveCall, 0)
	s.Require().NoError(err)
	s.Equal("bob", snap.ToAct)

	_, err = s.manager.SubmitAction(s.ctx, "missing", "alice", holdem.MoveCall, 0)
	s.True(errors.Is(err, errors.ErrSessionNotFound))

	s.Require().NoError(s.manager.Pause(s.ctx, session.ID()))
	_, err = s.manager.SubmitAction(s.ctx, session.ID(), "bob", holdem.MoveCheck, 0)
	s.True(errors.Is(err, errors.ErrSessionPaused))
	s.Require().NoError(s.manager.Resume(s.ctx, session.ID()))

	s.Require().NoError(s.manager.AddSpectator(s.ctx, session.ID(), "carol"))
	_, err = s.manager.GetSnapshot(s.ctx, session.ID(), "carol")
	s.NoError(err)

	s.Require().NoError(s.manager.StopGame(s.ctx, session.ID()))
	s.Equal(0, s.manager.GetActiveSessions())
	_, err = s.manager.GetSnapshot(s.ctx, session.ID(), "alice")
	s.True(errors.Is(err, errors.ErrSessionNotFound))

	err = s.manager.StopGame(s.ctx, session.ID())
	s.True(errors.Is(err, errors.ErrSessionNotFound))

	_, err = s.manager.StartGame(s.ctx, twoPlayers("t1"))
	s.NoError(err, "停止后牌桌可以重新开局")
}

func (s *SessionManagerTestSuite) TestEndedSessionRemovesItself() {
	short := func() *holdem.Deck {
		d, _ := holdem.NewOrderedDeck(holdem.MustParseCards("2c 3c"))
		return d
	}
	manager := NewSessionManager(ManagerConfig{
		Clock:        clockwork.NewFakeClock(),
		DeckFactory:  short,
		SmallBlind:   5,
		BigBlind:     10,
		HandInterval: 0,
	})
	defer manager.StopAll()

	_, err := manager.StartGame(s.ctx, twoPlayers("t1"))
	s.Require().NoError(err)

	s.Eventually(func() bool {
		return manager.GetActiveSessions() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionManagerSuite(t *testing.T) {
	suite.Run(t, new(SessionManagerTestSuite))
}

func TestSessionManagerConcurrentAccess(t *testing.T) {
	manager := NewSessionManager(ManagerConfig{
		Clock:        clockwork.NewFakeClock(),
		SmallBlind:   5,
		BigBlind:     10,
		HandInterval: time.Hour,
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := manager.StartGame(ctx, twoPlayers(fmt.Sprintf("table-%d", i)))
			if !assert.NoError(t, err) {
				return
			}
			ids <- session.ID()
			_, err = manager.GetSnapshot(ctx, session.ID(), "")
			assert.NoError(t, err)
			manager.ListSessions()
		}(i)
	}
	wg.Wait()
	close(ids)
	require.Equal(t, 20, manager.GetActiveSessions())

	var stopped sync.WaitGroup
	n := 0
	for id := range ids {
		n++
		if n%2 == 0 {
			continue
		}
		stopped.Add(1)
		go func(id string) {
			defer stopped.Done()
			assert.NoError(t, manager.StopGame(ctx, id))
		}(id)
	}
	stopped.Wait()
	assert.Equal(t, 10, manager.GetActiveSessions())

	manager.StopAll()
	assert.Equal(t, 0, manager.GetActiveSessions())
	assert.Empty(t, manager.ListSessions())
}
