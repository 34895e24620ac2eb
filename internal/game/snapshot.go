package game

import (
	"github.com/wfunc/holdem-server/internal/game/holdem"
)

// snapshot 在会话goroutine中构造viewer视角的快照。
// 底牌只对本人可见；真正摊牌之后，参与摊牌的底牌对所有人可见
func (s *Session) snapshot(viewer string) *Snapshot {
	snap := &Snapshot{
		SessionID:       s.id,
		TableID:         s.tableID,
		HandNumber:      s.handNumber,
		Stage:           s.stages.Stage(),
		SmallBlind:      s.smallBlind,
		BigBlind:        s.bigBlind,
		CommunityCards:  []holdem.Card{},
		DealerIndex:     s.dealer,
		SmallBlindIndex: s.sbIndex,
		BigBlindIndex:   s.bbIndex,
		ToActIndex:      -1,
		Paused:          s.paused,
		LastResult:      s.lastResult,
	}

	live := s.round != nil && !s.round.Settled()
	if s.round != nil {
		snap.CommunityCards = append(snap.CommunityCards, s.round.CommunityCards()...)
		if live {
			snap.Pot = s.round.Pot()
		}
	}
	if live && s.betting != nil {
		snap.CurrentBet = s.betting.CurrentBet()
		if to := s.betting.ToAct(); to >= 0 {
			snap.ToActIndex = to
			snap.ToAct = s.seats[to].PlayerID
		}
	}
	if s.timerKind == timerTurn && !s.deadline.IsZero() {
		deadline := s.deadline
		snap.TurnDeadline = &deadline
	}

	revealed := make(map[int]bool, len(s.shown))
	for _, r := range s.shown {
		revealed[r.Seat] = true
	}

	snap.Seats = make([]SeatView, len(s.seats))
	for i, seat := range s.seats {
		v := SeatView{
			Index:    i,
			PlayerID: seat.PlayerID,
			Chips:    seat.Chips,
			Status:   seat.Status,
			AllIn:    live && seat.AllIn(),
		}
		if live {
			v.Committed = s.round.Committed(i)
			if s.betting != nil {
				v.Bet = s.betting.Contribution(i)
			}
		}
		if len(seat.Hole) > 0 && (seat.PlayerID == viewer || revealed[i]) {
			v.Hole = append([]holdem.Card(nil), seat.Hole...)
		}
		snap.Seats[i] = v
	}

	if viewer != "" && live && s.betting != nil && snap.ToAct == viewer {
		idx := snap.ToActIndex
		snap.LegalActions = s.betting.LegalActions(idx)
		snap.ToCall = s.betting.ToCall(idx)
		snap.MinRaiseTo = s.betting.MinRaiseTo()
	}
	return snap
}
