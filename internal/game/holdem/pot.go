package holdem

import (
	"github.com/wfunc/holdem-server/internal/errors"
)

// ShowdownResult 摊牌时一个座位的牌力
type ShowdownResult struct {
	Seat     int      `json:"seat"`
	PlayerID string   `json:"player_id"`
	Hole     []Card   `json:"hole"`
	Rank     HandRank `json:"rank"`
}

// SeatOrder 从from开始顺时针的n个座位号
func SeatOrder(n, from int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = ((from+i)%n + n) % n
	}
	return order
}

// Showdown 按order顺序评估所有仍在局中的座位，返回结果和赢家（保持order顺序）
func Showdown(seats []*Seat, order []int, board []Card) ([]ShowdownResult, []int, error) {
	var results []ShowdownResult
	var best int64 = -1
	var winners []int

	for _, idx := range order {
		s := seats[idx]
		if !s.InHand() {
			continue
		}
		cards := make([]Card, 0, len(s.Hole)+len(board))
		cards = append(cards, s.Hole...)
		cards = append(cards, board...)
		rank, err := Evaluate(cards)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, ShowdownResult{
			Seat:     idx,
			PlayerID: s.PlayerID,
			Hole:     append([]Card(nil), s.Hole...),
			Rank:     rank,
		})
		switch {
		case rank.Value > best:
			best = rank.Value
			winners = []int{idx}
		case rank.Value == best:
			winners = append(winners, idx)
		}
	}

	if len(results) == 0 {
		return nil, nil, errors.New(errors.ErrNoActivePlayers, "摊牌时没有玩家")
	}
	return results, winners, nil
}

// SplitPot 平分底池，除不尽的余数全部给第一个赢家
func SplitPot(pot int64, winners []int) map[int]int64 {
	payouts := make(map[int]int64, len(winners))
	if len(winners) == 0 || pot <= 0 {
		return payouts
	}
	share := pot / int64(len(winners))
	remainder := pot % int64(len(winners))
	for _, w := range winners {
		payouts[w] += share
	}
	payouts[winners[0]] += remainder
	return payouts
}
