package holdem

// SeatStatus 座位在本手牌中的状态
type SeatStatus string

const (
	SeatActive     SeatStatus = "ACTIVE"
	SeatFolded     SeatStatus = "FOLDED"
	SeatSittingOut SeatStatus = "SITTING_OUT"
)

// Seat 牌桌上的一个座位。全下不是独立状态：ACTIVE 且筹码为0即为全下
type Seat struct {
	Index    int        `json:"index"`
	PlayerID string     `json:"player_id"`
	Chips    int64      `json:"chips"`
	Status   SeatStatus `json:"status"`
	Hole     []Card     `json:"-"`
}

// InHand 是否仍在争夺底池（未弃牌且本手牌被发了牌）
func (s *Seat) InHand() bool {
	return s.Status == SeatActive
}

// AllIn 是否已全下
func (s *Seat) AllIn() bool {
	return s.Status == SeatActive && s.Chips == 0
}

// CanAct 是否还能做出下注决定
func (s *Seat) CanAct() bool {
	return s.Status == SeatActive && s.Chips > 0
}

// NextSeat 从from开始（含）顺时针找到第一个满足条件的座位，找不到返回-1
func NextSeat(seats []*Seat, from int, ok func(*Seat) bool) int {
	n := len(seats)
	if n == 0 {
		return -1
	}
	from = ((from % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if ok(seats[idx]) {
			return idx
		}
	}
	return -1
}
