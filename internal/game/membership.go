package game

import "time"

// Capability 牌桌成员的能力，按位组合
type Capability uint8

const (
	CanView Capability = 1 << iota
	CanAct
)

// Membership 牌桌成员。入座玩家可以下注和查看，观战者只能查看
type Membership struct {
	PlayerID string     `json:"player_id"`
	Caps     Capability `json:"caps"`
	JoinedAt time.Time  `json:"joined_at"`
}

// NewPlayerMembership 入座玩家
func NewPlayerMembership(playerID string, at time.Time) *Membership {
	return &Membership{PlayerID: playerID, Caps: CanView | CanAct, JoinedAt: at}
}

// NewSpectatorMembership 观战者
func NewSpectatorMembership(playerID string, at time.Time) *Membership {
	return &Membership{PlayerID: playerID, Caps: CanView, JoinedAt: at}
}

// Can 是否拥有全部指定能力
func (m *Membership) Can(c Capability) bool {
	return m != nil && m.Caps&c == c
}

// Role 角色名，用于展示
func (m *Membership) Role() string {
	if m.Can(CanAct) {
		return "player"
	}
	return "spectator"
}
